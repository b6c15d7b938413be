package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/qri-io/ndarray-go"
	"github.com/qri-io/ndarray-go/badgerstore"
	"github.com/qri-io/ndarray-go/boltstore"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: ndarray [-config file] <command> [arguments]
Commands:
  create [-dtype <f8] [-chunks 100,100] [-origin 0,0] [-compressor gzip] [-order C] [-fill 0] <path> <dims>
  info <path>
  stats <path>
  copy [-compressor zstd] [-chunks 100,100] <src> <dst>
  export <path> <file>
  import [-dtype <f8] [-chunks 100,100] <file> <path> <dims>`

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := ndarray.DefaultConfig()
	cfg.Store = ndarray.StoreConfig{Type: ndarray.StoreTypeLocal, Path: "."}
	if *configPath != "" {
		var err error
		if cfg, err = ndarray.LoadConfig(*configPath); err != nil {
			fatal(err)
		}
	}
	if err := cfg.Apply(); err != nil {
		fatal(err)
	}

	store, closer, err := openStore(cfg.Store)
	if err != nil {
		fatal(err)
	}
	defer closer()

	args := flag.Args()
	switch args[0] {
	case "create":
		err = create(store, args[1:])
	case "info":
		err = info(store, args[1:])
	case "stats":
		err = stats(store, args[1:])
	case "copy":
		err = copyArray(store, args[1:])
	case "export":
		err = export(store, args[1:])
	case "import":
		err = importArray(store, args[1:])
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		closer()
		fatal(err)
	}
}

func fatal(err error) {
	logrus.Error(err)
	os.Exit(1)
}

func openStore(c ndarray.StoreConfig) (ndarray.Store, func() error, error) {
	nop := func() error { return nil }
	switch c.Type {
	case ndarray.StoreTypeBadger:
		s, err := badgerstore.Open(c.Path)
		if err != nil {
			return nil, nop, err
		}
		return s, s.Close, nil
	case ndarray.StoreTypeBolt:
		s, err := boltstore.Open(c.Path)
		if err != nil {
			return nil, nop, err
		}
		return s, s.Close, nil
	default:
		s, err := c.OpenStore()
		return s, nop, err
	}
}

// chunkFlags are shared by the commands that create chunked arrays
type chunkFlags struct {
	dtype      *string
	chunks     *string
	origin     *string
	compressor *string
	level      *int
	order      *string
	fill       *string
}

func addChunkFlags(fs *flag.FlagSet) *chunkFlags {
	return &chunkFlags{
		dtype:      fs.String("dtype", "<f8", "pixel type"),
		chunks:     fs.String("chunks", "", "comma separated chunk extents"),
		origin:     fs.String("origin", "", "comma separated origin"),
		compressor: fs.String("compressor", ndarray.CodecGzip, "chunk codec: gzip, zstd, lzma or none"),
		level:      fs.Int("level", 0, "compression level"),
		order:      fs.String("order", "C", "pixel order, C or F"),
		fill:       fs.String("fill", "", "fill value"),
	}
}

func (f *chunkFlags) options() ([]ndarray.ChunkOption, error) {
	var opts []ndarray.ChunkOption
	if *f.chunks != "" {
		c, err := parseInts(*f.chunks)
		if err != nil {
			return nil, err
		}
		chunks := make([]int, len(c))
		for i, v := range c {
			chunks[i] = int(v)
		}
		opts = append(opts, ndarray.WithChunks(chunks...))
	}
	if *f.origin != "" {
		o, err := parseInts(*f.origin)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ndarray.WithOrigin(o...))
	}
	comp := *f.compressor
	if comp == "none" {
		comp = ""
	}
	opts = append(opts, ndarray.WithCompressor(comp, *f.level))

	order, err := ndarray.ParseOrder(*f.order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, ndarray.WithOrder(order))

	switch *f.fill {
	case "":
	case ndarray.FillValueNaN, ndarray.FillValueInfinity, ndarray.FillValueNegativeInfinity:
		opts = append(opts, ndarray.WithFillValue(*f.fill))
	default:
		v, err := strconv.ParseFloat(*f.fill, 64)
		if err != nil {
			return nil, fmt.Errorf("fill value: %w", err)
		}
		opts = append(opts, ndarray.WithFillValue(v))
	}
	return opts, nil
}

func create(store ndarray.Store, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	cf := addChunkFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: ndarray create [flags] <path> <dims>")
	}
	dims, err := parseInts(fs.Arg(1))
	if err != nil {
		return err
	}
	dt, err := ndarray.ParseDtype(*cf.dtype)
	if err != nil {
		return err
	}
	opts, err := cf.options()
	if err != nil {
		return err
	}
	a, err := ndarray.Create(store, fs.Arg(0), dims, dt, ndarray.ModeWriteFail, opts...)
	if err != nil {
		return err
	}
	fmt.Println(a.Info())
	return nil
}

func info(store ndarray.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ndarray info <path>")
	}
	a, err := ndarray.Open(store, args[0], ndarray.ModeRead)
	if err != nil {
		return err
	}
	desc := a.Description()
	fmt.Println(a.Info())
	fmt.Printf("  Shape:   %s\n", desc.Shape)
	fmt.Printf("  Pixels:  %d\n", desc.Shape.NumPixels())
	fmt.Printf("  Dtype:   %s\n", desc.Dtype)
	fmt.Printf("  Chunks:  %d\n", a.NumChunks())
	fmt.Printf("  Fill:    %v\n", desc.Fill)
	if l, ok := store.(ndarray.Lister); ok {
		keys, err := l.Keys(a.Path() + "/")
		if err != nil {
			return err
		}
		fmt.Printf("  Stored:  %d keys\n", len(keys))
	}
	return nil
}

func stats(store ndarray.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ndarray stats <path>")
	}
	arr, err := ndarray.OpenArray(store, args[0], ndarray.ModeRead)
	if err != nil {
		return err
	}
	defer arr.Close()

	acc, err := arr.Access()
	if err != nil {
		return err
	}
	defer acc.Close()

	it, err := ndarray.NewChunkIterator(arr.Shape().NumPixels())
	if err != nil {
		return err
	}
	buf, err := arr.Dtype().NewBuffer(it.Size())
	if err != nil {
		return err
	}
	vals := make([]float64, it.Size())

	var (
		n        int64
		sum      float64
		min, max = math.Inf(1), math.Inf(-1)
	)
	for ; it.HasNext(); it.Next() {
		if err := acc.Read(buf, 0, it.Size()); err != nil {
			return err
		}
		if err := ndarray.ConvertPixels(vals, buf, it.Size()); err != nil {
			return err
		}
		for _, v := range vals[:it.Size()] {
			if math.IsNaN(v) {
				continue
			}
			n++
			sum += v
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
	}
	fmt.Printf("count: %d\n", n)
	if n > 0 {
		fmt.Printf("min:   %g\nmax:   %g\nmean:  %g\n", min, max, sum/float64(n))
	}
	return nil
}

func copyArray(store ndarray.Store, args []string) error {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	cf := addChunkFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: ndarray copy [flags] <src> <dst>")
	}
	src, err := ndarray.OpenArray(store, fs.Arg(0), ndarray.ModeRead)
	if err != nil {
		return err
	}
	defer src.Close()

	opts, err := cf.options()
	if err != nil {
		return err
	}
	shape := src.Shape()
	opts = append(opts, ndarray.WithOrigin(shape.Origin()...), ndarray.WithOrder(shape.Order()))
	dt := src.Dtype()
	if flagSet(fs, "dtype") {
		if dt, err = ndarray.ParseDtype(*cf.dtype); err != nil {
			return err
		}
	}
	ca, err := ndarray.Create(store, fs.Arg(1), shape.Dims(), dt, ndarray.ModeWriteFail, opts...)
	if err != nil {
		return err
	}
	dst := ndarray.NewArray(ca)
	defer dst.Close()
	return ndarray.Copy(dst, src)
}

func export(store ndarray.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ndarray export <path> <file>")
	}
	src, err := ndarray.OpenArray(store, args[0], ndarray.ModeRead)
	if err != nil {
		return err
	}
	defer src.Close()

	fa, err := ndarray.CreateFileArray(args[1], src.Shape(), src.Dtype())
	if err != nil {
		return err
	}
	dst := ndarray.NewArray(fa)
	defer dst.Close()
	return ndarray.Copy(dst, src)
}

func importArray(store ndarray.Store, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cf := addChunkFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 3 {
		return fmt.Errorf("usage: ndarray import [flags] <file> <path> <dims>")
	}
	dims, err := parseInts(fs.Arg(2))
	if err != nil {
		return err
	}
	dt, err := ndarray.ParseDtype(*cf.dtype)
	if err != nil {
		return err
	}
	opts, err := cf.options()
	if err != nil {
		return err
	}
	ca, err := ndarray.Create(store, fs.Arg(1), dims, dt, ndarray.ModeWriteFail, opts...)
	if err != nil {
		return err
	}
	dst := ndarray.NewArray(ca)
	defer dst.Close()

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	sa, err := ndarray.NewStreamReader(f, dst.Shape(), dt)
	if err != nil {
		return err
	}
	return ndarray.Copy(dst, ndarray.NewArray(sa))
}

func flagSet(fs *flag.FlagSet, name string) (set bool) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseInts(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
