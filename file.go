package ndarray

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FileArray stores pixels as raw binary in a single file, in the array's
// linearization and the dtype's byte order. There is one file handle and so
// one physical cursor: Array hands out multiplexed sessions over it
type FileArray struct {
	f    *os.File
	desc Description
}

var _ ArrayImpl = (*FileArray)(nil)

// CreateFileArray creates (or truncates) a file sized for shape
func CreateFileArray(path string, shape *OrderedShape, dt Dtype) (*FileArray, error) {
	if _, err := dt.GoType(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(shape.NumPixels() * int64(dt.ByteSize)); err != nil {
		f.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{"path": path, "shape": shape, "dtype": dt}).Debug("created file array")
	return newFileArray(f, shape, dt, true), nil
}

// OpenFileArray opens an existing raw pixel file. The file size must match
// shape and dt exactly
func OpenFileArray(path string, shape *OrderedShape, dt Dtype, writable bool) (*FileArray, error) {
	if _, err := dt.GoType(); err != nil {
		return nil, err
	}
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if want := shape.NumPixels() * int64(dt.ByteSize); fi.Size() != want {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, shape %s of %s needs %d", ErrInvalidArgument, path, fi.Size(), shape, dt, want)
	}
	return newFileArray(f, shape, dt, writable), nil
}

func newFileArray(f *os.File, shape *OrderedShape, dt Dtype, writable bool) *FileArray {
	return &FileArray{
		f: f,
		desc: Description{
			Shape:    shape,
			Dtype:    dt,
			Random:   true,
			Readable: true,
			Writable: writable,
		},
	}
}

func (fa *FileArray) Description() Description { return fa.desc }
func (fa *FileArray) MultipleAccess() bool     { return false }

// Name returns the file path
func (fa *FileArray) Name() string { return fa.f.Name() }

func (fa *FileArray) NewAccess() (AccessImpl, error) {
	if _, err := fa.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &fileAccess{arr: fa}, nil
}

func (fa *FileArray) Close() error {
	return fa.f.Close()
}

type fileAccess struct {
	arr *FileArray
}

func (a *fileAccess) SetOffset(off int64) error {
	_, err := a.arr.f.Seek(off*int64(a.arr.desc.Dtype.ByteSize), io.SeekStart)
	return err
}

func (a *fileAccess) Read(buf interface{}, start, size int) error {
	dt := a.arr.desc.Dtype
	raw := make([]byte, size*dt.ByteSize)
	if _, err := io.ReadFull(a.arr.f, raw); err != nil {
		return fmt.Errorf("reading %s: %w", a.arr.f.Name(), err)
	}
	return decodePixels(dt, raw, buf, start, size)
}

func (a *fileAccess) Write(buf interface{}, start, size int) error {
	raw, err := encodePixels(a.arr.desc.Dtype, buf, start, size)
	if err != nil {
		return err
	}
	if _, err := a.arr.f.Write(raw); err != nil {
		return fmt.Errorf("writing %s: %w", a.arr.f.Name(), err)
	}
	return nil
}

// Close flushes writes to disk. The file itself stays open until the
// FileArray is closed
func (a *fileAccess) Close() error {
	if !a.arr.desc.Writable {
		return nil
	}
	return a.arr.f.Sync()
}
