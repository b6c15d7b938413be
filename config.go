package ndarray

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config holds process-wide settings, usually loaded from a YAML file:
//
//	chunkSize: 16384
//	logLevel: info
//	store:
//	  type: local
//	  path: ./data
type Config struct {
	ChunkSize int         `yaml:"chunkSize"`
	LogLevel  string      `yaml:"logLevel"`
	Store     StoreConfig `yaml:"store"`
}

// StoreConfig selects the key/value store chunked arrays live in. The root
// package opens "memory" and "local" stores; other types are opened by
// callers that link their drivers
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

const (
	StoreTypeMemory = "memory"
	StoreTypeLocal  = "local"
	StoreTypeBadger = "badger"
	StoreTypeBolt   = "bolt"
)

func DefaultConfig() *Config {
	return &Config{
		ChunkSize: 16384,
		LogLevel:  "info",
		Store: StoreConfig{
			Type: StoreTypeMemory,
		},
	}
}

// LoadConfig reads a YAML config file. Fields the file leaves out keep their
// defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %s", ErrInvalidArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunkSize must be positive, have %d", ErrInvalidArgument, c.ChunkSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	switch c.Store.Type {
	case StoreTypeMemory:
	case StoreTypeLocal, StoreTypeBadger, StoreTypeBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: %s store needs a path", ErrInvalidArgument, c.Store.Type)
		}
	default:
		return fmt.Errorf("%w: store type %q", ErrInvalidArgument, c.Store.Type)
	}
	return nil
}

// Apply installs the config's process-wide settings: the default chunk size
// and the package log level
func (c *Config) Apply() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := SetDefaultChunkSize(c.ChunkSize); err != nil {
		return err
	}
	lvl, _ := logrus.ParseLevel(c.LogLevel)
	log.SetLevel(lvl)
	return nil
}

// OpenStore opens memory and local stores
func (c StoreConfig) OpenStore() (Store, error) {
	switch c.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeLocal:
		return NewLocalStore(c.Path)
	default:
		return nil, fmt.Errorf("%w: store type %q needs its driver package", ErrUnsupported, c.Type)
	}
}

func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<invalid config: %s>", err)
	}
	return string(data)
}
