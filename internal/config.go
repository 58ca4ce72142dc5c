package internal

import (
	"log/slog"
	"runtime"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Rules   RulesConfig       `yaml:"rules"`
	Cache   CacheConfig       `yaml:"cache"`
	Scan    ScanConfig        `yaml:"scan"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Scan.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// LibraryConfig locates the managed scenery library.
type LibraryConfig struct {
	// OrderFile is the declared load-order file.
	OrderFile string `yaml:"order_file"`
	// Root is the directory holding one folder per pack.
	Root string `yaml:"root"`
	// Backups is how many prior order-file versions to keep.
	Backups int `yaml:"backups"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OrderFile, validation.Required),
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Backups, validation.Min(0), validation.Max(20)),
	)
}

// RulesConfig holds the path to the user's rule table. An empty path
// means the built-in defaults.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds the deep-scan cache database path.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ScanConfig bounds the deep-scan worker pool.
type ScanConfig struct {
	// Workers is the pool size; zero means one per CPU.
	Workers int `yaml:"workers"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(4*runtime.NumCPU())),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Library: LibraryConfig{
			Backups: 3,
		},
		Cache: CacheConfig{
			Path: "./raido.db",
		},
	}
}
