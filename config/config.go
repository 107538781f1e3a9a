// Package config is the engine's ambient configuration: concurrency
// widths, HTTP timeouts, and retry counts that the CLI layer resolves
// from a TOML file, then lets flags override (§5's "user-configurable at
// process start").
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Concurrency bounds the worker pools §5 calls out: a CPU-parallel pool
// for hashing/tree-walks and an I/O pool for downloads.
type Concurrency struct {
	// Hash bounds the local scanner's parallel hashing workers. Zero means
	// runtime.NumCPU().
	Hash int `toml:"hash"`
	// Downloads bounds the applier's concurrent download tasks. Zero means
	// runtime.NumCPU().
	Downloads int `toml:"downloads"`
}

// Config is the fully resolved, process-wide configuration.
type Config struct {
	Concurrency   Concurrency   `toml:"concurrency"`
	HTTPTimeout   time.Duration `toml:"-"`
	HTTPTimeoutMS int64         `toml:"http_timeout_ms"`
	RetryAttempts int           `toml:"retry_attempts"`
	Verbose       bool          `toml:"verbose"`
}

// Default returns the configuration used when no file and no flags
// override anything.
func Default() Config {
	return Config{
		HTTPTimeout:   30 * time.Second,
		HTTPTimeoutMS: 30000,
		RetryAttempts: 3,
	}
}

// Load reads path as TOML and merges it onto Default(). A missing file is
// not an error: it is equivalent to requesting all defaults, which keeps
// the CLI usable with zero configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %q: %w", path, err)
	}
	if cfg.HTTPTimeoutMS > 0 {
		cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutMS) * time.Millisecond
	}
	return cfg, nil
}

// Overrides carries the subset of Config a CLI invocation may override via
// flags. A zero value of a field means "don't override".
type Overrides struct {
	HashConcurrency     int
	DownloadConcurrency int
	HTTPTimeout         time.Duration
	RetryAttempts       int
	Verbose             *bool
}

// Apply merges non-zero fields of o onto cfg and returns the result.
func (cfg Config) Apply(o Overrides) Config {
	if o.HashConcurrency > 0 {
		cfg.Concurrency.Hash = o.HashConcurrency
	}
	if o.DownloadConcurrency > 0 {
		cfg.Concurrency.Downloads = o.DownloadConcurrency
	}
	if o.HTTPTimeout > 0 {
		cfg.HTTPTimeout = o.HTTPTimeout
	}
	if o.RetryAttempts > 0 {
		cfg.RetryAttempts = o.RetryAttempts
	}
	if o.Verbose != nil {
		cfg.Verbose = *o.Verbose
	}
	return cfg
}
