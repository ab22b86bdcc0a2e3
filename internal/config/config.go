// Package config loads sgindex settings from a TOML file, an optional .env
// file and SGINDEX_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/Benny93/sgindex/internal/mining"
)

// FileName is the config file looked up in the working directory.
const FileName = "sgindex.toml"

// DefaultIndexDir is where the persistent index lives, relative to the
// working directory.
const DefaultIndexDir = ".sgindex"

// MiningConfig controls feature selection.
type MiningConfig struct {
	TopK       int `toml:"top_k"`
	MinSupport int `toml:"min_support"`
}

// MatchingConfig controls matrix building and candidate filtering.
type MatchingConfig struct {
	Workers int `toml:"workers"`
}

// LoggingConfig sets the diagnostic log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// IndexConfig locates the persistent index.
type IndexConfig struct {
	Dir string `toml:"dir"`
}

// Config is the sgindex configuration file, sgindex.toml.
type Config struct {
	Mining   MiningConfig   `toml:"mining"`
	Matching MatchingConfig `toml:"matching"`
	Logging  LoggingConfig  `toml:"logging"`
	Index    IndexConfig    `toml:"index"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mining: MiningConfig{
			TopK:       mining.DefaultTopK,
			MinSupport: mining.DefaultMinSupport,
		},
		Matching: MatchingConfig{Workers: runtime.NumCPU()},
		Logging:  LoggingConfig{Level: "info"},
		Index:    IndexConfig{Dir: DefaultIndexDir},
	}
}

// Load reads path over the defaults. An empty path loads FileName when it
// exists and the defaults otherwise. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML '%s': %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from SGINDEX_TOP_K, SGINDEX_MIN_SUPPORT,
// SGINDEX_WORKERS, SGINDEX_LOG_LEVEL and SGINDEX_INDEX_DIR.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"SGINDEX_TOP_K", &c.Mining.TopK},
		{"SGINDEX_MIN_SUPPORT", &c.Mining.MinSupport},
		{"SGINDEX_WORKERS", &c.Matching.Workers},
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", e.key, v, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("SGINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SGINDEX_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.MiningOptions().Validate(); err != nil {
		return fmt.Errorf("invalid mining config: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", c.Logging.Level, err)
	}
	if c.Index.Dir == "" {
		return errors.New("index dir must not be empty")
	}
	return nil
}

// MiningOptions returns the mining options described by the config.
func (c *Config) MiningOptions() mining.Options {
	return mining.Options{
		TopK:       c.Mining.TopK,
		MinSupport: c.Mining.MinSupport,
		Workers:    c.Matching.Workers,
	}
}

// CreateLogger creates a console zerolog logger at the configured level.
func (c *Config) CreateLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "sgindex").Logger()
}
