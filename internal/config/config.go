// Package config loads the wiregram CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Env names the environment variable holding the default config path.
const Env = "WIREGRAM_CONFIG"

// Config is the resolved CLI configuration.
type Config struct {
	// SchemaPaths are directories searched for schema documents.
	SchemaPaths []string
	// Entry overrides the schema entry point.
	Entry    string
	Annotate bool
	LogLevel slog.Level
	// ChunkSize is the read size used by the stream command.
	ChunkSize int
	// Listen is the serve command's address.
	Listen      string
	CORSOrigins []string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel:    slog.LevelWarn,
		ChunkSize:   4096,
		Listen:      "127.0.0.1:8080",
		CORSOrigins: []string{"*"},
	}
}

// config.toml key mapping to Config.
type fileConfig struct {
	SchemaPaths []string `toml:"schema_paths"`
	Entry       string   `toml:"entry"`
	Annotate    bool     `toml:"annotate"`
	LogLevel    string   `toml:"log_level"`
	ChunkSize   int      `toml:"chunk_size"`
	Listen      string   `toml:"listen"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Load reads path over the defaults. An empty path falls back to $WIREGRAM_CONFIG;
// when that is unset too, the defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(Env)
	}
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("schema_paths") {
		cfg.SchemaPaths = trimAll(raw.SchemaPaths)
	}
	if meta.IsDefined("entry") {
		cfg.Entry = strings.TrimSpace(raw.Entry)
	}
	if meta.IsDefined("annotate") {
		cfg.Annotate = raw.Annotate
	}
	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("load config: log_level: %w", err)
		}
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = trimAll(raw.CORSOrigins)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	for _, p := range c.SchemaPaths {
		if p == "" {
			errs = append(errs, errors.New("schema_paths contains an empty entry"))
			break
		}
	}
	return errors.Join(errs...)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
