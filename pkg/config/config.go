// Package config loads edgarsgml settings from YAML.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/edgarsgml/pkg/source"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatSGML = "sgml"
)

// Config holds conversion settings.
type Config struct {
	// OutputDir receives converted files and the manifest.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Format is json, yaml or sgml.
	Format string `yaml:"format" json:"format"`

	// Encoding is the input character encoding label; empty means UTF-8.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`

	// Workers bounds concurrent conversions.
	Workers int `yaml:"workers" json:"workers"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Force reconverts inputs the manifest reports as unchanged.
	Force bool `yaml:"force,omitempty" json:"force,omitempty"`

	Watch WatchConfig `yaml:"watch" json:"watch"`
}

// WatchConfig configures directory watching.
type WatchConfig struct {
	Dir        string   `yaml:"dir" json:"dir"`
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Settle is how long a file must go unwritten before it is converted.
	// Zero converts on every event.
	Settle time.Duration `yaml:"settle" json:"settle"`
}

// DefaultSettle is the default watch.settle.
const DefaultSettle = 500 * time.Millisecond

// DefaultExtensions are the file suffixes treated as filings.
var DefaultExtensions = []string{".txt", ".nc"}

// Default returns the built-in configuration.
func Default() *Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &Config{
		OutputDir: "out",
		Format:    FormatJSON,
		Workers:   workers,
		LogLevel:  "info",
		Watch: WatchConfig{
			Extensions: append([]string(nil), DefaultExtensions...),
			Settle:     DefaultSettle,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values and normalizes case and extensions.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case FormatJSON, FormatYAML, FormatSGML:
	default:
		return fmt.Errorf("format: unsupported value %q (want json, yaml or sgml)", c.Format)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir: required field is missing")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers: must be at least 1 (got: %d)", c.Workers)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}

	if _, err := source.Lookup(c.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if c.Watch.Settle < 0 {
		return fmt.Errorf("watch.settle: must not be negative (got: %s)", c.Watch.Settle)
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range c.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			return fmt.Errorf("watch.extensions[%d]: empty extension", i)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Watch.Extensions[i] = ext
	}
	return nil
}
