// Package config loads the settings of a compiler run.
//
// Settings are layered: defaults, then an optional YAML file, then
// environment variables prefixed with TZC_, then command line flags,
// which the commands apply themselves.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ngrash/go-zoneinfo/internal/logger"
	"github.com/ngrash/go-zoneinfo/internal/tzir"
	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

// EnvPrefix is the prefix of all environment variables read by Load.
const EnvPrefix = "TZC_"

// Store backends.
const (
	StoreDir    = "dir"
	StorePebble = "pebble"
)

// Config holds the settings of a compiler run.
type Config struct {
	// Source is a directory with tzdb data files.
	Source string `yaml:"source" env:"SOURCE"`
	// Archive is a tzdata tar.gz to read instead of Source.
	Archive string `yaml:"archive" env:"ARCHIVE"`
	// Destination is the directory or database the artifacts are written to.
	// Without one zones are compiled and validated only.
	Destination string `yaml:"destination" env:"DESTINATION"`
	// Store is the backend at Destination, dir or pebble.
	Store string `yaml:"store" env:"STORE"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	WindowFrom     int  `yaml:"window_from" env:"WINDOW_FROM"`
	WindowTo       int  `yaml:"window_to" env:"WINDOW_TO"`
	SkipValidation bool `yaml:"skip_validation" env:"SKIP_VALIDATION"`
	HorizonYear    int  `yaml:"horizon_year" env:"HORIZON_YEAR"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Source:      ".",
		Store:       StoreDir,
		LogLevel:    "info",
		LogFormat:   "text",
		WindowFrom:  zoneinfo.DefaultWindow.FromYear,
		WindowTo:    zoneinfo.DefaultWindow.ToYear,
		HorizonYear: tzir.DefaultHorizonYear,
	}
}

// Load returns the defaults overridden by the YAML file at path, if path is
// not empty, and then by environ. A nil environ means the process environment.
func Load(fsys afero.Fs, path string, environ map[string]string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := afero.ReadFile(fsys, path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return c, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}

// Validate checks that the settings can be used for a run.
func (c Config) Validate() error {
	var errs error
	if c.Store != StoreDir && c.Store != StorePebble {
		errs = errors.Join(errs, fmt.Errorf("store %q: want %s or %s", c.Store, StoreDir, StorePebble))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = errors.Join(errs, fmt.Errorf("log level %q: %w", c.LogLevel, err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = errors.Join(errs, fmt.Errorf("log format %q: %w", c.LogFormat, logger.ErrInvalidLogFormat))
	}
	if c.WindowFrom >= c.WindowTo {
		errs = errors.Join(errs, fmt.Errorf("validation window %d..%d is empty", c.WindowFrom, c.WindowTo))
	}
	if c.HorizonYear < 0 {
		errs = errors.Join(errs, fmt.Errorf("horizon year %d is negative", c.HorizonYear))
	}
	return errs
}

// Window returns the validation window.
func (c Config) Window() zoneinfo.Window {
	return zoneinfo.Window{FromYear: c.WindowFrom, ToYear: c.WindowTo}
}

// BuildOptions returns the options for assembling zones.
func (c Config) BuildOptions() tzir.Options {
	return tzir.Options{HorizonYear: c.HorizonYear}
}
