// Package config handles loading and saving user configuration for zhuyin.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3
)

// Config holds all user configuration for the engine and its host.
type Config struct {
	Data    Data    `yaml:"data" toml:"data"`
	Storage Storage `yaml:"storage" toml:"storage"`
	Engine  Engine  `yaml:"engine" toml:"engine"`
	Log     Log     `yaml:"log" toml:"log"`
}

// Data locates the JSON lexicon files.
type Data struct {
	Words   string `yaml:"words" toml:"words"`     // single character terms
	Phrases string `yaml:"phrases" toml:"phrases"` // multi-syllable terms
}

// Storage configures the indexed lexicon store.
type Storage struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Driver  string `yaml:"driver" toml:"driver"` // sqlite or sqlite3
	Path    string `yaml:"path" toml:"path"`
}

// Engine holds the input engine switches.
type Engine struct {
	// IncompleteMatching starts a new syllable whenever a symbol would land
	// at or before an occupied slot, so "ㄊㄅ" reads as two syllables.
	IncompleteMatching bool `yaml:"incomplete_matching" toml:"incomplete_matching"`

	// AutocompleteLastSyllable matches a toneless trailing syllable with any
	// tone instead of the first tone.
	AutocompleteLastSyllable bool `yaml:"autocomplete_last_syllable" toml:"autocomplete_last_syllable"`

	// AutoSuggest offers continuations of a selected candidate.
	AutoSuggest bool `yaml:"auto_suggest" toml:"auto_suggest"`

	BufferLimit   int      `yaml:"buffer_limit" toml:"buffer_limit"`
	MaxTermLength int      `yaml:"max_term_length" toml:"max_term_length"`
	CacheTimeout  Duration `yaml:"cache_timeout" toml:"cache_timeout"`
}

// Log configures diagnostic output.
type Log struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}

// Duration is a time.Duration written as "10s" in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Dir returns the default configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "zhuyin")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultEngine returns the engine defaults.
func DefaultEngine() Engine {
	return Engine{
		IncompleteMatching:       true,
		AutocompleteLastSyllable: true,
		AutoSuggest:              true,
		BufferLimit:              8,
		MaxTermLength:            8,
		CacheTimeout:             Duration(10 * time.Second),
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: Data{
			Words:   filepath.Join("data", "words.json"),
			Phrases: filepath.Join("data", "phrases.json"),
		},
		Storage: Storage{
			Enabled: true,
			Driver:  DriverSQLite,
			Path:    filepath.Join(Dir(), "lexicon.db"),
		},
		Engine: DefaultEngine(),
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// isTOML reports whether a path names a TOML file.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a configuration file over the defaults. The format follows the
// extension: .toml is TOML, anything else YAML. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.expand()
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	var (
		out []byte
		err error
	)
	if isTOML(path) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		out = buf.Bytes()
	} else {
		out, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.BufferLimit < 2 {
		errs = append(errs, fmt.Errorf("engine.buffer_limit must be at least 2, got %d", c.Engine.BufferLimit))
	}
	if c.Engine.MaxTermLength < 1 {
		errs = append(errs, fmt.Errorf("engine.max_term_length must be at least 1, got %d", c.Engine.MaxTermLength))
	}
	if c.Engine.CacheTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.cache_timeout must not be negative"))
	}
	if c.Storage.Enabled {
		switch c.Storage.Driver {
		case DriverSQLite, DriverSQLite3:
		default:
			errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
		}
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required when storage is enabled"))
		}
	}
	if c.Data.Words == "" && c.Data.Phrases == "" && !c.Storage.Enabled {
		errs = append(errs, errors.New("no lexicon source configured"))
	}
	return errors.Join(errs...)
}

// DataPaths returns the configured lexicon files, skipping empty entries.
func (c *Config) DataPaths() []string {
	var paths []string
	for _, p := range []string{c.Data.Words, c.Data.Phrases} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// SetDataDir points both lexicon files into dir.
func (c *Config) SetDataDir(dir string) {
	c.Data.Words = filepath.Join(ExpandPath(dir), "words.json")
	c.Data.Phrases = filepath.Join(ExpandPath(dir), "phrases.json")
}

// expand resolves "~" in every path.
func (c *Config) expand() {
	c.Data.Words = ExpandPath(c.Data.Words)
	c.Data.Phrases = ExpandPath(c.Data.Phrases)
	c.Storage.Path = ExpandPath(c.Storage.Path)
}

// ExpandPath replaces a leading "~" with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
