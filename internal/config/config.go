// Package config handles ncd.toml project configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "ncd.toml"

// Config represents an ncd.toml project configuration.
type Config struct {
	Log     Log     `toml:"log"`
	Run     Run     `toml:"run"`
	Journal Journal `toml:"journal"`

	// Dir is the directory containing the ncd.toml file (set at load time).
	Dir string `toml:"-"`
}

// Log configures diagnostics.
type Log struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Run configures interpreter runs.
type Run struct {
	// Program is the CUE package directory, relative to Dir.
	Program string `toml:"program"`
	// Entry lists the processes to start; empty means all.
	Entry []string `toml:"entry"`
	// MaxCycles bounds back-to-back DownUp cycles per statement; 0 is unlimited.
	MaxCycles int `toml:"max-cycles"`
}

// Journal configures the run journal.
type Journal struct {
	// Path is the sqlite file, relative to Dir. Empty disables journaling.
	Path string `toml:"path"`
}

// Default returns the configuration used when no ncd.toml exists.
func Default() *Config {
	c := &Config{Dir: "."}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Run.Program == "" {
		c.Run.Program = "."
	}
}

// Load parses an ncd.toml file from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find an ncd.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	if c.Run.MaxCycles < 0 {
		return fmt.Errorf("run.max-cycles must be >= 0, got %d", c.Run.MaxCycles)
	}
	return nil
}

// ProgramDir returns the absolute CUE package directory.
func (c *Config) ProgramDir() string {
	return c.resolve(c.Run.Program)
}

// JournalPath returns the absolute journal path, or "" if journaling is off.
func (c *Config) JournalPath() string {
	if c.Journal.Path == "" {
		return ""
	}
	return c.resolve(c.Journal.Path)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}

// NewLogger builds the logger described by the [log] section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
