// Package config loads run settings from defaults, an optional minimize.yaml,
// MINIMIZE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/leeovery/minimize/internal/dedup"
)

// FileName is the config file looked up in the working directory (any viper-supported extension).
const FileName = "minimize"

// EnvPrefix prefixes environment overrides, e.g. MINIMIZE_STORE=sqlite.
const EnvPrefix = "MINIMIZE"

// Config is the merged run configuration.
type Config struct {
	Files             []string      `mapstructure:"files"`
	All               bool          `mapstructure:"all"`
	Fields            []string      `mapstructure:"fields"`
	Delimiter         string        `mapstructure:"delimiter"`
	OutputDelimiter   string        `mapstructure:"output_delimiter"`
	Extensions        []string      `mapstructure:"extensions"`
	Store             string        `mapstructure:"store"`
	NoInput           bool          `mapstructure:"no_input"`
	AllowMixedHeaders bool          `mapstructure:"allow_mixed_headers"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`
	MaxLineBytes      int           `mapstructure:"max_line_bytes"`
	Logger            LoggerConfig  `mapstructure:"logger"`

	// Set by Validate from the string fields above.
	InputDelim  byte        `mapstructure:"-"`
	OutputDelim rune        `mapstructure:"-"`
	StoreKind   dedup.Store `mapstructure:"-"`
}

// LoggerConfig selects the zap level and encoder.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so env and file values bind.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("files", []string{})
	v.SetDefault("all", false)
	v.SetDefault("fields", []string{})
	v.SetDefault("delimiter", "\t")
	v.SetDefault("output_delimiter", ",")
	v.SetDefault("extensions", []string{".csv", ".txt"})
	v.SetDefault("store", string(dedup.StoreMemory))
	v.SetDefault("no_input", false)
	v.SetDefault("allow_mixed_headers", false)
	v.SetDefault("lock_timeout", 5*time.Second)
	v.SetDefault("max_line_bytes", 16<<20)
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
}

// Load reads configuration into v and returns the validated result. When
// configFile is empty, minimize.* in workDir is used if present.
func Load(v *viper.Viper, workDir, configFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(workDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run and
// stores the parsed delimiters and store kind on c.
func (c *Config) Validate() error {
	var err error
	if c.InputDelim, err = c.InputDelimiter(); err != nil {
		return err
	}
	if c.OutputDelim, err = c.OutputRune(); err != nil {
		return err
	}
	if c.StoreKind, err = dedup.ParseStore(c.Store); err != nil {
		return err
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with '.'", ext)
		}
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("max_line_bytes must be positive, got %d", c.MaxLineBytes)
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}

// InputDelimiter returns the single-byte input delimiter.
func (c Config) InputDelimiter() (byte, error) {
	s := unescape(c.Delimiter)
	if len(s) != 1 || s[0] >= utf8.RuneSelf {
		return 0, fmt.Errorf("delimiter must be a single ASCII character, got %q", c.Delimiter)
	}
	if s[0] == '\n' || s[0] == '\r' {
		return 0, fmt.Errorf("delimiter cannot be a line terminator")
	}
	return s[0], nil
}

// OutputRune returns the output field separator.
func (c Config) OutputRune() (rune, error) {
	s := unescape(c.OutputDelimiter)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("output_delimiter must be a single character, got %q", c.OutputDelimiter)
	}
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("output_delimiter cannot be %q", r)
	}
	return r, nil
}

// unescape accepts names and backslash escapes for delimiters that are awkward on a command line.
func unescape(s string) string {
	switch strings.ToLower(s) {
	case `\t`, "tab":
		return "\t"
	case "comma":
		return ","
	case "pipe":
		return "|"
	case "semicolon":
		return ";"
	case "space":
		return " "
	}
	return s
}
