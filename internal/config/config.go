// Package config provides configuration management for mdbook-dice using
// Viper for loading from files, environment variables and flags.
//
// Configuration sources, highest priority first:
//
//  1. Command-line flags bound into viper
//  2. MDBOOK_DICE_* environment variables (MDBOOK_DICE_CLASSES_PLAIN, ...)
//  3. A .mdbook-dice.yml file, or the file named by MDBOOK_DICE_CONFIG_FILE
//  4. Defaults
//
// When running as a preprocessor the book's own [preprocessor.dice] table
// is layered on top with WithBookTable.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/mdbook-dice/internal/logging"
	"github.com/conneroisu/mdbook-dice/internal/notation"
)

// EnvPrefix is the prefix of every environment variable read by viper.
const EnvPrefix = "MDBOOK_DICE"

type Config struct {
	Classes notation.Classes `yaml:"classes" mapstructure:"classes"`
	Log     LogConfig        `yaml:"log" mapstructure:"log"`
	Scan    ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Watch   WatchConfig      `yaml:"watch" mapstructure:"watch"`
}

// LogConfig selects the diagnostic output. A host version mismatch is
// reported at warn level even when Level is "error".
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type ScanConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	Exclude    []string `yaml:"exclude" mapstructure:"exclude"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Classes: notation.DefaultClasses(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scan: ScanConfig{
			Extensions: []string{".md", ".markdown"},
			Exclude:    []string{"book", "node_modules", ".git"},
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// SetDefaults registers Default() with viper so that environment variables
// for unset keys are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("classes.plain", d.Classes.Plain)
	v.SetDefault("classes.advantage", d.Classes.Advantage)
	v.SetDefault("classes.disadvantage", d.Classes.Disadvantage)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.exclude", d.Scan.Exclude)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via env as a single comma separated string
	if v.IsSet("scan.extensions") {
		config.Scan.Extensions = splitList(v.GetStringSlice("scan.extensions"))
	}
	if v.IsSet("scan.exclude") {
		config.Scan.Exclude = splitList(v.GetStringSlice("scan.exclude"))
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// WithBookTable returns a copy of c with the class names from the book's
// [preprocessor.dice] table applied. Other keys in the table, such as
// command or renderers, belong to mdBook and are ignored.
func (c *Config) WithBookTable(table map[string]interface{}) (*Config, error) {
	merged := *c
	if len(table) == 0 {
		return &merged, nil
	}

	v := viper.New()
	if err := v.MergeConfigMap(table); err != nil {
		return nil, fmt.Errorf("reading [preprocessor.dice]: %w", err)
	}

	if v.IsSet("classes.plain") {
		merged.Classes.Plain = v.GetString("classes.plain")
	}
	if v.IsSet("classes.advantage") {
		merged.Classes.Advantage = v.GetString("classes.advantage")
	}
	if v.IsSet("classes.disadvantage") {
		merged.Classes.Disadvantage = v.GetString("classes.disadvantage")
	}

	if err := merged.Classes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [preprocessor.dice] classes: %w", err)
	}
	return &merged, nil
}

// LoggerConfig converts the log section into a logger configuration.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format
	return cfg, nil
}

// IsMarkdown reports whether path has one of the configured extensions.
func (c *Config) IsMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range c.Scan.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether any element of path is an excluded directory.
func (c *Config) IsExcluded(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		for _, ex := range c.Scan.Exclude {
			if part == ex {
				return true
			}
		}
	}
	return false
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if err := config.Classes.Validate(); err != nil {
		return fmt.Errorf("classes: %w", err)
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: unsupported format %q (expected text or json)", config.Log.Format)
	}

	if len(config.Scan.Extensions) == 0 {
		return fmt.Errorf("scan: at least one extension is required")
	}
	for _, ext := range config.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("scan: extension %q must start with a dot", ext)
		}
	}
	for _, ex := range config.Scan.Exclude {
		if ex == "" || strings.ContainsAny(ex, `/\`) {
			return fmt.Errorf("scan: exclude entry %q must be a single directory name", ex)
		}
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch: debounce cannot be negative")
	}

	return nil
}

// splitList flattens entries such as "a,b" into separate trimmed values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
