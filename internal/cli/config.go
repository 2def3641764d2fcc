package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	orizonerrors "github.com/orizon-lang/wfcheck/internal/errors"
	"github.com/orizon-lang/wfcheck/internal/features"
)

// DefaultRecursionLimit bounds autoderef and solver depth.
const DefaultRecursionLimit = 64

// Config represents common configuration options. Both YAML and JSON
// files are accepted.
type Config struct {
	Verbose         bool     `yaml:"verbose"`
	Debug           bool     `yaml:"debug"`
	Jobs            int      `yaml:"jobs"`
	LanguageVersion string   `yaml:"language_version"`
	Features        []string `yaml:"features"`
	Color           string   `yaml:"color"`
	Format          string   `yaml:"format"`
	MaxErrors       int      `yaml:"max_errors"`
	RecursionLimit  int      `yaml:"recursion_limit"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LanguageVersion: features.DefaultLanguageVersion,
		Color:           string(diagnostic.ColorAuto),
		Format:          string(diagnostic.FormatText),
		RecursionLimit:  DefaultRecursionLimit,
	}
}

// LoadConfig loads configuration from file. An empty path yields the
// defaults.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()
	if configFile == "" {
		return config, nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, orizonerrors.NewStandardError(orizonerrors.CategoryConfig, "CONFIG_READ",
			"failed to read config file", map[string]interface{}{"file": configFile}).Wrap(err)
	}

	if err := ParseConfig(data, config); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}

	return config, nil
}

// ParseConfig decodes data over config and validates the result.
func ParseConfig(data []byte, config *Config) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		return orizonerrors.NewStandardError(orizonerrors.CategoryConfig, "CONFIG_PARSE",
			"failed to parse config", nil).Wrap(err)
	}

	return config.Validate()
}

// Validate checks every field and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.LanguageVersion == "" {
		c.LanguageVersion = features.DefaultLanguageVersion
	}
	if c.RecursionLimit == 0 {
		c.RecursionLimit = DefaultRecursionLimit
	}
	if c.Color == "" {
		c.Color = string(diagnostic.ColorAuto)
	}
	if c.Format == "" {
		c.Format = string(diagnostic.FormatText)
	}

	switch diagnostic.ColorMode(c.Color) {
	case diagnostic.ColorAuto, diagnostic.ColorAlways, diagnostic.ColorNever:
	default:
		return orizonerrors.InvalidConfig("color", c.Color, "expected auto, always or never")
	}
	switch diagnostic.Format(c.Format) {
	case diagnostic.FormatText, diagnostic.FormatJSON:
	default:
		return orizonerrors.InvalidConfig("format", c.Format, "expected text or json")
	}
	if c.Jobs < 0 {
		return orizonerrors.InvalidConfig("jobs", c.Jobs, "must not be negative")
	}
	if c.MaxErrors < 0 {
		return orizonerrors.InvalidConfig("max_errors", c.MaxErrors, "must not be negative")
	}
	if c.RecursionLimit < 0 {
		return orizonerrors.InvalidConfig("recursion_limit", c.RecursionLimit, "must not be negative")
	}
	if _, err := c.FeatureSet(); err != nil {
		return orizonerrors.InvalidConfig("features", c.Features, err.Error())
	}

	return nil
}

// FeatureSet resolves the configured language version and feature names.
func (c *Config) FeatureSet() (*features.Set, error) {
	return features.New(c.LanguageVersion, c.Features...)
}
