package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bagustris/nbtest/internal/discovery"
)

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// DefaultTimeout bounds one notebook's total execution.
	DefaultTimeout = 10 * time.Minute
)

// Config captures harness options sourced from the config file or flags.
type Config struct {
	Excludes    []string      `yaml:"exclude"`
	Only        []string      `yaml:"only"`
	Skip        []string      `yaml:"skip"`
	Python      string        `yaml:"python"`
	Results     string        `yaml:"results"`
	FailuresDir string        `yaml:"failures_dir"`
	NoExecute   bool          `yaml:"no_execute"`
	MaxFailures int           `yaml:"max_failures"`
	Parallel    int           `yaml:"parallel"`
	Format      string        `yaml:"format"`
	Verbose     bool          `yaml:"verbose"`
	Timeout     time.Duration `yaml:"-"`
}

// fileConfig mirrors Config for YAML decoding; timeout is a duration
// string there ("90s", "5m").
type fileConfig struct {
	Config  `yaml:",inline"`
	Timeout string `yaml:"timeout"`
}

// Default returns the baseline configuration used when neither flags nor
// the config file specify values.
func Default() Config {
	return Config{
		Excludes: discovery.DefaultExcludes(),
		Python:   "python3",
		Format:   FormatPretty,
		Timeout:  DefaultTimeout,
		Parallel: 1,
	}
}

// Load reads .nbtest.yml from the repository root when present. Missing
// files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, ".nbtest.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("parse config %q: timeout: %w", path, err)
		}
		fc.Config.Timeout = d
	}

	return merge(cfg, fc.Config), nil
}

func merge(base, override Config) Config {
	out := base

	if len(override.Excludes) > 0 {
		out.Excludes = append([]string{}, override.Excludes...)
	}
	if len(override.Only) > 0 {
		out.Only = append([]string{}, override.Only...)
	}
	if len(override.Skip) > 0 {
		out.Skip = append([]string{}, override.Skip...)
	}
	if override.Python != "" {
		out.Python = override.Python
	}
	if override.Results != "" {
		out.Results = override.Results
	}
	if override.FailuresDir != "" {
		out.FailuresDir = override.FailuresDir
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.Timeout > 0 {
		out.Timeout = override.Timeout
	}
	if override.MaxFailures > 0 {
		out.MaxFailures = override.MaxFailures
	}
	if override.Parallel > 0 {
		out.Parallel = override.Parallel
	}
	if override.NoExecute {
		out.NoExecute = true
	}
	if override.Verbose {
		out.Verbose = true
	}

	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they were
// set explicitly.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if len(flags.Excludes.Values) > 0 {
		cfg.Excludes = append([]string{}, flags.Excludes.Values...)
	}
	if len(flags.Only.Values) > 0 {
		cfg.Only = append([]string{}, flags.Only.Values...)
	}
	if len(flags.Skip.Values) > 0 {
		cfg.Skip = append([]string{}, flags.Skip.Values...)
	}
	if flags.Python.Set {
		cfg.Python = flags.Python.Value
	}
	if flags.Results.Set {
		cfg.Results = flags.Results.Value
	}
	if flags.FailuresDir.Set {
		cfg.FailuresDir = flags.FailuresDir.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.Timeout.Set {
		cfg.Timeout = flags.Timeout.Value
	}
	if flags.MaxFailures.Set {
		cfg.MaxFailures = flags.MaxFailures.Value
	}
	if flags.Parallel.Set {
		cfg.Parallel = flags.Parallel.Value
	}
	if flags.NoExecute.Set {
		cfg.NoExecute = flags.NoExecute.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag
// was set explicitly.
type FlagValues struct {
	Excludes    SliceFlag
	Only        SliceFlag
	Skip        SliceFlag
	Python      StringFlag
	Results     StringFlag
	FailuresDir StringFlag
	Format      StringFlag
	Timeout     DurationFlag
	MaxFailures IntFlag
	Parallel    IntFlag
	NoExecute   BoolFlag
	Verbose     BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// DurationFlag represents a duration flag and whether it was set.
type DurationFlag struct {
	Value time.Duration
	Set   bool
}
