package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bagustris/nbtest/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	if flags.Changed("exclude") {
		v, err := flags.GetStringArray("exclude")
		if err != nil {
			return values, fmt.Errorf("parse --exclude: %w", err)
		}
		values.Excludes = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("only") {
		v, err := flags.GetStringArray("only")
		if err != nil {
			return values, fmt.Errorf("parse --only: %w", err)
		}
		values.Only = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip") {
		v, err := flags.GetStringArray("skip")
		if err != nil {
			return values, fmt.Errorf("parse --skip: %w", err)
		}
		values.Skip = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("no-execute") {
		v, err := flags.GetBool("no-execute")
		if err != nil {
			return values, fmt.Errorf("parse --no-execute: %w", err)
		}
		values.NoExecute = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("max-failures") {
		v, err := flags.GetInt("max-failures")
		if err != nil {
			return values, fmt.Errorf("parse --max-failures: %w", err)
		}
		if v < 0 {
			return values, fmt.Errorf("--max-failures must not be negative")
		}
		values.MaxFailures = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("results") {
		v, err := flags.GetString("results")
		if err != nil {
			return values, fmt.Errorf("parse --results: %w", err)
		}
		values.Results = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("failures-dir") {
		v, err := flags.GetString("failures-dir")
		if err != nil {
			return values, fmt.Errorf("parse --failures-dir: %w", err)
		}
		values.FailuresDir = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return values, fmt.Errorf("parse --timeout: %w", err)
		}
		if v <= 0 {
			return values, fmt.Errorf("--timeout must be positive")
		}
		values.Timeout = config.DurationFlag{Value: v, Set: true}
	}

	if flags.Changed("python") {
		v, err := flags.GetString("python")
		if err != nil {
			return values, fmt.Errorf("parse --python: %w", err)
		}
		values.Python = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("parallel") {
		v, err := flags.GetInt("parallel")
		if err != nil {
			return values, fmt.Errorf("parse --parallel: %w", err)
		}
		if v < 1 {
			return values, fmt.Errorf("--parallel must be at least 1")
		}
		values.Parallel = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return values, fmt.Errorf("parse --format: %w", err)
		}
		values.Format = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}

// loadConfig resolves the repository root from args and layers CLI flags
// over the file configuration.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return config.Config{}, "", fmt.Errorf("read root %q: %w", root, err)
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, abs, nil
}
