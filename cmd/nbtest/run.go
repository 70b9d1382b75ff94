package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bagustris/nbtest/internal/config"
	"github.com/bagustris/nbtest/internal/discovery"
	"github.com/bagustris/nbtest/internal/filter"
	"github.com/bagustris/nbtest/internal/output"
	"github.com/bagustris/nbtest/internal/report"
	"github.com/bagustris/nbtest/internal/runner"
	"github.com/bagustris/nbtest/internal/version"
)

// errChecksFailed signals that at least one notebook did not pass. It maps
// to exit code 1, distinct from harness setup failures.
var errChecksFailed = errors.New("one or more notebooks failed")

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [dir]",
		Short: "Validate and execute all notebooks under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg)

	paths, err := discoverNotebooks(cmd, root, cfg)
	if err != nil || paths == nil {
		return err
	}

	opts := runner.Options{
		Root:        root,
		Python:      cfg.Python,
		Timeout:     cfg.Timeout,
		MaxFailures: cfg.MaxFailures,
		Parallel:    cfg.Parallel,
		NoExecute:   cfg.NoExecute,
		FailuresDir: cfg.FailuresDir,
		Verbose:     cfg.Verbose,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Log:         log,
	}

	var progress func(report.Result)
	pretty := output.NewPretty(cmd.OutOrStdout())
	if strings.ToLower(cfg.Format) == config.FormatPretty {
		progress = func(res report.Result) {
			if err := pretty.RenderResult(res); err != nil {
				log.WithError(err).Warn("render result")
			}
		}
	}

	start := time.Now()
	results := runner.New(opts).Run(paths, progress)

	rep := report.New(root)
	if !cfg.NoExecute {
		if info, detectErr := version.DetectPython(cfg.Python); detectErr == nil {
			rep.Python = info.Version
		}
	}
	for _, res := range results {
		rep.Append(res)
	}
	rep.Finalize(time.Since(start))

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		if err := pretty.RenderSummary(rep); err != nil {
			return err
		}
	case config.FormatJSON:
		if err := output.NewJSON(cmd.OutOrStdout()).Render(rep); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if cfg.Results != "" {
		if err := output.WriteFile(cfg.Results, rep); err != nil {
			return err
		}
		log.WithField("path", cfg.Results).Debug("wrote results file")
	}

	if rep.Summary.Failed > 0 {
		return errChecksFailed
	}
	return nil
}

// discoverNotebooks returns matching notebook paths, or (nil, nil) when
// there is nothing to do.
func discoverNotebooks(cmd *cobra.Command, root string, cfg config.Config) ([]string, error) {
	paths, err := discovery.Notebooks(root, cfg.Excludes)
	if err != nil {
		if errors.Is(err, discovery.ErrNoNotebooks) {
			fmt.Fprintln(cmd.OutOrStdout(), "No notebooks found")
			return nil, nil
		}
		return nil, err
	}

	only, err := filter.Compile(cfg.Only)
	if err != nil {
		return nil, err
	}
	skip, err := filter.Compile(cfg.Skip)
	if err != nil {
		return nil, err
	}
	paths = filter.Paths(paths, only, skip)
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notebooks match the given filters")
		return nil, nil
	}
	return paths, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logrus.WarnLevel)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
