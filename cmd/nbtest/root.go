package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nbtest [dir]",
		Short:         "Nbtest validates and executes Jupyter notebooks",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runRun,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringArray("exclude", nil, "directory name to skip during discovery (repeatable)")
	persistent.StringArray("only", nil, "include only notebooks matching pattern (repeatable)")
	persistent.StringArray("skip", nil, "exclude notebooks matching pattern (repeatable)")
	persistent.Bool("no-execute", false, "check structure only, do not run code cells")
	persistent.Int("max-failures", 0, "stop after this many failing notebooks (0 = no limit)")
	persistent.String("results", "", "write the full run report to this file")
	persistent.String("failures-dir", "", "write one error file per failing notebook into this directory")
	persistent.Duration("timeout", 0, "per-notebook execution timeout")
	persistent.String("python", "", "python interpreter to execute notebooks with")
	persistent.Int("parallel", 0, "number of notebooks to execute concurrently")
	persistent.String("format", "pretty", "output format (pretty|json)")
	persistent.BoolP("verbose", "v", false, "stream interpreter output and debug logs")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
