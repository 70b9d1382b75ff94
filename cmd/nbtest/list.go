package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bagustris/nbtest/internal/config"
	"github.com/bagustris/nbtest/internal/notebook"
	"github.com/bagustris/nbtest/internal/output"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List discovered notebooks and their validation state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	paths, err := discoverNotebooks(cmd, root, cfg)
	if err != nil || paths == nil {
		return err
	}

	entries := make([]output.ListEntry, 0, len(paths))
	for _, path := range paths {
		doc, validation, detail := notebook.Validate(root, path)
		entries = append(entries, output.ListEntry{
			Path:       path,
			Format:     doc.Format,
			Cells:      doc.Cells,
			Validation: validation,
			Detail:     detail,
		})
	}

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderList(entries)
	case config.FormatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
