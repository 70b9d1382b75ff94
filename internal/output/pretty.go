package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bagustris/nbtest/internal/notebook"
	"github.com/bagustris/nbtest/internal/report"
)

// PrettyRenderer renders results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderResult prints a one-line status for a completed notebook, with
// enough detail to locate the failure without re-running.
func (p *PrettyRenderer) RenderResult(res report.Result) error {
	glyph := statusGlyph(res)
	line := fmt.Sprintf("%s %s (%s)", glyph, res.Path, formatDuration(res.Duration))
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return err
	}

	if res.Passed() || res.Skipped() {
		return nil
	}

	label := string(res.Validation)
	if res.Execution != "" {
		label = string(res.Execution)
	}
	if res.FailedCell > 0 {
		label = fmt.Sprintf("%s at cell %d", label, res.FailedCell)
	}
	if res.Detail != "" {
		label = fmt.Sprintf("%s: %s", label, firstLine(res.Detail))
	}
	_, err := fmt.Fprintf(p.out, "    %s\n", label)
	return err
}

// RenderSummary prints the per-notebook result table, failure details and
// the final summary line.
func (p *PrettyRenderer) RenderSummary(rep *report.RunReport) error {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetTitle(fmt.Sprintf("Notebook Results (%s)", formatDuration(rep.Summary.Duration)))
	t.AppendHeader(table.Row{"Notebook", "Validation", "Execution", "Cell", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Notebook", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Cell", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, res := range rep.Results {
		validation := "-"
		if res.Validation != "" {
			validation = string(res.Validation)
		}
		execution := "-"
		if res.Execution != "" {
			execution = string(res.Execution)
		}
		cell := "-"
		if res.FailedCell > 0 {
			cell = fmt.Sprintf("%d", res.FailedCell)
		}
		t.AppendRow(table.Row{
			res.Path,
			validation,
			execution,
			cell,
			formatDuration(res.Duration),
		})
	}
	t.Render()

	if err := p.renderFailures(rep); err != nil {
		return err
	}

	s := rep.Summary
	_, err := fmt.Fprintf(p.out, "SUMMARY: %d total, %d passed, %d failed (%.1f%%)\n",
		s.Total, s.Passed, s.Failed, s.PassRate)
	if err != nil {
		return err
	}
	if s.Skipped > 0 {
		_, err = fmt.Fprintf(p.out, "%d notebooks skipped after reaching the failure limit\n", s.Skipped)
	}
	return err
}

func (p *PrettyRenderer) renderFailures(rep *report.RunReport) error {
	var failed []report.Result
	for _, res := range rep.Results {
		if !res.Passed() && !res.Skipped() {
			failed = append(failed, res)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(p.out, "Failed notebooks:"); err != nil {
		return err
	}
	for _, res := range failed {
		if _, err := fmt.Fprintf(p.out, "  • %s\n", res.Path); err != nil {
			return err
		}
		for _, line := range detailLines(res.Detail, 3) {
			if _, err := fmt.Fprintf(p.out, "    %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderList prints discovered notebooks with their cell counts and
// validation state, list-command style.
func (p *PrettyRenderer) RenderList(docs []ListEntry) error {
	for _, entry := range docs {
		if entry.Validation == report.ValidationValid {
			code := 0
			for _, c := range entry.Cells {
				if c.Kind == notebook.CellCode {
					code++
				}
			}
			if _, err := fmt.Fprintf(p.out, "%s (nbformat %d, %d cells, %d code)\n",
				entry.Path, entry.Format, len(entry.Cells), code); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(p.out, "%s (%s: %s)\n",
			entry.Path, entry.Validation, firstLine(entry.Detail)); err != nil {
			return err
		}
	}
	return nil
}

// ListEntry pairs a notebook path with its decoded shape, when valid.
type ListEntry struct {
	Path       string            `json:"path"`
	Format     int               `json:"format,omitempty"`
	Cells      []notebook.Cell   `json:"cells,omitempty"`
	Validation report.Validation `json:"validation"`
	Detail     string            `json:"detail,omitempty"`
}

func statusGlyph(res report.Result) string {
	switch {
	case res.Skipped():
		return "-"
	case res.Passed():
		return "✓"
	default:
		return "✗"
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}

func detailLines(detail string, max int) []string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return nil
	}
	lines := strings.Split(detail, "\n")
	if len(lines) > max {
		lines = append(lines[:max], "...")
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
