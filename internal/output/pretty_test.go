package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bagustris/nbtest/internal/notebook"
	"github.com/bagustris/nbtest/internal/report"
)

func TestRenderResultPass(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPretty(buf)

	res := report.Result{
		Path:       "a.ipynb",
		Validation: report.ValidationValid,
		Execution:  report.ExecutionPassed,
		Duration:   1200 * time.Millisecond,
	}
	if err := p.RenderResult(res); err != nil {
		t.Fatalf("RenderResult: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "✓ a.ipynb") {
		t.Fatalf("missing pass line: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("pass should render one line: %q", out)
	}
}

func TestRenderResultFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPretty(buf)

	res := report.Result{
		Path:       "b.ipynb",
		Validation: report.ValidationValid,
		Execution:  report.ExecutionFailed,
		FailedCell: 2,
		Detail:     "ZeroDivisionError: division by zero",
	}
	if err := p.RenderResult(res); err != nil {
		t.Fatalf("RenderResult: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "✗ b.ipynb") {
		t.Fatalf("missing fail glyph: %q", out)
	}
	if !strings.Contains(out, "failed at cell 2") {
		t.Fatalf("missing failing cell: %q", out)
	}
	if !strings.Contains(out, "ZeroDivisionError") {
		t.Fatalf("missing error detail: %q", out)
	}
}

func TestRenderResultSkipped(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPretty(buf)

	res := report.Result{
		Path:      "late.ipynb",
		Execution: report.ExecutionNotRun,
	}
	if err := p.RenderResult(res); err != nil {
		t.Fatalf("RenderResult: %v", err)
	}
	if !strings.Contains(buf.String(), "- late.ipynb") {
		t.Fatalf("missing skip glyph: %q", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	rr := report.New("/repo")
	rr.Append(report.Result{Path: "a.ipynb", Validation: report.ValidationValid, Execution: report.ExecutionPassed})
	rr.Append(report.Result{Path: "b.ipynb", Validation: report.ValidationValid, Execution: report.ExecutionFailed, FailedCell: 2, Detail: "ZeroDivisionError: division by zero"})
	rr.Append(report.Result{Path: "c.ipynb", Validation: report.ValidationMalformed, Detail: "unresolved merge conflict markers"})
	rr.Finalize(2 * time.Second)

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderSummary(rr); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SUMMARY: 3 total, 1 passed, 2 failed (33.3%)") {
		t.Fatalf("missing summary line: %q", out)
	}
	if !strings.Contains(out, "Failed notebooks:") {
		t.Fatalf("missing failure list: %q", out)
	}
	if !strings.Contains(out, "b.ipynb") || !strings.Contains(out, "c.ipynb") {
		t.Fatalf("failure list incomplete: %q", out)
	}
	if !strings.Contains(out, "malformed_syntax") {
		t.Fatalf("missing validation state in table: %q", out)
	}
}

func TestRenderList(t *testing.T) {
	entries := []ListEntry{
		{
			Path:   "a.ipynb",
			Format: 4,
			Cells: []notebook.Cell{
				{Kind: notebook.CellMarkdown, Index: 1},
				{Kind: notebook.CellCode, Index: 2},
			},
			Validation: report.ValidationValid,
		},
		{
			Path:       "c.ipynb",
			Validation: report.ValidationMalformed,
			Detail:     "unresolved merge conflict markers",
		},
	}

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderList(entries); err != nil {
		t.Fatalf("RenderList: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "a.ipynb (nbformat 4, 2 cells, 1 code)") {
		t.Fatalf("missing valid entry: %q", out)
	}
	if !strings.Contains(out, "c.ipynb (malformed_syntax: unresolved merge conflict markers)") {
		t.Fatalf("missing invalid entry: %q", out)
	}
}
