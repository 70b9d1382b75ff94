package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bagustris/nbtest/internal/report"
)

// JSONRenderer emits structured run data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Render encodes the run report as indented JSON.
func (j *JSONRenderer) Render(rep *report.RunReport) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteFile serializes the full run report to path. A write failure here
// is fatal to the run: without the results file the invocation cannot
// deliver what was asked of it.
func WriteFile(path string, rep *report.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file %q: %w", path, err)
	}
	defer f.Close()

	if err := NewJSON(f).Render(rep); err != nil {
		return fmt.Errorf("write results file %q: %w", path, err)
	}
	return nil
}

// Load re-parses a serialized run report. Loading then comparing counts is
// the round-trip guarantee CI consumers rely on.
func Load(path string) (*report.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file %q: %w", path, err)
	}
	var rep report.RunReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse results file %q: %w", path, err)
	}
	return &rep, nil
}
