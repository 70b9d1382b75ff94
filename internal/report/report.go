package report

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Validation classifies the structural state of a notebook. The empty
// value means the notebook was never validated (skipped before
// processing); only checked documents carry a validation state.
type Validation string

const (
	// ValidationValid indicates the notebook parsed and satisfied the schema.
	ValidationValid Validation = "valid"
	// ValidationMalformed indicates the file is not well-formed JSON, for
	// example because of unresolved merge conflict markers.
	ValidationMalformed Validation = "malformed_syntax"
	// ValidationSchemaError indicates valid JSON that is missing required
	// notebook fields.
	ValidationSchemaError Validation = "schema_error"
)

// Execution classifies the outcome of running a notebook's code cells.
// The empty value means execution was not attempted (structure-only mode
// or a notebook that already failed validation).
type Execution string

const (
	// ExecutionPassed indicates every code cell ran to completion.
	ExecutionPassed Execution = "passed"
	// ExecutionFailed indicates a code cell raised an unhandled error.
	ExecutionFailed Execution = "failed"
	// ExecutionTimedOut indicates the notebook exceeded its time budget.
	ExecutionTimedOut Execution = "timed_out"
	// ExecutionEnvError indicates the interpreter could not be started.
	ExecutionEnvError Execution = "environment_error"
	// ExecutionNotRun indicates the notebook was skipped after the failure
	// budget was exhausted.
	ExecutionNotRun Execution = "not_run"
)

// Result captures the outcome for a single notebook. FailedCell is the
// 1-based position of the offending cell within its document, 0 when no
// single cell is to blame.
type Result struct {
	Path       string        `json:"path"`
	Validation Validation    `json:"validation,omitempty"`
	Execution  Execution     `json:"execution,omitempty"`
	FailedCell int           `json:"failed_cell,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Passed reports whether the result counts as a pass. A notebook that was
// only structure-checked passes on validation alone.
func (r Result) Passed() bool {
	if r.Validation != ValidationValid {
		return false
	}
	switch r.Execution {
	case "", ExecutionPassed:
		return true
	default:
		return false
	}
}

// Skipped reports whether the notebook was never processed (early exit).
func (r Result) Skipped() bool {
	return r.Execution == ExecutionNotRun
}

// Summary aggregates results for one harness invocation.
type Summary struct {
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	PassRate   float64       `json:"pass_rate"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}

// RunReport is the complete serializable record of one invocation.
type RunReport struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Root      string    `json:"root"`
	Python    string    `json:"python,omitempty"`
	Results   []Result  `json:"results"`
	Summary   Summary   `json:"summary"`
}

// New creates an empty RunReport for the given repository root.
func New(root string) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Root:      root,
	}
}

// Append records a completed result.
func (rr *RunReport) Append(res Result) {
	rr.Results = append(rr.Results, res)
}

// Finalize re-sorts results to discovery order and derives the summary.
// Call once, after all notebooks have been processed.
func (rr *RunReport) Finalize(elapsed time.Duration) {
	sort.Slice(rr.Results, func(i, j int) bool {
		return rr.Results[i].Path < rr.Results[j].Path
	})

	var s Summary
	s.Total = len(rr.Results)
	for i := range rr.Results {
		rr.Results[i].DurationMS = rr.Results[i].Duration.Milliseconds()
		switch {
		case rr.Results[i].Skipped():
			s.Skipped++
		case rr.Results[i].Passed():
			s.Passed++
		default:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.PassRate = math.Round(float64(s.Passed)/float64(s.Total)*1000) / 10
	}
	if s.Failed > 0 {
		s.ExitCode = 1
	}
	s.Duration = elapsed
	s.DurationMS = elapsed.Milliseconds()
	rr.Summary = s
}
