package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bagustris/nbtest/internal/notebook"
	"github.com/bagustris/nbtest/internal/report"
)

// Options configure how the runner validates and executes notebooks.
type Options struct {
	Root        string
	Python      string
	Timeout     time.Duration
	TailLines   int
	MaxFailures int
	Parallel    int
	NoExecute   bool
	FailuresDir string
	Verbose     bool
	Stdout      io.Writer
	Stderr      io.Writer
	Log         *logrus.Logger
	Now         func() time.Time
}

// Runner drives the validate-then-execute pipeline over notebooks.
type Runner struct {
	opts Options
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
		opts.Log.SetOutput(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

// Run processes the given notebook paths in order and returns one result
// per path. Per-notebook faults are always folded into results, never
// returned. When progress is non-nil it is invoked once per completed
// result, from the calling goroutine only.
func (r *Runner) Run(paths []string, progress func(report.Result)) []report.Result {
	if r.opts.Parallel > 1 {
		return r.runParallel(paths, progress)
	}
	return r.runSequential(paths, progress)
}

func (r *Runner) runSequential(paths []string, progress func(report.Result)) []report.Result {
	results := make([]report.Result, 0, len(paths))
	failures := 0

	for _, path := range paths {
		var res report.Result
		if r.budgetExhausted(failures) {
			res = notRunResult(path)
		} else {
			res = r.process(path)
			if !res.Passed() {
				failures++
			}
		}
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results
}

// runParallel executes notebooks over a bounded worker pool. Every
// notebook still gets its own interpreter process and its own timeout;
// only scheduling is shared. Results are collected append-only and the
// final report re-sorts them to discovery order.
func (r *Runner) runParallel(paths []string, progress func(report.Result)) []report.Result {
	workChan := make(chan string)
	resultChan := make(chan report.Result)

	var mu sync.Mutex
	failures := 0

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workChan {
				mu.Lock()
				exhausted := r.budgetExhausted(failures)
				mu.Unlock()

				var res report.Result
				if exhausted {
					res = notRunResult(path)
				} else {
					res = r.process(path)
					if !res.Passed() {
						mu.Lock()
						failures++
						mu.Unlock()
					}
				}
				resultChan <- res
			}
		}()
	}

	go func() {
		for _, path := range paths {
			workChan <- path
		}
		close(workChan)
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]report.Result, 0, len(paths))
	for res := range resultChan {
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results
}

func (r *Runner) budgetExhausted(failures int) bool {
	return r.opts.MaxFailures > 0 && failures >= r.opts.MaxFailures
}

// process yields exactly one result for one notebook: a validation outcome
// and, when the notebook is structurally valid and execution is enabled,
// an execution outcome.
func (r *Runner) process(path string) report.Result {
	log := r.opts.Log.WithField("notebook", path)
	log.Debug("validating")

	start := r.opts.Now()
	doc, validation, detail := notebook.Validate(r.opts.Root, path)

	res := report.Result{
		Path:       path,
		Validation: validation,
		Detail:     detail,
	}

	if validation != report.ValidationValid {
		res.Duration = r.opts.Now().Sub(start)
		log.WithField("validation", validation).Debug("structurally invalid")
		r.writeFailureFile(res)
		return res
	}

	if r.opts.NoExecute {
		res.Duration = r.opts.Now().Sub(start)
		return res
	}

	log.WithField("cells", len(doc.Cells)).Debug("executing")
	outcome := r.execute(doc)
	res.Execution = outcome.state
	res.FailedCell = outcome.failedCell
	res.Detail = outcome.detail
	res.Duration = r.opts.Now().Sub(start)

	if !res.Passed() {
		r.writeFailureFile(res)
	}
	return res
}

// notRunResult marks a notebook skipped by the failure budget. It carries
// no validation state: the file was never even read.
func notRunResult(path string) report.Result {
	return report.Result{
		Path:      path,
		Execution: report.ExecutionNotRun,
		Detail:    "skipped after reaching the failure limit",
	}
}

// writeFailureFile records a failing notebook's error detail to its own
// file under FailuresDir, mirroring console output for later inspection.
func (r *Runner) writeFailureFile(res report.Result) {
	if r.opts.FailuresDir == "" {
		return
	}
	if err := os.MkdirAll(r.opts.FailuresDir, 0o755); err != nil {
		r.opts.Log.WithError(err).Warn("create failures directory")
		return
	}

	stem := strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))
	path := filepath.Join(r.opts.FailuresDir, stem+"_error.txt")

	var b strings.Builder
	fmt.Fprintf(&b, "Notebook: %s\n", res.Path)
	fmt.Fprintf(&b, "Validation: %s\n", res.Validation)
	if res.Execution != "" {
		fmt.Fprintf(&b, "Execution: %s\n", res.Execution)
	}
	if res.FailedCell > 0 {
		fmt.Fprintf(&b, "Failed cell: %d\n", res.FailedCell)
	}
	fmt.Fprintf(&b, "Duration: %s\n", res.Duration.Truncate(time.Millisecond))
	fmt.Fprintf(&b, "Error:\n%s\n", res.Detail)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		r.opts.Log.WithError(err).Warn("write failure file")
	}
}
