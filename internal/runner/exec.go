package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bagustris/nbtest/internal/notebook"
	"github.com/bagustris/nbtest/internal/report"
	"github.com/bagustris/nbtest/internal/version"
)

// driverSource runs every code cell sequentially in one shared namespace,
// mirroring interactive top-to-bottom execution. On the first raising cell
// it prints a sentinel line with the cell position and exits nonzero so
// later cells never run.
//
// IPython line magics (%matplotlib inline) and shell escapes (!pip ...)
// are kernel directives, not Python; they are stripped before compiling,
// and a cell magic (%%) makes the whole cell a directive.
const driverSource = `import json, sys, traceback

def prepare(source):
    lines = source.splitlines(True)
    if lines and lines[0].lstrip().startswith("%%"):
        return ""
    kept = []
    for line in lines:
        stripped = line.lstrip()
        if stripped.startswith("%") or stripped.startswith("!"):
            continue
        kept.append(line)
    return "".join(kept)

with open(sys.argv[1], encoding="utf-8") as fh:
    cells = json.load(fh)

ns = {"__name__": "__main__"}
for cell in cells:
    try:
        code = compile(prepare(cell["source"]), "cell %d" % cell["index"], "exec")
        exec(code, ns)
    except Exception as exc:
        sys.stderr.write("NBTEST:FAIL %d %s: %s\n" % (cell["index"], type(exc).__name__, exc))
        traceback.print_exc()
        sys.exit(1)
`

var failSentinel = regexp.MustCompile(`(?m)^NBTEST:FAIL (\d+) (.*)$`)

const maxDetailLen = 300

// execOutcome is the classified result of one notebook's execution.
type execOutcome struct {
	state      report.Execution
	failedCell int
	detail     string
}

// execute runs all code cells of a structurally valid notebook in a fresh
// interpreter process. Interpreter state never outlives the notebook, and
// side effects land in a scratch directory discarded afterwards.
func (r *Runner) execute(doc notebook.Document) execOutcome {
	code := doc.CodeCells()
	if len(code) == 0 {
		return execOutcome{state: report.ExecutionPassed}
	}

	python, err := exec.LookPath(r.opts.Python)
	if err != nil {
		return execOutcome{
			state:  report.ExecutionEnvError,
			detail: interpreterDetail(r.opts.Python, err),
		}
	}

	scratch, err := os.MkdirTemp("", "nbtest-")
	if err != nil {
		return execOutcome{
			state:  report.ExecutionEnvError,
			detail: fmt.Sprintf("create scratch directory: %v", err),
		}
	}
	defer os.RemoveAll(scratch)

	driverPath := filepath.Join(scratch, "driver.py")
	cellsPath := filepath.Join(scratch, "cells.json")
	if err := writeCellPayload(cellsPath, code); err != nil {
		return execOutcome{state: report.ExecutionEnvError, detail: err.Error()}
	}
	if err := os.WriteFile(driverPath, []byte(driverSource), 0o644); err != nil {
		return execOutcome{
			state:  report.ExecutionEnvError,
			detail: fmt.Sprintf("write driver: %v", err),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, driverPath, cellsPath)
	cmd.Dir = scratch

	var stdoutBuf, stderrBuf strings.Builder
	if r.opts.Verbose {
		cmd.Stdout = io.MultiWriter(r.opts.Stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(r.opts.Stderr, &stderrBuf)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	runErr := cmd.Run()
	if runErr == nil {
		return execOutcome{state: report.ExecutionPassed}
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return execOutcome{
			state:  report.ExecutionTimedOut,
			detail: fmt.Sprintf("execution timed out after %s", r.opts.Timeout),
		}
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return execOutcome{
			state:  report.ExecutionEnvError,
			detail: interpreterDetail(r.opts.Python, runErr),
		}
	}

	return classifyFailure(stderrBuf.String(), r.opts.TailLines)
}

// interpreterDetail separates a missing interpreter, which the user can
// fix by installing one, from any other start failure.
func interpreterDetail(python string, err error) string {
	if version.Missing(err) {
		return fmt.Sprintf("interpreter %q not found", python)
	}
	return fmt.Sprintf("start interpreter %q: %v", python, err)
}

type cellPayload struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
}

func writeCellPayload(path string, cells []notebook.Cell) error {
	payload := make([]cellPayload, 0, len(cells))
	for _, c := range cells {
		payload = append(payload, cellPayload{Index: c.Index, Source: c.Source})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cells: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cells: %w", err)
	}
	return nil
}

// classifyFailure extracts the failing cell and error summary from the
// driver's sentinel line. Without a sentinel the interpreter died before
// reaching any cell, so only the stderr tail is reported.
func classifyFailure(stderr string, tail int) execOutcome {
	match := failSentinel.FindStringSubmatch(stderr)
	if match == nil {
		return execOutcome{
			state:  report.ExecutionFailed,
			detail: truncateDetail(tailLines(stderr, tail)),
		}
	}
	cell, err := strconv.Atoi(match[1])
	if err != nil {
		cell = 0
	}
	return execOutcome{
		state:      report.ExecutionFailed,
		failedCell: cell,
		detail:     truncateDetail(match[2]),
	}
}

func truncateDetail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}

func tailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
