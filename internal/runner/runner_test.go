package runner

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bagustris/nbtest/internal/report"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

type testCell struct {
	Type   string `json:"cell_type"`
	Source string `json:"source"`
}

func writeNotebook(t *testing.T, root, name string, cells ...testCell) {
	t.Helper()
	if cells == nil {
		cells = []testCell{}
	}
	nb := map[string]any{
		"nbformat":       4,
		"nbformat_minor": 5,
		"metadata":       map[string]any{},
		"cells":          cells,
	}
	data, err := json.Marshal(nb)
	if err != nil {
		t.Fatalf("marshal notebook: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, name), data, 0o644); err != nil {
		t.Fatalf("write notebook %s: %v", name, err)
	}
}

func code(src string) testCell     { return testCell{Type: "code", Source: src} }
func markdown(src string) testCell { return testCell{Type: "markdown", Source: src} }

func TestRunScenario(t *testing.T) {
	requirePython(t)
	root := t.TempDir()

	writeNotebook(t, root, "a.ipynb",
		code("x = 21"),
		code("assert x * 2 == 42"),
	)
	writeNotebook(t, root, "b.ipynb",
		code("a = 1"),
		code("a / 0"),
	)
	if err := os.WriteFile(filepath.Join(root, "c.ipynb"), []byte("<<<<<<< HEAD\n{}\n"), 0o644); err != nil {
		t.Fatalf("write c.ipynb: %v", err)
	}

	r := New(Options{Root: root, Timeout: time.Minute})
	results := r.Run([]string{"a.ipynb", "b.ipynb", "c.ipynb"}, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Execution != report.ExecutionPassed {
		t.Fatalf("a.ipynb: expected pass, got %+v", results[0])
	}
	if results[1].Execution != report.ExecutionFailed || results[1].FailedCell != 2 {
		t.Fatalf("b.ipynb: expected failure at cell 2, got %+v", results[1])
	}
	if !strings.Contains(results[1].Detail, "ZeroDivisionError") {
		t.Fatalf("b.ipynb: expected ZeroDivisionError detail, got %q", results[1].Detail)
	}
	if results[2].Validation != report.ValidationMalformed {
		t.Fatalf("c.ipynb: expected malformed, got %+v", results[2])
	}

	rep := report.New(root)
	for _, res := range results {
		rep.Append(res)
	}
	rep.Finalize(time.Second)
	if rep.Summary.Total != 3 || rep.Summary.Passed != 1 || rep.Summary.Failed != 2 {
		t.Fatalf("unexpected summary: %+v", rep.Summary)
	}
	if rep.Summary.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", rep.Summary.ExitCode)
	}
}

func TestRunIsolation(t *testing.T) {
	requirePython(t)
	root := t.TempDir()

	writeNotebook(t, root, "a_defines.ipynb", code("leaked = 42"))
	// Reading a name defined by the previous notebook must fail: every
	// notebook gets a fresh interpreter.
	writeNotebook(t, root, "b_reads.ipynb", code("leaked"))

	r := New(Options{Root: root, Timeout: time.Minute})
	results := r.Run([]string{"a_defines.ipynb", "b_reads.ipynb"}, nil)

	if results[0].Execution != report.ExecutionPassed {
		t.Fatalf("defining notebook should pass: %+v", results[0])
	}
	if results[1].Execution != report.ExecutionFailed {
		t.Fatalf("reading notebook should fail: %+v", results[1])
	}
	if !strings.Contains(results[1].Detail, "NameError") {
		t.Fatalf("expected NameError, got %q", results[1].Detail)
	}
}

func TestRunMagicCells(t *testing.T) {
	requirePython(t)
	root := t.TempDir()

	// Notebooks routinely lead with IPython directives; they must not
	// register as syntax errors in a plain interpreter.
	writeNotebook(t, root, "magic.ipynb",
		code("%matplotlib inline"),
		code("x = 1"),
		code("%pylab inline\ny = x + 1"),
		code("!true"),
		code("%%time\nignored_entirely"),
		code("assert y == 2"),
	)

	r := New(Options{Root: root, Timeout: time.Minute})
	results := r.Run([]string{"magic.ipynb"}, nil)

	if results[0].Execution != report.ExecutionPassed {
		t.Fatalf("magic-laden notebook should pass: %+v", results[0])
	}
}

func TestRunFailFast(t *testing.T) {
	requirePython(t)
	root := t.TempDir()
	sentinel := filepath.Join(root, "late-cell-ran")

	writeNotebook(t, root, "failfast.ipynb",
		code("ok = True"),
		markdown("narrative in between"),
		code("raise RuntimeError('boom')"),
		code("open("+pyQuote(sentinel)+", 'w').close()"),
	)

	r := New(Options{Root: root, Timeout: time.Minute})
	results := r.Run([]string{"failfast.ipynb"}, nil)

	if results[0].Execution != report.ExecutionFailed || results[0].FailedCell != 3 {
		t.Fatalf("expected failure at cell 3, got %+v", results[0])
	}
	if _, err := os.Stat(sentinel); err == nil {
		t.Fatalf("cell after the failure must not execute")
	}
}

func TestRunTimeoutIsolation(t *testing.T) {
	requirePython(t)
	root := t.TempDir()

	writeNotebook(t, root, "a_spins.ipynb", code("while True:\n    pass"))
	writeNotebook(t, root, "b_fine.ipynb", code("done = 1"))

	r := New(Options{Root: root, Timeout: 2 * time.Second})
	start := time.Now()
	results := r.Run([]string{"a_spins.ipynb", "b_fine.ipynb"}, nil)
	elapsed := time.Since(start)

	if results[0].Execution != report.ExecutionTimedOut {
		t.Fatalf("spinning notebook should time out: %+v", results[0])
	}
	if results[1].Execution != report.ExecutionPassed {
		t.Fatalf("sibling notebook must be unaffected: %+v", results[1])
	}
	if elapsed > 30*time.Second {
		t.Fatalf("run took too long: %s", elapsed)
	}
}

func TestRunNoExecute(t *testing.T) {
	root := t.TempDir()
	writeNotebook(t, root, "a.ipynb", code("1 / 0"))
	if err := os.WriteFile(filepath.Join(root, "c.ipynb"), []byte("<<<<<<< HEAD\n"), 0o644); err != nil {
		t.Fatalf("write c.ipynb: %v", err)
	}

	r := New(Options{Root: root, NoExecute: true})
	results := r.Run([]string{"a.ipynb", "c.ipynb"}, nil)

	if results[0].Execution != "" || !results[0].Passed() {
		t.Fatalf("structure-only result should pass on validation alone: %+v", results[0])
	}
	if results[1].Validation != report.ValidationMalformed || results[1].Passed() {
		t.Fatalf("malformed notebook must still fail: %+v", results[1])
	}
}

func TestRunMaxFailures(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.ipynb"), []byte("<<<<<<< HEAD\n"), 0o644); err != nil {
		t.Fatalf("write a.ipynb: %v", err)
	}
	writeNotebook(t, root, "b.ipynb")
	writeNotebook(t, root, "c.ipynb")

	r := New(Options{Root: root, NoExecute: true, MaxFailures: 1})
	results := r.Run([]string{"a.ipynb", "b.ipynb", "c.ipynb"}, nil)

	if results[0].Passed() {
		t.Fatalf("first notebook should fail validation: %+v", results[0])
	}
	for _, res := range results[1:] {
		if res.Execution != report.ExecutionNotRun {
			t.Fatalf("expected not_run after failure limit, got %+v", res)
		}
		// Skipped notebooks were never opened, so they carry no
		// validation verdict.
		if res.Validation != "" {
			t.Fatalf("skipped notebook must not claim a validation state: %+v", res)
		}
	}

	data, err := json.Marshal(results[1])
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if strings.Contains(string(data), `"validation"`) {
		t.Fatalf("validation key must be omitted for skipped notebooks: %s", data)
	}
}

func TestRunEnvironmentError(t *testing.T) {
	root := t.TempDir()
	writeNotebook(t, root, "a.ipynb", code("x = 1"))

	r := New(Options{Root: root, Python: "nbtest-no-such-interpreter"})
	results := r.Run([]string{"a.ipynb"}, nil)

	if results[0].Execution != report.ExecutionEnvError {
		t.Fatalf("expected environment error, got %+v", results[0])
	}
	if !strings.Contains(results[0].Detail, "not found") {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestRunInterpreterStartFailure(t *testing.T) {
	root := t.TempDir()
	writeNotebook(t, root, "a.ipynb", code("x = 1"))

	// A directory resolves on PATH lookup rules but can never start, so
	// the failure is a broken environment rather than a missing binary.
	dir := filepath.Join(root, "not-a-binary")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r := New(Options{Root: root, Python: dir})
	results := r.Run([]string{"a.ipynb"}, nil)

	if results[0].Execution != report.ExecutionEnvError {
		t.Fatalf("expected environment error, got %+v", results[0])
	}
	if !strings.Contains(results[0].Detail, "start interpreter") {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestRunEmptyNotebook(t *testing.T) {
	root := t.TempDir()
	writeNotebook(t, root, "empty.ipynb")
	writeNotebook(t, root, "prose.ipynb", markdown("only words"))

	// No code cells means no interpreter is needed at all.
	r := New(Options{Root: root, Python: "nbtest-no-such-interpreter"})
	results := r.Run([]string{"empty.ipynb", "prose.ipynb"}, nil)

	for _, res := range results {
		if res.Execution != report.ExecutionPassed {
			t.Fatalf("cell-free notebook should pass: %+v", res)
		}
	}
}

func TestRunParallel(t *testing.T) {
	requirePython(t)
	root := t.TempDir()

	paths := []string{"p1.ipynb", "p2.ipynb", "p3.ipynb", "p4.ipynb"}
	for _, name := range paths {
		writeNotebook(t, root, name, code("v = 1"), code("assert v == 1"))
	}

	r := New(Options{Root: root, Timeout: time.Minute, Parallel: 2})
	results := r.Run(paths, nil)
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}

	rep := report.New(root)
	for _, res := range results {
		rep.Append(res)
	}
	rep.Finalize(time.Second)

	if rep.Summary.Passed != len(paths) {
		t.Fatalf("expected all passed, got %+v", rep.Summary)
	}
	for i, res := range rep.Results {
		if res.Path != paths[i] {
			t.Fatalf("finalized order mismatch at %d: %q", i, res.Path)
		}
	}
}

func TestRunFailuresDir(t *testing.T) {
	requirePython(t)
	root := t.TempDir()
	failuresDir := filepath.Join(root, "test-failures")

	writeNotebook(t, root, "broken.ipynb", code("raise ValueError('nope')"))

	r := New(Options{Root: root, Timeout: time.Minute, FailuresDir: failuresDir})
	r.Run([]string{"broken.ipynb"}, nil)

	data, err := os.ReadFile(filepath.Join(failuresDir, "broken_error.txt"))
	if err != nil {
		t.Fatalf("read failure file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "broken.ipynb") || !strings.Contains(content, "ValueError") {
		t.Fatalf("unexpected failure file content: %q", content)
	}
}

func TestRunProgressStreaming(t *testing.T) {
	root := t.TempDir()
	writeNotebook(t, root, "a.ipynb")
	writeNotebook(t, root, "b.ipynb")

	var seen []string
	r := New(Options{Root: root, NoExecute: true})
	r.Run([]string{"a.ipynb", "b.ipynb"}, func(res report.Result) {
		seen = append(seen, res.Path)
	})

	if len(seen) != 2 {
		t.Fatalf("expected 2 progress callbacks, got %d", len(seen))
	}
}

// pyQuote renders a Go string as a Python single-quoted literal.
func pyQuote(s string) string {
	return "'" + strings.ReplaceAll(s, `\`, `\\`) + "'"
}
