package version

import (
	"os/exec"
	"testing"
)

func TestDetectPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	info, err := DetectPython("python3")
	if err != nil {
		t.Fatalf("DetectPython: %v", err)
	}
	if info.Name != "python3" || info.Version == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDetectPythonMissing(t *testing.T) {
	_, err := DetectPython("nbtest-no-such-interpreter")
	if err == nil {
		t.Fatalf("expected error for missing interpreter")
	}
	if !Missing(err) {
		t.Fatalf("expected Missing to report not-found, got %v", err)
	}
}
