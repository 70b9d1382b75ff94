package version

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Info captures an interpreter version installed on the system.
type Info struct {
	Name    string
	Version string
}

var pythonRegex = regexp.MustCompile(`(?i)python\s+(\d+\.\d+(?:\.\d+)?)`)

// DetectPython returns the version of the given Python interpreter by
// calling `<interpreter> --version`.
func DetectPython(interpreter string) (Info, error) {
	out, err := runCommand(interpreter, "--version")
	if err != nil {
		return Info{}, err
	}
	match := pythonRegex.FindStringSubmatch(out)
	if len(match) < 2 {
		return Info{}, fmt.Errorf("unable to parse python version from %q", out)
	}
	return Info{Name: interpreter, Version: match[1]}, nil
}

func runCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Missing reports whether executing the command returns a not-found error.
func Missing(cmdErr error) bool {
	return errors.Is(cmdErr, exec.ErrNotFound)
}
