package domain

import (
	"fmt"
	"strings"
)

// BumpError reports a failed version bump subprocess.
type BumpError struct {
	Kind     BumpKind
	ExitCode int
	Stderr   string
	Err      error
}

func (e *BumpError) Error() string {
	msg := fmt.Sprintf("version bump (%s) failed with exit code %d", e.Kind, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *BumpError) Unwrap() error {
	return e.Err
}
