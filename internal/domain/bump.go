package domain

import (
	"fmt"
)

// BumpKind selects which semver component a release increments.
type BumpKind string

const (
	// BumpKindMinor is a regular release merged from the integration branch.
	BumpKindMinor BumpKind = "minor"
	// BumpKindPatch is a hotfix release.
	BumpKindPatch BumpKind = "patch"
)

// InvalidBumpKindError is returned for anything other than minor or patch.
type InvalidBumpKindError struct {
	Kind string
}

func (e *InvalidBumpKindError) Error() string {
	return fmt.Sprintf("invalid bump kind %q (expected minor or patch)", e.Kind)
}

// Valid reports whether k is a supported bump kind.
func (k BumpKind) Valid() bool {
	return k == BumpKindMinor || k == BumpKindPatch
}

func (k BumpKind) String() string {
	return string(k)
}

// NextVersion applies the increment rule of npm version for kind to base.
func NextVersion(base string, kind BumpKind) (string, error) {
	current, err := NewVersion(base)
	if err != nil {
		return "", fmt.Errorf("invalid base version %q: %w", base, err)
	}
	next, err := current.Bump(kind)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}
