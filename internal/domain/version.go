package domain

import (
	"github.com/Masterminds/semver/v3"
)

// Version wraps semver.Version for additional methods.
type Version struct {
	*semver.Version
}

// NewVersion creates a new Version from a string.
// Manifest versions are strict MAJOR.MINOR.PATCH[-pre][+build] without a v prefix.
func NewVersion(s string) (*Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// BumpMinor increments the minor version and resets patch. A prerelease of
// an unreleased minor (1.1.0-beta.1) releases as that minor (1.1.0), the
// way npm version does.
func (v *Version) BumpMinor() *Version {
	if v.Patch() == 0 && v.Prerelease() != "" {
		return &Version{semver.New(v.Major(), v.Minor(), 0, "", "")}
	}
	return &Version{semver.New(v.Major(), v.Minor()+1, 0, "", "")}
}

// BumpPatch increments the patch version. A prerelease releases as its own
// patch version. Build metadata is dropped.
func (v *Version) BumpPatch() *Version {
	if v.Prerelease() != "" {
		return &Version{semver.New(v.Major(), v.Minor(), v.Patch(), "", "")}
	}
	return &Version{semver.New(v.Major(), v.Minor(), v.Patch()+1, "", "")}
}

// Bump increments the component selected by kind.
func (v *Version) Bump(kind BumpKind) (*Version, error) {
	switch kind {
	case BumpKindMinor:
		return v.BumpMinor(), nil
	case BumpKindPatch:
		return v.BumpPatch(), nil
	default:
		return nil, &InvalidBumpKindError{Kind: string(kind)}
	}
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// String returns the version as written in package manifests (no v prefix).
func (v *Version) String() string {
	return v.Version.String()
}

// Tag returns the git tag name npm creates for this version.
func (v *Version) Tag() string {
	return "v" + v.Version.String()
}
