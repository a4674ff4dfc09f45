package domain

import "strings"

const (
	// RefsPrefix is stripped from refs before they are sent to the git refs API.
	RefsPrefix = "refs/"
	// DefaultRef is used when no ref is configured.
	DefaultRef = "refs/heads/master"
)

// NormalizeRef removes a single leading "refs/" from ref.
func NormalizeRef(ref string) string {
	return strings.TrimPrefix(ref, RefsPrefix)
}
