package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// versionRegex matches semantic versions with optional 'v' prefix
	versionRegex = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?(\+[a-zA-Z0-9.]+)?$`)
	// refRegex matches valid git ref names
	refRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)
)

// ValidateVersion validates a semantic version string.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if !versionRegex.MatchString(version) {
		return fmt.Errorf("invalid version format: %s (expected: v1.2.3 or 1.2.3)", version)
	}
	return nil
}

// ValidateRef validates a git ref such as refs/heads/master or heads/master.
func ValidateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("ref cannot be empty")
	}
	if len(ref) > 255 {
		return fmt.Errorf("ref too long: %d characters (max: 255)", len(ref))
	}
	if strings.HasPrefix(ref, "/") || strings.HasSuffix(ref, "/") {
		return fmt.Errorf("ref cannot start or end with slash: %s", ref)
	}
	if strings.Contains(ref, "..") {
		return fmt.Errorf("ref cannot contain consecutive dots: %s", ref)
	}
	if strings.HasSuffix(ref, ".lock") {
		return fmt.Errorf("ref cannot end with .lock: %s", ref)
	}
	if !refRegex.MatchString(ref) {
		return fmt.Errorf("invalid ref format: %s", ref)
	}
	return nil
}
