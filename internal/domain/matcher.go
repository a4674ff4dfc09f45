package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultIntegrationBranch is the branch whose merges trigger a minor release.
const DefaultIntegrationBranch = "develop"

// ReleaseMatcher decides whether a commit subject records a merge from the
// integration branch.
type ReleaseMatcher interface {
	IsIntegrationMerge(subject string) bool
}

// SuffixMatcher matches subjects ending with Suffix, which is how GitHub's
// default merge message ("Merge pull request #N from owner/branch") ends.
type SuffixMatcher struct {
	Suffix string
}

// NewIntegrationMatcher returns a matcher for merges from owner/branch.
func NewIntegrationMatcher(owner, branch string) SuffixMatcher {
	if branch == "" {
		branch = DefaultIntegrationBranch
	}
	return SuffixMatcher{Suffix: owner + "/" + branch}
}

func (m SuffixMatcher) IsIntegrationMerge(subject string) bool {
	return strings.HasSuffix(subject, m.Suffix)
}

// PatternMatcher matches subjects against a regular expression.
type PatternMatcher struct {
	re *regexp.Regexp
}

// NewPatternMatcher compiles pattern into a PatternMatcher.
func NewPatternMatcher(pattern string) (*PatternMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid merge pattern %q: %w", pattern, err)
	}
	return &PatternMatcher{re: re}, nil
}

func (m *PatternMatcher) IsIntegrationMerge(subject string) bool {
	return m.re.MatchString(subject)
}

// Subject returns the first line of a commit message.
func Subject(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Classify maps a commit message to the bump kind of the release it triggers.
func Classify(m ReleaseMatcher, message string) BumpKind {
	if m.IsIntegrationMerge(Subject(message)) {
		return BumpKindMinor
	}
	return BumpKindPatch
}
