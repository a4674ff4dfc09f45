package domain

// Release holds all metadata related to a release.

type Release struct {
	Kind     BumpKind
	Previous *Version
	Next     *Version
	Ref      string
	HeadSHA  string
	Modules  []string
}

// TagName returns the tag npm creates for the release.
func (r *Release) TagName() string {
	if r.Next == nil {
		return ""
	}
	return r.Next.Tag()
}
