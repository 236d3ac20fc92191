package pagewait

import (
	"regexp"
	"strconv"
	"strings"
)

// PathSeparator separates the segments of a tree path.
const PathSeparator = "/"

// Path is a tree path: the sequence of labels leading from a root to a
// node. Each segment is either a literal label, matched case-insensitively,
// or a regular expression that must match a whole label.
type Path []string

// ParsePath splits s on PathSeparator. Empty input and empty segments are
// rejected, never silently skipped.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, &InvalidPathError{Path: s, Reason: "empty path"}
	}
	p := Path(strings.Split(s, PathSeparator))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate returns an InvalidPathError when p has no segment or an empty
// one. Segments built by hand may contain PathSeparator.
func (p Path) Validate() error {
	if len(p) == 0 {
		return &InvalidPathError{Path: p.String(), Reason: "empty path"}
	}
	for i, seg := range p {
		if seg == "" {
			return &InvalidPathError{Path: p.String(), Reason: "empty segment at position " + strconv.Itoa(i)}
		}
	}
	return nil
}

// String satisfies fmt.Stringer.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Join returns a copy of p with label appended.
func (p Path) Join(label string) Path {
	q := make(Path, len(p), len(p)+1)
	copy(q, p)
	return append(q, label)
}

// matcher matches labels against one path segment.
type matcher struct {
	seg string
	re  *regexp.Regexp
}

// newMatcher builds the matcher for seg. A segment that does not compile
// as a regular expression only matches literally.
func newMatcher(seg string) matcher {
	re, err := regexp.Compile(`(?s)^(?:` + seg + `)$`)
	if err != nil {
		re = nil
	}
	return matcher{seg: seg, re: re}
}

// exact reports whether label equals the segment, ignoring case.
func (m matcher) exact(label string) bool {
	return strings.EqualFold(label, m.seg)
}

// pattern reports whether the segment, as a regular expression, matches
// the whole label.
func (m matcher) pattern(label string) bool {
	return m.re != nil && m.re.MatchString(label)
}
