package cadcore

import (
	"fmt"
	"strconv"
	"strings"
)

// PathCreationError is returned by [NewPath] when the given string does not
// satisfy the path grammar.
type PathCreationError struct {
	Path string
}

func (e *PathCreationError) Error() string {
	return fmt.Sprintf("%q is not a valid Path", e.Path)
}

// Path identifies the location of a document or folder (excluding the root
// folder) inside a [Project]. A Path consists of '/'-separated segments; the
// first character must be '/'. A literal '/' within a segment is escaped as
// '\/', and a literal '\' is escaped as '\\'.
//
// Valid examples:
//   - "/part"
//   - "/assemblies and drawings/drawing"
//   - "/parts/screws\/bolts/bolt1"
//
// Invalid examples: "part", "/parts/", "//part", "/".
type Path struct{ s string }

// NewPath validates and constructs a Path from a string.
func NewPath(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, &PathCreationError{s}
	}

	escaped := false
	lastWasSlash := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			lastWasSlash = false
		case r == '\\':
			escaped = true
			lastWasSlash = false
		case r == '/':
			if lastWasSlash {
				return Path{}, &PathCreationError{s}
			}
			lastWasSlash = true
		default:
			lastWasSlash = false
		}
	}
	if lastWasSlash || escaped {
		return Path{}, &PathCreationError{s}
	}
	return Path{s}, nil
}

// String returns the raw (still-escaped) string representation of the path.
func (p Path) String() string { return p.s }

// IsZero reports whether p is the zero-value Path (never a valid path, since
// NewPath rejects the empty string).
func (p Path) IsZero() bool { return p.s == "" }

// segments splits the path into its unescaped-separator segments, keeping
// escape sequences intact within each segment.
func (p Path) segments() []string {
	var segments []string
	var current strings.Builder
	escaped := false
	for _, r := range p.s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			current.WriteRune(r)
			escaped = true
		case r == '/':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	segments = append(segments, current.String())
	return segments
}

var suffixSeparator = " ("

// IncrementNameSuffix returns a new Path whose last segment has its numeric
// "(N)" suffix incremented, or "(2)" appended if no such suffix is present.
//
//	IncrementNameSuffix("/p")     -> "/p (2)"
//	IncrementNameSuffix("/p (2)") -> "/p (3)"
//
// This resolves the open question left by the source implementation (see
// DESIGN.md), locked in by spec.md §8 scenario 7.
func (p Path) IncrementNameSuffix() Path {
	segments := p.segments()
	last := segments[len(segments)-1]

	if idx := strings.LastIndex(last, suffixSeparator); idx >= 0 && strings.HasSuffix(last, ")") {
		numStr := last[idx+len(suffixSeparator) : len(last)-1]
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 && numStr == strconv.Itoa(n) {
			segments[len(segments)-1] = fmt.Sprintf("%s (%d)", last[:idx], n+1)
			return Path{strings.Join(segments, "/")}
		}
	}

	segments[len(segments)-1] = last + " (2)"
	return Path{strings.Join(segments, "/")}
}
