package semver

import (
	"strconv"
	"strings"
)

// Version is a parsed (major, minor, patch) triple. Components that are
// missing or non-numeric in the source string normalise to 0.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Constraint is a version specifier reduced to a baseline version plus
// a flag per component indicating whether that component must match
// exactly. Range operators and wildcards only relax exactness, they
// never tighten it.
type Constraint struct {
	Version    Version
	ExactMajor bool
	ExactMinor bool
	ExactPatch bool
}

// ParseVersion parses a concrete version string such as "1.2.3".
func ParseVersion(s string) Version {
	segments := strings.Split(strings.TrimSpace(s), ".")
	var components [3]int
	for i := 0; i < len(segments) && i < 3; i++ {
		if isWildcard(segments[i]) {
			continue
		}
		n, err := strconv.Atoi(segments[i])
		if err != nil {
			continue
		}
		components[i] = n
	}
	return Version{Major: components[0], Minor: components[1], Patch: components[2]}
}

// ParseConstraint parses a version specifier ("1.2.3", "^1.2.0", "~1.2",
// "1.x", "*") into a Constraint.
//
// A caret prefix or a single numeric segment relaxes minor and patch,
// a tilde prefix or two numeric segments relaxes patch, and a bare
// three-segment version requires an exact match on all components.
func ParseConstraint(s string) Constraint {
	s = strings.TrimSpace(s)
	if s == "x" || s == "X" || s == "*" {
		return Constraint{}
	}

	caret := strings.HasPrefix(s, "^")
	tilde := strings.HasPrefix(s, "~")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "^"), "~")

	c := Constraint{
		Version:    ParseVersion(s),
		ExactMajor: true,
		ExactMinor: true,
		ExactPatch: true,
	}
	switch n := numericSegments(s); {
	case caret || n == 1:
		c.ExactMinor = false
		c.ExactPatch = false
	case tilde || n == 2:
		c.ExactPatch = false
	}
	return c
}

// Matches checks whether the given version satisfies the constraint.
// Only components marked exact are compared; everything else is
// unconstrained.
func (c Constraint) Matches(v Version) bool {
	if c.ExactMajor && v.Major != c.Version.Major {
		return false
	}
	if c.ExactMinor && v.Minor != c.Version.Minor {
		return false
	}
	if c.ExactPatch && v.Patch != c.Version.Patch {
		return false
	}
	return true
}

// GreaterThan compares versions numerically, major first.
func (v Version) GreaterThan(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Patch > o.Patch
}

// ResolveHighest returns the candidate version that satisfies the
// specifier and has the greatest (major, minor, patch) tuple. The
// second return value is false when nothing matches. When two
// candidates parse to the same triple, the first one seen wins.
func ResolveHighest(specifier string, candidates []string) (string, bool) {
	c := ParseConstraint(specifier)

	var best Version
	var bestRaw string
	var found bool
	for _, raw := range candidates {
		v := ParseVersion(raw)
		if !c.Matches(v) {
			continue
		}
		if !found || v.GreaterThan(best) {
			best = v
			bestRaw = raw
			found = true
		}
	}
	return bestRaw, found
}

func isWildcard(s string) bool {
	return s == "x" || s == "X" || s == "*"
}

func numericSegments(s string) int {
	var n int
	for _, segment := range strings.Split(s, ".") {
		if strings.ContainsAny(segment, "0123456789") {
			n++
		}
	}
	return n
}
