package npm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedSpecifier = errors.New("malformed package specifier")

// SplitNameAndVersion splits a combined "name@version" string on the
// last '@' so that scoped names such as "@scope/pkg@1.2.3" keep their
// scope intact. Both halves must be non-empty.
func SplitNameAndVersion(s string) (string, string, error) {
	i := strings.LastIndex(s, "@")
	if i <= 0 {
		// covers empty input, no separator, and a bare scoped name
		// such as "@1.0.0" where the name half would be empty
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSpecifier, s)
	}
	name, version := s[:i], s[i+1:]
	if version == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSpecifier, s)
	}
	return name, version, nil
}
