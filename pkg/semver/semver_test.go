package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	var cases = []struct {
		in  string
		out Version
	}{
		{"1.2.3", Version{1, 2, 3}},
		{"1.2", Version{1, 2, 0}},
		{"1", Version{1, 0, 0}},
		{"1.x", Version{1, 0, 0}},
		{"1.X.3", Version{1, 0, 3}},
		{"*", Version{0, 0, 0}},
		{"", Version{0, 0, 0}},
		{"1.2.3-beta", Version{1, 2, 0}},
		{" 10.20.30 ", Version{10, 20, 30}},
	}

	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			assert.EqualValues(t, tt.out, ParseVersion(tt.in))
		})
	}
}

func TestParseConstraint(t *testing.T) {
	var cases = []struct {
		in  string
		out Constraint
	}{
		{"1.2.3", Constraint{Version{1, 2, 3}, true, true, true}},
		{"^1.2.3", Constraint{Version{1, 2, 3}, true, false, false}},
		{"~1.2.3", Constraint{Version{1, 2, 3}, true, true, false}},
		{"~1.2", Constraint{Version{1, 2, 0}, true, true, false}},
		{"~1", Constraint{Version{1, 0, 0}, true, false, false}},
		{"1.2", Constraint{Version{1, 2, 0}, true, true, false}},
		{"1", Constraint{Version{1, 0, 0}, true, false, false}},
		{"1.x", Constraint{Version{1, 0, 0}, true, false, false}},
		{"*", Constraint{}},
		{"x", Constraint{}},
		{"X", Constraint{}},
	}

	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			assert.EqualValues(t, tt.out, ParseConstraint(tt.in))
		})
	}
}

func TestResolveHighest(t *testing.T) {
	var cases = []struct {
		specifier  string
		candidates []string
		expected   string
		ok         bool
	}{
		{"~1.2", []string{"1.2.0", "1.2.9", "1.3.0"}, "1.2.9", true},
		{"1.x", []string{"1.0.0", "1.9.0", "2.0.0"}, "1.9.0", true},
		{"2.0.0", []string{"2.0.0", "2.0.1"}, "2.0.0", true},
		{"^1.2.0", []string{"1.0.0", "1.4.5", "1.10.0", "2.0.0"}, "1.10.0", true},
		{"*", []string{"0.0.1", "3.1.4", "2.9.9"}, "3.1.4", true},
		{"^2.0.0", []string{"1.0.0", "3.0.0"}, "", false},
		{"4.5.6", []string{}, "", false},
	}

	for _, tt := range cases {
		t.Run(tt.specifier, func(t *testing.T) {
			out, ok := ResolveHighest(tt.specifier, tt.candidates)
			assert.EqualValues(t, tt.ok, ok)
			assert.EqualValues(t, tt.expected, out)
		})
	}
}

// caret ranges must never pin minor or patch, only major
func TestResolveHighest_CaretIgnoresMinorPatch(t *testing.T) {
	out, ok := ResolveHighest("^1.9.9", []string{"1.0.0", "1.2.3"})
	assert.True(t, ok)
	assert.EqualValues(t, "1.2.3", out)
}
