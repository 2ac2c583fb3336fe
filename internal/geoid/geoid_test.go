package geoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"6083000100", "06083000100"},
		{"06083000100", "06083000100"},
		{"6083000100.0", "06083000100"},
		{" 6083000100 ", "06083000100"},
		{".", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Pad(c.raw, Width), "raw %q", c.raw)
	}
}

func TestPad_NonNumericKeptVerbatim(t *testing.T) {
	// Keys that aren't float-rendered pass through untouched apart
	// from padding.
	assert.Equal(t, "0abc", Pad("abc", 4))
}
