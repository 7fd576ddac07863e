package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloatPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2.5", 2.5, true},
		{" 3 baths", 3, true},
		{"-122.0808", -122.0808, true},
		{".75", 0.75, true},
		{"4.", 4, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"1,200", 1, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseFloatPrefix(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseIntPrefix(t *testing.T) {
	v, ok := parseIntPrefix("3 bd")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = parseIntPrefix("2.5")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = parseIntPrefix("three")
	assert.False(t, ok)
}

func TestCleanNumber(t *testing.T) {
	v, ok := parseFloatPrefix(cleanNumber("$1,250,000"))
	assert.True(t, ok)
	assert.Equal(t, 1250000.0, v)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2015-06-01", "6/1/2015", "06/01/2015", "2015/06/01", "Jun 1, 2015", "20150601"} {
		got, ok := parseDate(in)
		require.True(t, ok, "input %q", in)
		assert.True(t, want.Equal(*got), "input %q parsed as %v", in, got)
	}

	_, ok := parseDate("sometime in 2015")
	assert.False(t, ok)
	_, ok = parseDate("")
	assert.False(t, ok)
}

func TestParseCoordinate(t *testing.T) {
	v, ok := parseCoordinate("37.6688", 90)
	assert.True(t, ok)
	assert.Equal(t, 37.6688, v)

	_, ok = parseCoordinate("0", 90)
	assert.False(t, ok, "zero means not geocoded")
	_, ok = parseCoordinate("137.2", 90)
	assert.False(t, ok, "out of range")
	_, ok = parseCoordinate("", 180)
	assert.False(t, ok)
}
