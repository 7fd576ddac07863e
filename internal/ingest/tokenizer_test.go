package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"trims cells", "  APN , Address ,City  ", []string{"APN", "Address", "City"}},
		{"quoted comma", `123 Main St, Apt "B, C", Hayward`, []string{"123 Main St", `Apt "B, C"`, "Hayward"}},
		{"whole cell quoted", `"Smith, John",42`, []string{"Smith, John", "42"}},
		{"empty cells", "a,,c,", []string{"a", "", "c", ""}},
		{"empty line", "", []string{""}},
		{"unterminated quote swallows rest", `a,"b,c`, []string{"a", `"b,c`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, splitLines("a\r\nb\n"))
}
