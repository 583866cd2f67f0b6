package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimQuotes(tt.input))
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	assert.Equal(t, `{"solarPower":1}`, FixEscapeQuotes(`{""solarPower"":1}`))
	assert.Equal(t, "plain", FixEscapeQuotes("plain"))
}

func TestCleanArgs(t *testing.T) {
	args := []string{`"v1"`, ` "Rover ""One""" `, `"{""a"":1}"`, "42"}
	out := CleanArgs(args)

	assert.Equal(t, []string{"v1", `Rover "One`, `{"a":1}`, "42"}, out)
	assert.Equal(t, "v1", args[0], "cleans in place")
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "0 m", FormatDistance(0))
	assert.Equal(t, "850 m", FormatDistance(850.4))
	assert.Equal(t, "1.0 km", FormatDistance(1000))
	assert.Equal(t, "10.5 km", FormatDistance(10471.9755))
}
