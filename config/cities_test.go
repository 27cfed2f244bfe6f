package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCityNames(t *testing.T) {
	names := GetCityNames()
	assert.Len(t, names, len(SupportedCities))
	assert.Contains(t, names, "Amsterdam")
	assert.Contains(t, names, "Den Haag")
}

func TestGetCityByName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Display name", input: "Amsterdam", expected: "amsterdam"},
		{name: "Lower case", input: "lisbon", expected: "lisbon"},
		{name: "Slug", input: "den-haag", expected: "den-haag"},
		{name: "Name with spaces", input: "Den  Haag", expected: "den-haag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city := GetCityByName(tt.input)
			require.NotNil(t, city)
			assert.Equal(t, tt.expected, city.Slug)
		})
	}

	assert.Nil(t, GetCityByName("Atlantis"))
}

func TestGetCityByNameReturnsCopy(t *testing.T) {
	city := GetCityByName("Utrecht")
	require.NotNil(t, city)
	city.Name = "Changed"

	assert.Equal(t, "Utrecht", GetCityByName("Utrecht").Name)
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple city name",
			input:    "Amsterdam",
			expected: "amsterdam",
		},
		{
			name:     "City name with spaces",
			input:    "Den Haag",
			expected: "den-haag",
		},
		{
			name:     "City name with apostrophe",
			input:    "'s-Hertogenbosch",
			expected: "s-hertogenbosch",
		},
		{
			name:     "Mixed case with spaces",
			input:    "Alphen aan den Rijn",
			expected: "alphen-aan-den-rijn",
		},
		{
			name:     "Already normalized",
			input:    "utrecht",
			expected: "utrecht",
		},
		{
			name:     "Multiple spaces",
			input:    "Bergen  op  Zoom",
			expected: "bergen-op-zoom",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  Lisbon ",
			expected: "lisbon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeCity(tt.input)
			assert.Equal(t, tt.expected, result,
				"NormalizeCity(%q) = %q, want %q", tt.input, result, tt.expected)
		})
	}
}
