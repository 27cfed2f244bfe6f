package config

import (
	"strings"
	"unicode"

	"github.com/paulmach/orb"
)

// City is a market the marketplace knows the center of. Search uses the
// center for proximity scoring when a query names a city but no point.
type City struct {
	Name   string    `json:"name"`
	Slug   string    `json:"slug"`
	Center orb.Point `json:"center"`
}

// SupportedCities lists the markets with a known center. Listings in other
// cities are accepted; they just get no city-center proximity score.
var SupportedCities = []City{
	{Name: "Amsterdam", Slug: "amsterdam", Center: orb.Point{4.9041, 52.3676}},
	{Name: "Rotterdam", Slug: "rotterdam", Center: orb.Point{4.4777, 51.9244}},
	{Name: "Den Haag", Slug: "den-haag", Center: orb.Point{4.3007, 52.0705}},
	{Name: "Utrecht", Slug: "utrecht", Center: orb.Point{5.1214, 52.0907}},
	{Name: "Lisbon", Slug: "lisbon", Center: orb.Point{-9.1393, 38.7223}},
	{Name: "Barcelona", Slug: "barcelona", Center: orb.Point{2.1734, 41.3851}},
}

// GetCityNames returns the display names of the supported cities
func GetCityNames() []string {
	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName looks a city up by display name or slug, case-insensitively
func GetCityByName(name string) *City {
	slug := NormalizeCity(name)
	for _, city := range SupportedCities {
		if city.Slug == slug {
			c := city
			return &c
		}
	}
	return nil
}

// NormalizeCity turns a free-form city name into the slug stored on listings.
func NormalizeCity(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !dash {
				b.WriteRune('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
