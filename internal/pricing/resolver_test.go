package pricing

import (
	"testing"
	"time"

	"rentals/server/internal/models"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveBasePrice(t *testing.T) {
	r := NewResolver(1000, nil)

	night := r.Resolve(day(2026, 1, 1))
	assert.Equal(t, int64(1000), night.Price)
	assert.False(t, night.Blocked)
	assert.False(t, night.Overridden)
}

func TestResolveRuleOverrides(t *testing.T) {
	r := NewResolver(1000, []models.PricingRule{
		{Date: day(2026, 1, 2), Price: 1500},
		{Date: day(2026, 1, 3), Price: 1200, Blocked: true},
		{Date: day(2026, 1, 4), Blocked: true},
	})

	tests := []struct {
		name    string
		day     time.Time
		price   int64
		blocked bool
	}{
		{"no rule", day(2026, 1, 1), 1000, false},
		{"price override", day(2026, 1, 2), 1500, false},
		{"blocked with price", day(2026, 1, 3), 1200, true},
		{"blocked without price keeps base", day(2026, 1, 4), 1000, true},
		{"after rules", day(2026, 1, 5), 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			night := r.Resolve(tt.day)
			assert.Equal(t, tt.price, night.Price)
			assert.Equal(t, tt.blocked, night.Blocked)
		})
	}
}

func TestResolveNormalizesTimeOfDay(t *testing.T) {
	r := NewResolver(1000, []models.PricingRule{
		{Date: day(2026, 1, 2), Price: 1500},
	})

	// Late evening in a zone behind UTC is still Jan 2 for the guest
	evening := time.Date(2026, 1, 2, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	night := r.Resolve(evening)
	assert.Equal(t, int64(1500), night.Price)
	assert.Equal(t, day(2026, 1, 2), night.Date)

	// A rule stored with a time component still matches its calendar day
	r = NewResolver(1000, []models.PricingRule{
		{Date: time.Date(2026, 1, 2, 15, 30, 0, 0, time.UTC), Price: 900},
	})
	assert.Equal(t, int64(900), r.Resolve(day(2026, 1, 2)).Price)
}

func TestResolveRuleScannedInLocalZone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	r := NewResolver(1000, []models.PricingRule{
		{Date: day(2025, 1, 2).In(est), Price: 1500},
		{Date: day(2025, 1, 4).In(est), Blocked: true},
	})

	assert.Equal(t, int64(1000), r.Resolve(day(2025, 1, 1)).Price)
	assert.Equal(t, int64(1500), r.Resolve(day(2025, 1, 2)).Price)
	assert.False(t, r.Resolve(day(2025, 1, 3)).Blocked)
	assert.True(t, r.Resolve(day(2025, 1, 4)).Blocked)

	rules := r.Rules(day(2025, 1, 2))
	if assert.Len(t, rules, 2) {
		assert.Equal(t, day(2025, 1, 2), rules[0].Date)
		assert.Equal(t, day(2025, 1, 4), rules[1].Date)
	}
}

func TestRulesFrom(t *testing.T) {
	r := NewResolver(1000, []models.PricingRule{
		{Date: day(2026, 1, 5), Price: 1500},
		{Date: day(2026, 1, 1), Price: 1100},
		{Date: day(2026, 1, 3), Blocked: true},
	})

	rules := r.Rules(day(2026, 1, 2))
	if assert.Len(t, rules, 2) {
		assert.Equal(t, day(2026, 1, 3), rules[0].Date)
		assert.Equal(t, day(2026, 1, 5), rules[1].Date)
	}
}
