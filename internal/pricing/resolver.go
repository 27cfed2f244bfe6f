// Package pricing resolves the nightly price of an apartment for one
// calendar day from its base price and per-day rules.
package pricing

import (
	"sort"
	"time"

	"rentals/server/internal/dates"
	"rentals/server/internal/models"
)

// Night is the resolved price and blocked state of one calendar day.
type Night struct {
	Date       time.Time `json:"date"`
	Price      int64     `json:"price"`
	Blocked    bool      `json:"blocked"`
	Overridden bool      `json:"overridden"`
}

type Resolver struct {
	basePrice int64
	rules     map[string]models.PricingRule
}

// NewResolver indexes rules by calendar day. When two rules share a day the
// later one in the slice wins.
func NewResolver(basePrice int64, rules []models.PricingRule) *Resolver {
	r := &Resolver{
		basePrice: basePrice,
		rules:     make(map[string]models.PricingRule, len(rules)),
	}
	for _, rule := range rules {
		rule.Date = dates.Stored(rule.Date)
		r.rules[dates.Key(rule.Date)] = rule
	}
	return r
}

func (r *Resolver) BasePrice() int64 {
	return r.basePrice
}

// Resolve returns the price for day. A rule for the day replaces the base
// price and the blocked flag; a rule without a positive price only blocks or
// unblocks.
func (r *Resolver) Resolve(day time.Time) Night {
	day = dates.Day(day)
	night := Night{Date: day, Price: r.basePrice}

	rule, ok := r.rules[dates.Key(day)]
	if !ok {
		return night
	}
	night.Overridden = true
	night.Blocked = rule.Blocked
	if rule.Price > 0 {
		night.Price = rule.Price
	}
	return night
}

// Rules returns the indexed rules for days on or after from, in date order.
func (r *Resolver) Rules(from time.Time) []models.PricingRule {
	from = dates.Day(from)
	out := make([]models.PricingRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if !rule.Date.Before(from) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
