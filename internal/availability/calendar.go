// Package availability decides whether a stay can be booked and what it
// costs, from resolved prices and the nights already held by bookings.
package availability

import (
	"fmt"
	"sort"
	"time"

	"rentals/server/internal/dates"
	"rentals/server/internal/models"
	"rentals/server/internal/pricing"
)

type RejectReason string

const (
	RejectInvalidRange    RejectReason = "invalid_range"
	RejectStayTooShort    RejectReason = "stay_too_short"
	RejectDateUnavailable RejectReason = "date_unavailable"
)

// Result is the outcome of a stay check. On rejection Message is readable by
// the guest and Date names the first unavailable day, if any.
type Result struct {
	Available bool            `json:"available"`
	Nights    int             `json:"nights"`
	Total     int64           `json:"total_price"`
	Breakdown []pricing.Night `json:"breakdown,omitempty"`
	Reason    RejectReason    `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
	Date      *time.Time      `json:"date,omitempty"`
}

// Calendar is the per-day view of one apartment.
type Calendar struct {
	resolver *pricing.Resolver
	booked   map[string]struct{}
}

// NewCalendar marks every night of the active bookings as occupied. The
// checkout day of a booking stays free.
func NewCalendar(resolver *pricing.Resolver, bookings []models.Booking) *Calendar {
	c := &Calendar{resolver: resolver, booked: make(map[string]struct{})}
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		dates.Each(dates.Stored(b.StartDate), dates.Stored(b.EndDate), func(d time.Time) bool {
			c.booked[dates.Key(d)] = struct{}{}
			return true
		})
	}
	return c
}

// NewLedgerCalendar marks nights read from the booked-night ledger, which
// holds exactly the nights of active bookings.
func NewLedgerCalendar(resolver *pricing.Resolver, nights []time.Time) *Calendar {
	c := &Calendar{resolver: resolver, booked: make(map[string]struct{}, len(nights))}
	for _, n := range nights {
		c.booked[dates.Key(dates.Stored(n))] = struct{}{}
	}
	return c
}

// IsBooked reports whether an active booking holds the night of day.
func (c *Calendar) IsBooked(day time.Time) bool {
	_, ok := c.booked[dates.Key(day)]
	return ok
}

// Check validates the stay [checkIn, checkOut). It stops at the first
// blocked or booked night.
func (c *Calendar) Check(checkIn, checkOut time.Time, minStay int) Result {
	nights := dates.Nights(checkIn, checkOut)
	if nights <= 0 {
		return Result{
			Reason:  RejectInvalidRange,
			Message: "check-in must be before check-out",
		}
	}
	if minStay < 1 {
		minStay = 1
	}
	if nights < minStay {
		return Result{
			Nights:  nights,
			Reason:  RejectStayTooShort,
			Message: fmt.Sprintf("minimum stay is %d nights", minStay),
		}
	}

	res := Result{Nights: nights, Breakdown: make([]pricing.Night, 0, nights)}
	var unavailable *time.Time
	dates.Each(checkIn, checkOut, func(d time.Time) bool {
		night := c.resolver.Resolve(d)
		if night.Blocked || c.IsBooked(d) {
			unavailable = &night.Date
			return false
		}
		res.Total += night.Price
		res.Breakdown = append(res.Breakdown, night)
		return true
	})

	if unavailable != nil {
		return Result{
			Nights:  nights,
			Reason:  RejectDateUnavailable,
			Message: fmt.Sprintf("%s is not available", dates.Key(*unavailable)),
			Date:    unavailable,
		}
	}
	res.Available = true
	return res
}

// UnavailableFrom lists booked or blocked days on or after from, ascending.
func (c *Calendar) UnavailableFrom(from time.Time) []time.Time {
	from = dates.Day(from)
	seen := make(map[string]time.Time)

	for key := range c.booked {
		d, err := dates.Parse(key)
		if err == nil && !d.Before(from) {
			seen[key] = d
		}
	}
	for _, rule := range c.resolver.Rules(from) {
		if rule.Blocked {
			d := dates.Stored(rule.Date)
			seen[dates.Key(d)] = d
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// PriceMap maps every day of [from, to) to its resolved price, keyed by
// YYYY-MM-DD.
func (c *Calendar) PriceMap(from, to time.Time) map[string]int64 {
	prices := make(map[string]int64)
	dates.Each(from, to, func(d time.Time) bool {
		prices[dates.Key(d)] = c.resolver.Resolve(d).Price
		return true
	})
	return prices
}
