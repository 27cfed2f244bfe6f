// Package dates normalizes calendar days. Every stay boundary, pricing rule
// and booked night is stored as UTC midnight of its calendar day so that
// comparisons never depend on the server's or the client's time zone.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar days.
const Layout = "2006-01-02"

// Day returns UTC midnight of t's calendar date as seen in t's own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Stored returns the calendar day of an instant read back from storage.
// Days are written as UTC midnight, but drivers may scan them into the
// local zone, so the instant is moved back to UTC before truncating.
func Stored(t time.Time) time.Time {
	return Day(t.UTC())
}

// Today returns the current calendar day in UTC.
func Today(now time.Time) time.Time {
	return Day(now.UTC())
}

// Parse reads a YYYY-MM-DD string as a calendar day.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Key formats a day for use as a map key or in JSON.
func Key(t time.Time) string {
	return Day(t).Format(Layout)
}

// Nights counts the nights in the half-open stay [checkIn, checkOut).
// Inverted ranges yield a negative count.
func Nights(checkIn, checkOut time.Time) int {
	in, out := Day(checkIn), Day(checkOut)
	return int(out.Sub(in).Round(time.Hour).Hours() / 24)
}

// Each calls fn for every day of [from, to) in order and stops early when
// fn returns false.
func Each(from, to time.Time, fn func(day time.Time) bool) {
	end := Day(to)
	for d := Day(from); d.Before(end); d = d.AddDate(0, 0, 1) {
		if !fn(d) {
			return
		}
	}
}

// Span returns the days of [from, to).
func Span(from, to time.Time) []time.Time {
	var days []time.Time
	Each(from, to, func(d time.Time) bool {
		days = append(days, d)
		return true
	})
	return days
}
