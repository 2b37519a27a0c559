// Package booking holds the screen state of stay requests: the date range
// picker, the price quote and the guest and host booking lists.
package booking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"staybook/internal/catalog"
)

// DayLayout is the wire format of a calendar day.
const DayLayout = "2006-01-02"

const displayLayout = "02/01/2006"

var (
	// ErrPastDay is returned when picking a day before today.
	ErrPastDay = errors.New("day is in the past")
	// ErrIncompleteRange is returned when a stay is requested without an end day.
	ErrIncompleteRange = errors.New("stay has no end day")
)

// Day truncates t to its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// Range is a stay from Start to End. End is zero while the range is open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both ends are set.
func (r Range) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Nights is the number of nights of a complete range, 0 otherwise.
func (r Range) Nights() int {
	if !r.Complete() {
		return 0
	}
	hours := math.Abs(r.End.Sub(r.Start).Hours())
	return int(math.Ceil(hours / 24))
}

// Label is the text of the date button.
func (r Range) Label() string {
	switch {
	case r.Start.IsZero():
		return "Choisir vos dates"
	case r.End.IsZero():
		return "Dès le " + r.Start.Format(displayLayout)
	default:
		return r.Start.Format(displayLayout) + " - " + r.End.Format(displayLayout)
	}
}

// RangePicker builds a Range from successive day taps.
type RangePicker struct {
	today time.Time
	r     Range
}

// NewRangePicker returns an empty picker refusing days before today.
func NewRangePicker(today time.Time) *RangePicker {
	return &RangePicker{today: Day(today)}
}

// Pick applies a tap on day. The first tap, or a tap after a complete range,
// starts a new range; a later day closes it; any other day restarts from it.
func (p *RangePicker) Pick(day time.Time) (Range, error) {
	day = Day(day)
	if day.Before(p.today) {
		return p.r, ErrPastDay
	}

	switch {
	case p.r.Start.IsZero() || p.r.Complete():
		p.r = Range{Start: day}
	case day.After(p.r.Start):
		p.r.End = day
	default:
		p.r = Range{Start: day}
	}
	return p.r, nil
}

// Range returns the current selection.
func (p *RangePicker) Range() Range {
	return p.r
}

// Reset clears the selection.
func (p *RangePicker) Reset() {
	p.r = Range{}
}

// Quote is the price summary of a stay.
type Quote struct {
	Nights   int
	PerNight int64
	Total    int64
}

// NewQuote prices a stay at the display price per night. An open range costs nothing.
func NewQuote(price string, r Range) Quote {
	perNight := catalog.ParsePrice(price)
	nights := r.Nights()
	return Quote{Nights: nights, PerNight: perNight, Total: int64(nights) * perNight}
}

// TotalLabel formats the total, e.g. "255.000 FCFA".
func (q Quote) TotalLabel() string {
	return catalog.FormatPrice(q.Total)
}
