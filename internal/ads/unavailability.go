package ads

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"staybook/internal/booking"
)

// Filter selects blocks by their position relative to today.
type Filter string

const (
	FilterAll      Filter = "tous"
	FilterUpcoming Filter = "a-venir"
	FilterPast     Filter = "termine"
)

// Filters in display order.
var Filters = []Filter{FilterAll, FilterUpcoming, FilterPast}

// Label is the chip text of the filter.
func (f Filter) Label() string {
	switch f {
	case FilterUpcoming:
		return "À venir"
	case FilterPast:
		return "Terminé"
	default:
		return "Tous"
	}
}

// ParseFilter accepts a filter id or label, case-insensitively. "" is FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Filters {
		if s == string(f) || s == strings.ToLower(f.Label()) {
			return f, nil
		}
	}
	switch s {
	case "", "all":
		return FilterAll, nil
	case "avenir", "upcoming":
		return FilterUpcoming, nil
	case "past":
		return FilterPast, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Unavailability is a period, both days included, during which an ad cannot be booked.
type Unavailability struct {
	ID     string
	AdID   string
	Start  time.Time
	End    time.Time
	Reason string
}

// Status places the block relative to today: a block not yet over is upcoming.
func (u Unavailability) Status(today time.Time) Filter {
	if u.End.Before(booking.Day(today)) {
		return FilterPast
	}
	return FilterUpcoming
}

// Unavailabilities are the blocked periods of the host's ads. They live for
// the screen session and are not persisted.
type Unavailabilities struct {
	now func() time.Time

	mu    sync.Mutex
	items []Unavailability
}

// NewUnavailabilities returns the blocks in items, dated against now.
func NewUnavailabilities(items []Unavailability, now func() time.Time) *Unavailabilities {
	if now == nil {
		now = time.Now
	}
	return &Unavailabilities{now: now, items: slices.Clone(items)}
}

// List returns the blocks of adID matching f, latest start first.
func (u *Unavailabilities) List(adID string, f Filter) []Unavailability {
	today := u.now()

	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Unavailability, 0)
	for _, item := range u.items {
		if item.AdID != adID {
			continue
		}
		if f != FilterAll && f != "" && item.Status(today) != f {
			continue
		}
		out = append(out, item)
	}
	slices.SortStableFunc(out, func(x, y Unavailability) int {
		return y.Start.Compare(x.Start)
	})
	return out
}

// StatusOf places item relative to the list's today.
func (u *Unavailabilities) StatusOf(item Unavailability) Filter {
	return item.Status(u.now())
}

// Count returns the number of blocks of adID.
func (u *Unavailabilities) Count(adID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, item := range u.items {
		if item.AdID == adID {
			n++
		}
	}
	return n
}

// Block records that adID is unavailable from start to end. The reason is
// required and end may not come before start.
func (u *Unavailabilities) Block(adID string, start, end time.Time, reason string) (Unavailability, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Unavailability{}, &ValidationError{Field: "reason", Message: "Veuillez indiquer un motif."}
	}
	start, end = booking.Day(start), booking.Day(end)
	if end.Before(start) {
		return Unavailability{}, &ValidationError{Field: "end", Message: "La date de fin doit suivre la date de début."}
	}

	item := Unavailability{
		ID:     uuid.NewString(),
		AdID:   adID,
		Start:  start,
		End:    end,
		Reason: reason,
	}
	u.mu.Lock()
	u.items = append(u.items, item)
	u.mu.Unlock()
	return item, nil
}
