package booking

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// Bookings is the guest's list of stay requests. It lives for the screen
// session and is not persisted.
type Bookings struct {
	mu    sync.Mutex
	items []domain.Booking
}

// NewBookings returns a list holding items.
func NewBookings(items []domain.Booking) *Bookings {
	return &Bookings{items: slices.Clone(items)}
}

// List returns the bookings with status (or all of them), newest stay first.
func (b *Bookings) List(status string) []domain.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Booking, 0, len(b.items))
	for _, item := range b.items {
		if status == "" || status == StatusAll || string(item.Status) == status {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(x, y domain.Booking) int {
		return y.StartDate.Compare(x.StartDate)
	})
	return out
}

// Cancel removes the booking with id. It reports whether one was removed.
func (b *Bookings) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.items)
	b.items = slices.DeleteFunc(b.items, func(item domain.Booking) bool { return item.ID == id })
	return len(b.items) != n
}

// Request adds a pending booking of listing over a complete range.
func (b *Bookings) Request(listing domain.Listing, r Range) (domain.Booking, error) {
	if !r.Complete() {
		return domain.Booking{}, ErrIncompleteRange
	}
	quote := NewQuote(listing.Price, r)
	booking := domain.Booking{
		ID:        uuid.NewString(),
		Title:     listing.Title,
		Location:  listing.Location,
		Dates:     r.Label(),
		Price:     quote.TotalLabel(),
		Status:    domain.StatusPending,
		Image:     listing.Cover(),
		StartDate: r.Start,
	}

	b.mu.Lock()
	b.items = append(b.items, booking)
	b.mu.Unlock()
	return booking, nil
}

// SeedBookings is the demo list shown to a new guest.
func SeedBookings() []domain.Booking {
	return []domain.Booking{
		{
			ID: "1", Title: "Villa Horizon - Piscine", Location: "Assinie, CI",
			Dates: "12/02/2026 - 15/02/2026", Price: "255.000 FCFA", Status: domain.StatusPending,
			Image:     "https://images.unsplash.com/photo-1512917774080-9991f1c4c750?w=800",
			StartDate: time.Date(2026, time.February, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "2", Title: "Appartement Chic Plateau", Location: "Abidjan, CI",
			Dates: "01/01/2026 - 03/01/2026", Price: "90.000 FCFA", Status: domain.StatusConfirmed,
			Image:     "https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800",
			StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "3", Title: "Bungalow Bord de Mer", Location: "Grand-Bassam, CI",
			Dates: "15/12/2025 - 20/12/2025", Price: "180.000 FCFA", Status: domain.StatusCompleted,
			Image:     "https://images.unsplash.com/photo-1499793983690-e29da59ef1c2?w=800",
			StartDate: time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "4", Title: "Studio Moderne Cocody", Location: "Abidjan, CI",
			Dates: "10/02/2026 - 12/02/2026", Price: "45.000 FCFA", Status: domain.StatusDeclined,
			Image:     "https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800",
			StartDate: time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

// Received is the host's list of incoming requests.
type Received struct {
	items []domain.ReceivedBooking
}

// NewReceived returns a list holding items.
func NewReceived(items []domain.ReceivedBooking) *Received {
	return &Received{items: slices.Clone(items)}
}

// List filters by status (or StatusAll) and then by a case-insensitive
// substring of the guest or property name.
func (r *Received) List(status, query string) []domain.ReceivedBooking {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.ReceivedBooking, 0, len(r.items))
	for _, item := range r.items {
		if status != "" && status != StatusAll && string(item.Status) != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Guest), query) &&
			!strings.Contains(strings.ToLower(item.Property), query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// SeedReceived is the demo list shown to a new host.
func SeedReceived() []domain.ReceivedBooking {
	return []domain.ReceivedBooking{
		{ID: "1", Property: "Villa Horizon", Guest: "Jean Marc K.", Dates: "12 - 15 Fév. 2024",
			Price: "360.000 FCFA", Avatar: "https://i.pravatar.cc/150?u=1", Status: domain.StatusPending},
		{ID: "2", Property: "Luxury Suite", Guest: "Awa Diop", Dates: "20 - 22 Fév. 2024",
			Price: "90.000 FCFA", Avatar: "https://i.pravatar.cc/150?u=5", Status: domain.StatusConfirmed},
		{ID: "3", Property: "Villa Oasis", Guest: "Boris V.", Dates: "05 - 08 Mars 2024",
			Price: "255.000 FCFA", Avatar: "https://i.pravatar.cc/150?u=8", Status: domain.StatusDeclined},
	}
}
