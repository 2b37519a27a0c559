package domain

import "time"

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusDeclined  BookingStatus = "declined"
)

// Label returns the French label shown on status badges.
func (s BookingStatus) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusConfirmed:
		return "Confirmé"
	case StatusCompleted:
		return "Terminé"
	case StatusDeclined:
		return "Refusé"
	default:
		return string(s)
	}
}

// Booking is a stay requested by the current user as a guest.
type Booking struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Location  string        `json:"location"`
	Dates     string        `json:"dates"`
	Price     string        `json:"price"`
	Status    BookingStatus `json:"status"`
	Image     string        `json:"image,omitempty"`
	StartDate time.Time     `json:"start_date"`
}

// ReceivedBooking is a booking request received by the current user as a host.
type ReceivedBooking struct {
	ID       string        `json:"id"`
	Property string        `json:"property"`
	Guest    string        `json:"guest"`
	Dates    string        `json:"dates"`
	Price    string        `json:"price"`
	Avatar   string        `json:"avatar,omitempty"`
	Status   BookingStatus `json:"status"`
}
