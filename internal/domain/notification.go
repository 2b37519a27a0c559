package domain

// NotificationType categorises an inbox entry.
type NotificationType string

const (
	NotificationBooking NotificationType = "booking"
	NotificationChat    NotificationType = "chat"
)

// Notification is an inbox entry. Listing is set when the notification points
// at a listing the user can open from the detail screen.
type Notification struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Body    string           `json:"body"`
	Type    NotificationType `json:"type"`
	Time    string           `json:"time"`
	Listing *Listing         `json:"listing_data,omitempty"`

	// Read is derived from the read set when listing the inbox; it is never persisted.
	Read bool `json:"-"`
}
