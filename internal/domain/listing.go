package domain

import (
	"encoding/json"
	"fmt"
)

// Listing is the snapshot of a rental listing as shown on screen and as copied
// into favorites. It is not a live reference: attributes are frozen at the time
// the snapshot was taken.
type Listing struct {
	// ID is the stable identifier of the listing and the favorites key.
	ID string `json:"id"`

	// Category is one of the catalog categories (villa, pool, beach, apartment).
	Category string `json:"category,omitempty"`

	Title    string `json:"title"`
	Location string `json:"location,omitempty"`

	// Price is the display price per night, e.g. "85.000 FCFA".
	Price string `json:"price,omitempty"`

	// Rating is the display rating, e.g. "4.8".
	Rating string `json:"rating,omitempty"`

	Images ImageList `json:"images,omitempty"`

	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// ImageList holds image URLs. Older clients stored the list as a JSON-encoded
// string ("[\"https://...\"]"), so both shapes are accepted when decoding.
type ImageList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err == nil {
		*l = urls
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("images must be an array or an encoded array: %w", err)
	}
	if encoded == "" {
		*l = nil
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &urls); err != nil {
		return fmt.Errorf("failed to decode encoded image list: %w", err)
	}
	*l = urls
	return nil
}

// Cover returns the first image, or "" when the listing has none.
func (l Listing) Cover() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}
