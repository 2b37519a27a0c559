// Package catalog holds the listings shown on the home screen and the search
// over them.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"staybook/internal/domain"
)

//go:embed listings.json
var seedListings []byte

// CategoryAll disables the category filter.
const CategoryAll = "all"

// Category is a home screen filter chip.
type Category struct {
	ID   string
	Name string
}

// Categories in display order.
var Categories = []Category{
	{ID: CategoryAll, Name: "Tout"},
	{ID: "villa", Name: "Villas"},
	{ID: "pool", Name: "Piscines"},
	{ID: "beach", Name: "Plages"},
	{ID: "apartment", Name: "Apparts"},
}

// IsCategory reports whether id names a known category.
func IsCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Catalog is an in-memory, read-only set of listings.
type Catalog struct {
	listings []domain.Listing
}

// New returns a catalog of the given listings, in order.
func New(listings []domain.Listing) *Catalog {
	return &Catalog{listings: append([]domain.Listing(nil), listings...)}
}

// Load returns the catalog of bundled listings.
func Load() (*Catalog, error) {
	var listings []domain.Listing
	if err := json.Unmarshal(seedListings, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode bundled listings: %w", err)
	}
	return New(listings), nil
}

// All returns every listing.
func (c *Catalog) All() []domain.Listing {
	return append([]domain.Listing(nil), c.listings...)
}

// ByID returns the listing with id.
func (c *Catalog) ByID(id string) (domain.Listing, bool) {
	for _, l := range c.listings {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

// Search filters by a case-insensitive substring of the title or location,
// then by category. An empty query and CategoryAll match everything.
func (c *Catalog) Search(query, category string) []domain.Listing {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Listing, 0, len(c.listings))
	for _, l := range c.listings {
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Location), query) {
			continue
		}
		if category != "" && category != CategoryAll && l.Category != category {
			continue
		}
		out = append(out, l)
	}
	return out
}
