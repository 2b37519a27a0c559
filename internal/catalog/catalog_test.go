package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain"
)

func ids(listings []domain.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestLoad_BundledListings(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.Len(t, c.All(), 5)

	villa, ok := c.ByID("1")
	require.True(t, ok)
	assert.Equal(t, "Villa Horizon - Piscine Infinity", villa.Title)
	assert.Len(t, villa.Images, 2, "encoded image lists are decoded")
	assert.Equal(t, "https://images.unsplash.com/photo-1512917774080-9991f1c4c750?w=800", villa.Cover())

	_, ok = c.ByID("99")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    string
		category string
		want     []string
	}{
		{"everything", "", CategoryAll, []string{"1", "2", "3", "4", "5"}},
		{"empty category means all", "  ", "", []string{"1", "2", "3", "4", "5"}},
		{"title match is case-insensitive", "VILLA", CategoryAll, []string{"1", "3", "4"}},
		{"location match", "abidjan", CategoryAll, []string{"2", "3", "5"}},
		{"query then category", "abidjan", "apartment", []string{"2", "5"}},
		{"category only", "", "beach", []string{"4"}},
		{"no match", "yamoussoukro", CategoryAll, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(c.Search(tt.query, tt.category)))
		})
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := New([]domain.Listing{{ID: "a"}})
	all := c.All()
	all[0].ID = "changed"
	_, ok := c.ByID("a")
	assert.True(t, ok)
}

func TestCategories(t *testing.T) {
	assert.True(t, IsCategory("pool"))
	assert.True(t, IsCategory(CategoryAll))
	assert.False(t, IsCategory("castle"))
}

func TestPrices(t *testing.T) {
	assert.Equal(t, int64(85000), ParsePrice("85.000 FCFA"))
	assert.Equal(t, int64(50000), ParsePrice("50000"))
	assert.Zero(t, ParsePrice("gratuit"))

	assert.Equal(t, "255.000", FormatAmount(255000))
	assert.Equal(t, "1.200.000 FCFA", FormatPrice(1200000))
	assert.Equal(t, "900 FCFA", FormatPrice(900))
	assert.Equal(t, "0 FCFA", FormatPrice(0))
}
