package ads

import "time"

const unsplash = "https://images.unsplash.com/"

// SeedAds returns the ads shown before the backend serves them.
func SeedAds() []Ad {
	return []Ad{
		{
			ID: "1", Title: "Villa Horizon", Location: "Assinie, CI", Price: "120.000",
			Description: "Superbe villa en bordure de lagune avec piscine.", Status: StatusActive,
			Photos: []string{
				unsplash + "photo-1600585154340-be6161a56a0c?q=80&w=500",
				unsplash + "photo-1600566753190-17f0bb2a6c3e?q=80&w=500",
				unsplash + "photo-1600607687920-4e2a09cf159d?q=80&w=500",
				unsplash + "photo-1600566753086-00f18fb6f3ea?q=80&w=500",
			},
		},
		{
			ID: "2", Title: "Luxury Suite", Location: "Plateau, Abidjan", Price: "45.000",
			Description: "Studio moderne au centre des affaires.", Status: StatusActive,
			Photos: []string{
				unsplash + "photo-1512917774080-9991f1c4c750?q=80&w=500",
				unsplash + "photo-1613490493576-7fde63acd811?q=80&w=500",
				unsplash + "photo-1613977252422-434f9c092414?q=80&w=500",
				unsplash + "photo-1516455590571-18256e5bb9ff?q=80&w=500",
			},
		},
		{
			ID: "3", Title: "Villa Tahiba", Location: "Cocody, Abidjan", Price: "150.000",
			Description: "Propriété de luxe avec grand jardin.", Status: StatusOccupied,
			Photos: []string{unsplash + "photo-1613490493576-7fde63acd811?w=800"},
		},
		{
			ID: "4", Title: "L'Oasis Bleue", Location: "Grand-Bassam", Price: "95.000",
			Description: "Cadre paisible idéal pour les week-ends.", Status: StatusPending,
			Photos: []string{unsplash + "photo-1580587767303-941bd174d3f7?w=800"},
		},
	}
}

// SeedUnavailabilities returns the blocked periods matching SeedAds.
func SeedUnavailabilities() []Unavailability {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []Unavailability{
		{ID: "1", AdID: "1", Start: day(2024, time.June, 15), End: day(2024, time.June, 20), Reason: "Vacances familiales"},
		{ID: "2", AdID: "1", Start: day(2024, time.May, 1), End: day(2024, time.May, 3), Reason: "Rénovation cuisine"},
		{ID: "3", AdID: "1", Start: day(2024, time.January, 10), End: day(2024, time.January, 12), Reason: "Maintenance clim"},
		{ID: "4", AdID: "1", Start: day(2023, time.December, 24), End: day(2023, time.December, 26), Reason: "Fêtes fin d'année"},
	}
}
