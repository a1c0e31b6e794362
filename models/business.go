package models

import "time"

// Business holds the structured data extracted from one Google Maps
// listing detail page. Every field is optional except SourceURL, which is
// always the resolved detail-page URL at extraction time. A business with
// an empty Name is a failed extraction, not a valid zero-data record.
type Business struct {
	Name         string   `json:"name,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`
	Category     string   `json:"category,omitempty"`
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	Hours        string   `json:"hours,omitempty"`
	SourceURL    string   `json:"source_url"`

	ScrapedAt time.Time `json:"scraped_at"`
}

// Failed reports whether this record represents a failed extraction.
func (b *Business) Failed() bool {
	return b.Name == ""
}

// SearchSession describes one scrape invocation. Immutable once created.
type SearchSession struct {
	Query         string
	Location      string
	ResultLimit   int
	NoWebsiteOnly bool
}

// Term returns the search term fed to the maps search URL.
func (s SearchSession) Term() string {
	return s.Query + " in " + s.Location
}

// InsightReport holds the computed analytics over a scraped dataset.
type InsightReport struct {
	TotalBusinesses int
	RatedBusinesses int
	AverageRating   float64
	MinRating       float64
	MaxRating       float64
	TopRated        []*Business
	WithWebsite     int
	WithoutWebsite  int
	ByCategory      map[string]int
}
