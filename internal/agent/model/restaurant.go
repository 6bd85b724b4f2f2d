package model

import "strings"

// PriceTier is the normalised price band of a restaurant.
type PriceTier string

const (
	PriceBudget     PriceTier = "budget"
	PriceModerate   PriceTier = "moderate"
	PriceUpscale    PriceTier = "upscale"
	PriceFineDining PriceTier = "fine-dining"
)

var priceSymbols = map[string]PriceTier{
	"$":    PriceBudget,
	"$$":   PriceModerate,
	"$$$":  PriceUpscale,
	"$$$$": PriceFineDining,
}

// ParsePriceTier accepts either dollar symbols or tier names and defaults
// to moderate.
func ParsePriceTier(v string) PriceTier {
	v = strings.ToLower(strings.TrimSpace(v))
	if t, ok := priceSymbols[v]; ok {
		return t
	}
	switch PriceTier(v) {
	case PriceBudget, PriceModerate, PriceUpscale, PriceFineDining:
		return PriceTier(v)
	}
	return PriceModerate
}

// Symbol returns the dollar-sign form of the tier.
func (p PriceTier) Symbol() string {
	for sym, t := range priceSymbols {
		if t == p {
			return sym
		}
	}
	return "$$"
}

type Restaurant struct {
	Name                 string    `json:"name"`
	CuisineType          string    `json:"cuisine_type"`
	Rating               float64   `json:"rating"`
	ReviewCount          int       `json:"review_count"`
	PriceRange           PriceTier `json:"price_range"`
	Address              string    `json:"address"`
	City                 string    `json:"city"`
	Phone                string    `json:"phone,omitempty"`
	Website              string    `json:"website,omitempty"`
	Features             []string  `json:"features"`
	DietaryOptions       []string  `json:"dietary_options"`
	OperatingHours       string    `json:"operating_hours,omitempty"`
	ReservationAvailable bool      `json:"reservation_available"`
}

// Normalize clamps the rating into [0,5] and fills empty defaults.
func (r *Restaurant) Normalize() {
	if r.Rating < 0 {
		r.Rating = 0
	}
	if r.Rating > 5 {
		r.Rating = 5
	}
	if r.ReviewCount < 0 {
		r.ReviewCount = 0
	}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = "Unknown Restaurant"
	}
	if strings.TrimSpace(r.CuisineType) == "" {
		r.CuisineType = "Various"
	}
	if r.PriceRange == "" {
		r.PriceRange = PriceModerate
	}
	if r.Features == nil {
		r.Features = []string{}
	}
	if r.DietaryOptions == nil {
		r.DietaryOptions = []string{}
	}
}

const (
	DataSourceSearchAPI = "searchapi"
	DataSourceCatalog   = "catalog"
	DataSourceBrowser   = "browser"
)

// SearchResult is returned by the structured and web-exploration backends.
// Notes carries diagnostics instead of failing the call.
type SearchResult struct {
	Query          string            `json:"query"`
	TotalResults   int               `json:"total_results"`
	Restaurants    []Restaurant      `json:"restaurants"`
	SearchLocation string            `json:"search_location"`
	SearchFilters  map[string]string `json:"search_filters"`
	DataSource     string            `json:"data_source"`
	Notes          string            `json:"notes,omitempty"`
}

// SearchQuery holds the arguments of a structured restaurant search.
type SearchQuery struct {
	Query               string   `json:"query"`
	Cuisine             string   `json:"cuisine,omitempty"`
	Location            string   `json:"location,omitempty"`
	PriceRange          string   `json:"price_range,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	Limit               int      `json:"limit,omitempty"`
}

// Filters renders the non-empty search parameters as strings.
func (q SearchQuery) Filters() map[string]string {
	f := map[string]string{}
	if q.Cuisine != "" {
		f["cuisine"] = q.Cuisine
	}
	if q.Location != "" {
		f["location"] = q.Location
	}
	if q.PriceRange != "" {
		f["price_range"] = q.PriceRange
	}
	if len(q.DietaryRestrictions) > 0 {
		f["dietary_restrictions"] = strings.Join(q.DietaryRestrictions, ",")
	}
	return f
}

// ResearchQuery holds the arguments of a single-restaurant deep dive.
type ResearchQuery struct {
	RestaurantName string   `json:"restaurant_name"`
	Location       string   `json:"location"`
	Topics         []string `json:"research_topics,omitempty"`
}
