package search

import (
	"context"
	"sort"
	"strings"

	"github.com/dinewise-core/server/internal/agent/model"
)

// Catalog searches an in-process restaurant list. It backs the structured
// search tool when no gateway is configured.
type Catalog struct {
	restaurants []model.Restaurant
}

// NewCatalog returns a catalog over rs, or over SampleRestaurants when rs is empty.
func NewCatalog(rs ...model.Restaurant) *Catalog {
	if len(rs) == 0 {
		rs = SampleRestaurants
	}
	return &Catalog{restaurants: rs}
}

func (c *Catalog) Search(ctx context.Context, q model.SearchQuery) (*model.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []model.Restaurant
	for _, r := range c.restaurants {
		if q.Cuisine != "" && !strings.EqualFold(r.CuisineType, q.Cuisine) {
			continue
		}
		if q.Location != "" && !strings.Contains(strings.ToLower(r.City), strings.ToLower(q.Location)) &&
			!strings.Contains(strings.ToLower(q.Location), strings.ToLower(r.City)) {
			continue
		}
		if !hasAllDietary(r, q.DietaryRestrictions) {
			continue
		}
		if q.Cuisine == "" && q.Location == "" && !matchesQuery(r, q.Query) {
			continue
		}
		matched = append(matched, r)
	}

	// requested price tier first, then by rating
	want := model.ParsePriceTier(q.PriceRange)
	sort.SliceStable(matched, func(i, j int) bool {
		pi, pj := matched[i].PriceRange == want, matched[j].PriceRange == want
		if pi != pj {
			return pi
		}
		return matched[i].Rating > matched[j].Rating
	})

	total := len(matched)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []model.Restaurant{}
	}

	notes := ""
	if total == 0 {
		notes = "No restaurants in the catalog matched these filters."
	}
	return &model.SearchResult{
		Query:          q.Query,
		TotalResults:   total,
		Restaurants:    matched,
		SearchLocation: q.Location,
		SearchFilters:  q.Filters(),
		DataSource:     model.DataSourceCatalog,
		Notes:          notes,
	}, nil
}

func hasAllDietary(r model.Restaurant, want []string) bool {
	for _, d := range want {
		found := false
		for _, have := range r.DietaryOptions {
			if strings.EqualFold(strings.TrimSpace(d), have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesQuery(r model.Restaurant, query string) bool {
	query = strings.ToLower(query)
	if query == "" {
		return true
	}
	for _, field := range []string{r.Name, r.CuisineType, r.City} {
		if field != "" && strings.Contains(query, strings.ToLower(field)) {
			return true
		}
	}
	return false
}

var SampleRestaurants = []model.Restaurant{
	{
		Name:                 "Trattoria Sorella",
		CuisineType:          "Italian",
		Rating:               4.6,
		ReviewCount:          1284,
		PriceRange:           model.PriceModerate,
		Address:              "2201 1st Ave",
		City:                 "Seattle",
		Phone:                "(206) 555-0141",
		Features:             []string{"outdoor seating", "full bar"},
		DietaryOptions:       []string{"vegetarian"},
		OperatingHours:       "Tue-Sun 17:00-22:00",
		ReservationAvailable: true,
	},
	{
		Name:                 "Pasta Casalinga",
		CuisineType:          "Italian",
		Rating:               4.7,
		ReviewCount:          2310,
		PriceRange:           model.PriceBudget,
		Address:              "93 Pike St",
		City:                 "Seattle",
		Features:             []string{"counter service", "quick bites"},
		DietaryOptions:       []string{"vegetarian"},
		OperatingHours:       "Daily 11:00-16:00",
		ReservationAvailable: false,
	},
	{
		Name:                 "Il Forno Nero",
		CuisineType:          "Italian",
		Rating:               4.4,
		ReviewCount:          640,
		PriceRange:           model.PriceUpscale,
		Address:              "1500 Western Ave",
		City:                 "Seattle",
		Features:             []string{"wood-fired oven", "wine list", "waterfront view"},
		DietaryOptions:       []string{"vegetarian", "gluten-free"},
		OperatingHours:       "Daily 17:00-23:00",
		ReservationAvailable: true,
	},
	{
		Name:                 "Osteria Verde",
		CuisineType:          "Italian",
		Rating:               4.5,
		ReviewCount:          512,
		PriceRange:           model.PriceModerate,
		Address:              "412 E Pine St",
		City:                 "Seattle",
		Features:             []string{"happy hour", "patio"},
		DietaryOptions:       []string{"vegetarian", "vegan"},
		OperatingHours:       "Wed-Mon 16:00-22:00",
		ReservationAvailable: true,
	},
	{
		Name:                 "Sushi Kashiba Bay",
		CuisineType:          "Japanese",
		Rating:               4.8,
		ReviewCount:          3015,
		PriceRange:           model.PriceFineDining,
		Address:              "86 Pine St",
		City:                 "Seattle",
		Features:             []string{"omakase", "sushi bar"},
		DietaryOptions:       []string{"gluten-free"},
		OperatingHours:       "Tue-Sat 17:00-21:30",
		ReservationAvailable: true,
	},
	{
		Name:                 "Thai Tom Corner",
		CuisineType:          "Thai",
		Rating:               4.3,
		ReviewCount:          1890,
		PriceRange:           model.PriceBudget,
		Address:              "4543 University Way NE",
		City:                 "Seattle",
		Features:             []string{"counter seating", "takeout"},
		DietaryOptions:       []string{"vegetarian", "vegan", "gluten-free"},
		OperatingHours:       "Daily 11:00-21:00",
		ReservationAvailable: false,
	},
	{
		Name:                 "Green Leaf Kitchen",
		CuisineType:          "Vegan",
		Rating:               4.5,
		ReviewCount:          742,
		PriceRange:           model.PriceModerate,
		Address:              "1920 NW Market St",
		City:                 "Seattle",
		Features:             []string{"brunch", "kid friendly"},
		DietaryOptions:       []string{"vegetarian", "vegan", "gluten-free"},
		OperatingHours:       "Daily 09:00-21:00",
		ReservationAvailable: true,
	},
	{
		Name:                 "Lardo Rosso",
		CuisineType:          "Italian",
		Rating:               4.2,
		ReviewCount:          388,
		PriceRange:           model.PriceModerate,
		Address:              "1205 SW Washington St",
		City:                 "Portland",
		Features:             []string{"late night", "full bar"},
		DietaryOptions:       []string{"vegetarian"},
		OperatingHours:       "Daily 16:00-00:00",
		ReservationAvailable: true,
	},
	{
		Name:                 "Afuri Ramen House",
		CuisineType:          "Japanese",
		Rating:               4.6,
		ReviewCount:          2204,
		PriceRange:           model.PriceModerate,
		Address:              "923 SE 7th Ave",
		City:                 "Portland",
		Features:             []string{"ramen", "izakaya"},
		DietaryOptions:       []string{"vegan"},
		OperatingHours:       "Daily 11:30-22:00",
		ReservationAvailable: false,
	},
	{
		Name:                 "Taqueria El Sol",
		CuisineType:          "Mexican",
		Rating:               4.4,
		ReviewCount:          967,
		PriceRange:           model.PriceBudget,
		Address:              "3410 Mission St",
		City:                 "San Francisco",
		Features:             []string{"takeout", "late night"},
		DietaryOptions:       []string{"vegetarian", "gluten-free"},
		OperatingHours:       "Daily 10:00-02:00",
		ReservationAvailable: false,
	},
}
