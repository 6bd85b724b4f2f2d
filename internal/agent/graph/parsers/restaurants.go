package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// ParseRestaurants extracts the JSON array of restaurants an extraction
// model produced from page text. Entries that are not objects are skipped.
func ParseRestaurants(content string) ([]model.Restaurant, error) {
	content, _ = clampContent("restaurant_parser", content)
	raw, err := extractJSON(content, '[', ']')
	if err != nil {
		return nil, fmt.Errorf("restaurant list: %w", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("restaurant list json: %w", err)
	}

	out := make([]model.Restaurant, 0, len(items))
	for _, item := range items {
		if len(out) >= maxRecords {
			logx.Warn().
				Str("component", "restaurant_parser").
				Int("max_records", maxRecords).
				Msg("record processing capped")
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, RestaurantFromMap(m))
	}
	return out, nil
}

// RestaurantFromMap converts a loosely typed record into a Restaurant.
func RestaurantFromMap(m map[string]any) model.Restaurant {
	r := model.Restaurant{
		Name:                 asString(m["name"]),
		CuisineType:          asString(m["cuisine_type"]),
		Rating:               asFloat(m["rating"]),
		ReviewCount:          asInt(m["review_count"]),
		PriceRange:           model.ParsePriceTier(asString(m["price_range"])),
		Address:              asString(m["address"]),
		City:                 asString(m["city"]),
		Phone:                asString(m["phone"]),
		Website:              asString(m["website"]),
		Features:             asStrings(m["features"]),
		DietaryOptions:       asStrings(m["dietary_options"]),
		OperatingHours:       asString(m["operating_hours"]),
		ReservationAvailable: asBool(m["reservation_available"]),
	}
	r.Normalize()
	return r
}

// ParseObject extracts the first JSON object from content.
func ParseObject(content string) (map[string]any, error) {
	content, _ = clampContent("object_parser", content)
	raw, err := extractJSON(content, '{', '}')
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
