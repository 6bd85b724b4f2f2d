package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceTier(t *testing.T) {
	assert.Equal(t, PriceBudget, ParsePriceTier("$"))
	assert.Equal(t, PriceFineDining, ParsePriceTier(" $$$$ "))
	assert.Equal(t, PriceUpscale, ParsePriceTier("Upscale"))
	assert.Equal(t, PriceModerate, ParsePriceTier("cheap-ish"))
	assert.Equal(t, "$$$", PriceUpscale.Symbol())
	assert.Equal(t, "$$", PriceTier("").Symbol())
}

func TestRestaurantNormalize(t *testing.T) {
	r := Restaurant{Rating: 7, ReviewCount: -3}
	r.Normalize()
	assert.Equal(t, 5.0, r.Rating)
	assert.Zero(t, r.ReviewCount)
	assert.Equal(t, "Unknown Restaurant", r.Name)
	assert.Equal(t, "Various", r.CuisineType)
	assert.Equal(t, PriceModerate, r.PriceRange)
	assert.NotNil(t, r.Features)
	assert.NotNil(t, r.DietaryOptions)
}

func TestSearchQueryFilters(t *testing.T) {
	q := SearchQuery{Query: "x", Cuisine: "Thai", DietaryRestrictions: []string{"vegan", "halal"}}
	assert.Equal(t, map[string]string{"cuisine": "Thai", "dietary_restrictions": "vegan,halal"}, q.Filters())
}
