package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinewise-core/server/internal/agent/model"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Intent
		wantErr bool
	}{
		{in: "search", want: model.IntentSearch},
		{in: "  SIMPLE.\n", want: model.IntentSimple},
		{in: "off-topic", want: model.IntentOffTopic},
		{in: "offtopic", want: model.IntentOffTopic},
		{in: `{"intent": "search"}`, want: model.IntentSearch},
		{in: "```json\n{\"intent\":\"simple\"}\n```", want: model.IntentSimple},
		{in: "The label is: off_topic", want: model.IntentOffTopic},
		{in: "", wantErr: true},
		{in: "restaurant please", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReflection(t *testing.T) {
	v, err := ParseReflection(`Here you go: {"is_satisfactory": "false", "score": "4", "issues": ["no prices", ""], "feedback": " add prices "}`)
	require.NoError(t, err)
	assert.False(t, v.IsSatisfactory)
	assert.Equal(t, 4, v.Score)
	assert.Equal(t, []string{"no prices"}, v.Issues)
	assert.Equal(t, "add prices", v.Feedback)

	v, err = ParseReflection(`{"score": 8}`)
	require.NoError(t, err)
	assert.True(t, v.IsSatisfactory, "score at or above the pass mark")

	v, err = ParseReflection(`{"score": 42, "issues": "too short, too vague"}`)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Score)
	assert.Equal(t, []string{"too short", "too vague"}, v.Issues)

	_, err = ParseReflection("looks good to me")
	assert.Error(t, err)
	_, err = ParseReflection(`{"score": }`)
	assert.Error(t, err)
}

func TestParseRestaurants(t *testing.T) {
	content := "```json\n" + `[
		{"name": "Afuri Ramen House", "cuisine_type": "Japanese", "rating": "4.6", "review_count": "1,204 reviews",
		 "price_range": "$$", "city": "Portland", "dietary_options": "vegan, vegetarian", "reservation_available": "true"},
		"not a restaurant",
		{"rating": 9}
	]` + "\n```"

	got, err := ParseRestaurants(content)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Afuri Ramen House", got[0].Name)
	assert.Equal(t, 4.6, got[0].Rating)
	assert.Equal(t, 1204, got[0].ReviewCount)
	assert.Equal(t, model.PriceModerate, got[0].PriceRange)
	assert.Equal(t, []string{"vegan", "vegetarian"}, got[0].DietaryOptions)
	assert.True(t, got[0].ReservationAvailable)

	assert.Equal(t, "Unknown Restaurant", got[1].Name)
	assert.Equal(t, "Various", got[1].CuisineType)
	assert.Equal(t, 5.0, got[1].Rating)
	assert.NotNil(t, got[1].Features)

	_, err = ParseRestaurants("no restaurants here")
	assert.Error(t, err)
}

func TestParseRestaurants_CapsRecords(t *testing.T) {
	items := make([]string, maxRecords+10)
	for i := range items {
		items[i] = `{"name":"r"}`
	}
	got, err := ParseRestaurants("[" + strings.Join(items, ",") + "]")
	require.NoError(t, err)
	assert.Len(t, got, maxRecords)
}

func TestParseObject(t *testing.T) {
	got, err := ParseObject(`Findings: {"summary": "uses \"}\" braces", "hours": {"mon": "9-5"}} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `uses "}" braces`, got["summary"])
	assert.Equal(t, map[string]any{"mon": "9-5"}, got["hours"])

	_, err = ParseObject(`{"unterminated": true`)
	assert.Error(t, err)
}

func TestCoercion(t *testing.T) {
	assert.Equal(t, 0.0, asFloat("NaN"))
	assert.Equal(t, 3.5, asFloat(" 3.5 "))
	assert.Equal(t, 0, asInt(true))
	assert.Equal(t, "12", asString(12))
	assert.False(t, asBool("maybe"))
	assert.Equal(t, []string{}, asStrings(nil))
}
