package search_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays/internal/models"
	"stays/internal/search"
)

// asJSON round-trips v so nested maps and slices compare as plain JSON values.
func asJSON(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func normalized(p models.SearchParams) models.SearchParams {
	p.Normalize(12, 50)
	return p
}

func TestBuildQuery_MatchAllWithoutText(t *testing.T) {
	q := asJSON(t, search.BuildQuery(normalized(models.SearchParams{})))

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "match_all")

	filter := boolQuery["filter"].([]interface{})
	require.Len(t, filter, 1)
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"is_active": true}}, filter[0])

	assert.Equal(t, float64(0), q["from"])
	assert.Equal(t, float64(12), q["size"])
	assert.Equal(t, true, q["track_total_hits"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		map[string]interface{}{"listing_id": map[string]interface{}{"order": "asc"}},
	}, q["sort"])
}

func TestBuildQuery_TextAndFilters(t *testing.T) {
	pt := models.PropertyVilla
	city := "San*"
	minPrice, maxPrice := 50.0, 200.0
	guests, bedrooms := 4, 2
	params := normalized(models.SearchParams{
		Query:    "sea view",
		Ordering: models.OrderPriceAsc,
		Page:     3,
		PageSize: 10,
		Filters: models.SearchFilters{
			PropertyType: &pt,
			City:         &city,
			MinPrice:     &minPrice,
			MaxPrice:     &maxPrice,
			MinGuests:    &guests,
			MinBedrooms:  &bedrooms,
			Amenities:    []string{models.AmenityPool, models.AmenityWifi},
		},
	})

	q := asJSON(t, search.BuildQuery(params))
	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})

	match := boolQuery["must"].([]interface{})[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "sea view", match["query"])
	assert.Equal(t, "AUTO", match["fuzziness"])
	assert.Contains(t, match["fields"], "title^3")

	filter := boolQuery["filter"].([]interface{})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"property_type": "villa"}})
	assert.Contains(t, filter, map[string]interface{}{"wildcard": map[string]interface{}{
		"city.keyword": map[string]interface{}{"value": `*San\**`, "case_insensitive": true},
	}})
	assert.Contains(t, filter, map[string]interface{}{"range": map[string]interface{}{
		"price_per_night": map[string]interface{}{"gte": 50.0, "lte": 200.0},
	}})
	assert.Contains(t, filter, map[string]interface{}{"range": map[string]interface{}{"guests": map[string]interface{}{"gte": 4.0}}})
	assert.Contains(t, filter, map[string]interface{}{"range": map[string]interface{}{"bedrooms": map[string]interface{}{"gte": 2.0}}})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"has_pool": true}})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"has_wifi": true}})

	assert.Equal(t, float64(20), q["from"])
	assert.Equal(t, float64(10), q["size"])
	sort := q["sort"].([]interface{})
	assert.Equal(t, map[string]interface{}{"price_per_night": map[string]interface{}{"order": "asc"}}, sort[0])
}

func TestBuildQuery_UnknownOrderingUsesDefault(t *testing.T) {
	malicious := asJSON(t, search.BuildQuery(normalized(models.SearchParams{Ordering: "malicious_field"})))
	def := asJSON(t, search.BuildQuery(normalized(models.SearchParams{Ordering: models.DefaultOrdering})))

	assert.Equal(t, def, malicious)
}
