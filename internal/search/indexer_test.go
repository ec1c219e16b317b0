package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
	"stays/internal/search"
)

func TestNewListingDocument(t *testing.T) {
	lat, lon := 48.85, 2.35
	l := &models.Listing{
		ID:            primitive.NewObjectID(),
		Title:         "Canal Flat",
		City:          "Paris",
		Country:       "France",
		PropertyType:  models.PropertyApartment,
		PricePerNight: 130,
		Guests:        3,
		IsActive:      true,
		HasWifi:       true,
		Latitude:      &lat,
		Longitude:     &lon,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(search.NewListingDocument(l))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, l.ID.Hex(), doc["listing_id"])
	assert.Equal(t, "apartment", doc["property_type"])
	assert.Equal(t, true, doc["has_wifi"])
	assert.Equal(t, false, doc["has_pool"])
	assert.NotContains(t, doc, "Amenities")
	assert.Equal(t, map[string]interface{}{"lat": 48.85, "lon": 2.35}, doc["location"])
	assert.Equal(t, "2026-03-01T12:00:00Z", doc["created_at"])
}

func TestNewListingDocument_NoCoordinates(t *testing.T) {
	raw, err := json.Marshal(search.NewListingDocument(&models.Listing{ID: primitive.NewObjectID()}))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.NotContains(t, doc, "location")
}

func TestIndexer_EnsureIndex(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		fake, client := newFakeElastic(t, map[string]fakeResponse{
			"HEAD /listings": {status: http.StatusOK},
		})

		created, err := search.NewIndexer(client, "listings").EnsureIndex(context.Background())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Len(t, fake.recorded(), 1)
	})

	t.Run("creates with mapping", func(t *testing.T) {
		fake, client := newFakeElastic(t, map[string]fakeResponse{
			"PUT /listings": {status: http.StatusOK, body: `{"acknowledged":true}`},
		})

		created, err := search.NewIndexer(client, "listings").EnsureIndex(context.Background())
		require.NoError(t, err)
		assert.True(t, created)

		reqs := fake.recorded()
		require.Len(t, reqs, 2)
		assert.Equal(t, http.MethodPut, reqs[1].Method)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(reqs[1].Body, &body))
		props := body["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"type": "keyword"}, props["listing_id"])
		assert.Contains(t, props, "has_ev_charger")
	})

	t.Run("create fails", func(t *testing.T) {
		_, client := newFakeElastic(t, map[string]fakeResponse{
			"PUT /listings": {status: http.StatusBadRequest, body: `{"error":"resource_already_exists_exception"}`},
		})

		created, err := search.NewIndexer(client, "listings").EnsureIndex(context.Background())
		assert.Error(t, err)
		assert.False(t, created)
	})
}

func TestIndexer_UpsertAndDelete(t *testing.T) {
	l := &models.Listing{ID: primitive.NewObjectID(), Title: "Dune House", IsActive: true}
	docPath := "/listings/_doc/" + l.ID.Hex()
	fake, client := newFakeElastic(t, map[string]fakeResponse{
		"PUT " + docPath:          {status: http.StatusCreated, body: `{"result":"created"}`},
		"POST /listings/_refresh": {status: http.StatusOK, body: `{}`},
	})
	ix := search.NewIndexer(client, "listings")
	ctx := context.Background()

	require.NoError(t, ix.UpsertListing(ctx, l))
	require.NoError(t, ix.Refresh(ctx))
	// The fake answers 404 for the DELETE: a missing document is fine.
	require.NoError(t, ix.DeleteListing(ctx, l.ID))

	reqs := fake.recorded()
	require.Len(t, reqs, 3)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &doc))
	assert.Equal(t, "Dune House", doc["title"])
	assert.Equal(t, http.MethodDelete, reqs[2].Method)
	assert.Equal(t, docPath, reqs[2].Path)
}

func TestIndexer_DeleteFailure(t *testing.T) {
	id := primitive.NewObjectID()
	_, client := newFakeElastic(t, map[string]fakeResponse{
		"DELETE /listings/_doc/" + id.Hex(): {status: http.StatusServiceUnavailable, body: `{}`},
	})

	assert.Error(t, search.NewIndexer(client, "listings").DeleteListing(context.Background(), id))
}
