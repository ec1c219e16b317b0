package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
)

// indexMapping is the listings index mapping. City and country carry a keyword
// sub-field for the substring filters.
var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"listing_id":      map[string]interface{}{"type": "keyword"},
			"title":           map[string]interface{}{"type": "text"},
			"description":     map[string]interface{}{"type": "text"},
			"city":            textWithKeyword(),
			"state":           map[string]interface{}{"type": "text"},
			"country":         textWithKeyword(),
			"address":         map[string]interface{}{"type": "text"},
			"property_type":   map[string]interface{}{"type": "keyword"},
			"price_per_night": map[string]interface{}{"type": "float"},
			"guests":          map[string]interface{}{"type": "integer"},
			"bedrooms":        map[string]interface{}{"type": "integer"},
			"bathrooms":       map[string]interface{}{"type": "float"},
			"is_active":       map[string]interface{}{"type": "boolean"},
			"has_wifi":        map[string]interface{}{"type": "boolean"},
			"has_kitchen":     map[string]interface{}{"type": "boolean"},
			"has_parking":     map[string]interface{}{"type": "boolean"},
			"has_pool":        map[string]interface{}{"type": "boolean"},
			"has_ac":          map[string]interface{}{"type": "boolean"},
			"has_washer":      map[string]interface{}{"type": "boolean"},
			"has_tv":          map[string]interface{}{"type": "boolean"},
			"has_gym":         map[string]interface{}{"type": "boolean"},
			"has_workspace":   map[string]interface{}{"type": "boolean"},
			"has_fireplace":   map[string]interface{}{"type": "boolean"},
			"has_bbq":         map[string]interface{}{"type": "boolean"},
			"has_ev_charger":  map[string]interface{}{"type": "boolean"},
			"created_at":      map[string]interface{}{"type": "date"},
			"location":        map[string]interface{}{"type": "geo_point"},
		},
	},
}

func textWithKeyword() map[string]interface{} {
	return map[string]interface{}{
		"type":   "text",
		"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
	}
}

// GeoPoint is the index representation of a listing's coordinates.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ListingDocument is the index document mirroring a listing.
type ListingDocument struct {
	ListingID     string          `json:"listing_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Country       string          `json:"country"`
	Address       string          `json:"address"`
	PropertyType  string          `json:"property_type"`
	PricePerNight float64         `json:"price_per_night"`
	Guests        int             `json:"guests"`
	Bedrooms      int             `json:"bedrooms"`
	Bathrooms     float64         `json:"bathrooms"`
	IsActive      bool            `json:"is_active"`
	Amenities     map[string]bool `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	Location      *GeoPoint       `json:"location,omitempty"`
}

// MarshalJSON flattens the amenity flags into top-level boolean fields.
func (d ListingDocument) MarshalJSON() ([]byte, error) {
	type plain ListingDocument
	base, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for name, v := range d.Amenities {
		fields[name] = v
	}
	return json.Marshal(fields)
}

// NewListingDocument converts a listing into its index document.
func NewListingDocument(l *models.Listing) ListingDocument {
	doc := ListingDocument{
		ListingID:     l.ID.Hex(),
		Title:         l.Title,
		Description:   l.Description,
		City:          l.City,
		State:         l.State,
		Country:       l.Country,
		Address:       l.Address,
		PropertyType:  string(l.PropertyType),
		PricePerNight: l.PricePerNight,
		Guests:        l.Guests,
		Bedrooms:      l.Bedrooms,
		Bathrooms:     l.Bathrooms,
		IsActive:      l.IsActive,
		Amenities:     l.AmenityFlags(),
		CreatedAt:     l.CreatedAt.UTC(),
	}
	if l.Latitude != nil && l.Longitude != nil {
		doc.Location = &GeoPoint{Lat: *l.Latitude, Lon: *l.Longitude}
	}
	return doc
}

// Indexer writes listing documents into the index. It is used only by the
// out-of-band indexing tasks; queries never write.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

// NewIndexer creates an Indexer for the given index name.
func NewIndexer(client *elasticsearch.Client, index string) *Indexer {
	return &Indexer{client: client, index: index}
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (ix *Indexer) EnsureIndex(ctx context.Context) (bool, error) {
	res, err := ix.client.Indices.Exists([]string{ix.index}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", ix.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return false, nil
	}
	if res.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("unexpected status checking index %s: %s", ix.index, res.Status())
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return false, fmt.Errorf("failed to encode index mapping: %w", err)
	}
	res, err = ix.client.Indices.Create(ix.index,
		ix.client.Indices.Create.WithBody(bytes.NewReader(body)),
		ix.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", ix.index, err)
	}
	if err := checkResponse(res, "create index "+ix.index); err != nil {
		return false, err
	}
	return true, nil
}

// UpsertListing writes (or overwrites) the listing's document.
func (ix *Indexer) UpsertListing(ctx context.Context, l *models.Listing) error {
	body, err := json.Marshal(NewListingDocument(l))
	if err != nil {
		return fmt.Errorf("failed to encode listing %s: %w", l.ID.Hex(), err)
	}
	res, err := ix.client.Index(ix.index, bytes.NewReader(body),
		ix.client.Index.WithDocumentID(l.ID.Hex()),
		ix.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index listing %s: %w", l.ID.Hex(), err)
	}
	return checkResponse(res, "index listing "+l.ID.Hex())
}

// DeleteListing removes the listing's document. A missing document is not an error.
func (ix *Indexer) DeleteListing(ctx context.Context, id primitive.ObjectID) error {
	res, err := ix.client.Delete(ix.index, id.Hex(), ix.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete listing %s from index: %w", id.Hex(), err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete listing "+id.Hex())
}

// Refresh makes recent writes visible to search.
func (ix *Indexer) Refresh(ctx context.Context) error {
	res, err := ix.client.Indices.Refresh(
		ix.client.Indices.Refresh.WithIndex(ix.index),
		ix.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index %s: %w", ix.index, err)
	}
	return checkResponse(res, "refresh index "+ix.index)
}

// checkResponse closes the body and turns an error status into an error.
func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(msg))
	}
	return nil
}
