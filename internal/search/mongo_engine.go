package search

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stays/internal/models"
)

const listingsCollection = "listings"

// MongoEngine searches the canonical listings collection directly. It is the
// authoritative fallback: substring matching instead of fuzzy ranking, same filters.
type MongoEngine struct {
	db *mongo.Database
}

// NewMongoEngine creates the store-backed engine.
func NewMongoEngine(db *mongo.Database) *MongoEngine {
	return &MongoEngine{db: db}
}

// Name implements Engine.
func (e *MongoEngine) Name() string {
	return models.EngineStore
}

// Search implements Engine.
func (e *MongoEngine) Search(ctx context.Context, params models.SearchParams) (*Hits, error) {
	collection := e.db.Collection(listingsCollection)
	filter := BuildStoreFilter(params)

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	opts := options.Find().
		SetSort(BuildStoreSort(params.Ordering)).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute listing search query: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode listing search results: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return &Hits{IDs: ids, Total: total}, nil
}

// BuildStoreFilter translates search params into a listings collection filter.
func BuildStoreFilter(params models.SearchParams) bson.M {
	filter := bson.M{"is_active": true}

	if params.Query != "" {
		rx := containsRegex(params.Query)
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"city": rx},
			bson.M{"country": rx},
			bson.M{"description": rx},
		}
	}

	f := params.Filters
	if f.PropertyType != nil {
		filter["property_type"] = string(*f.PropertyType)
	}
	if f.City != nil {
		filter["city"] = containsRegex(*f.City)
	}
	if f.Country != nil {
		filter["country"] = containsRegex(*f.Country)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price_per_night"] = price
	}
	if f.MinGuests != nil {
		filter["guests"] = bson.M{"$gte": *f.MinGuests}
	}
	if f.MinBedrooms != nil {
		filter["bedrooms"] = bson.M{"$gte": *f.MinBedrooms}
	}
	for _, amenity := range f.Amenities {
		filter[amenity] = true
	}
	return filter
}

// BuildStoreSort returns the sort document; _id breaks ties so paging is stable.
func BuildStoreSort(o models.Ordering) bson.D {
	dir := 1
	if o.Descending() {
		dir = -1
	}
	return bson.D{{Key: o.Field(), Value: dir}, {Key: "_id", Value: 1}}
}

// containsRegex matches s anywhere in the field, case-insensitively, with s taken literally.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
