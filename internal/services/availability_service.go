package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stays/internal/models"
)

const bookingsCollection = "bookings"

// IAvailabilityService answers whether a listing is free for a stay.
type IAvailabilityService interface {
	// CheckAvailability reports whether rng is free on the listing, ignoring excludeBookingID
	// when set. ctx may be a mongo.SessionContext to read inside a transaction.
	CheckAvailability(ctx context.Context, listingID primitive.ObjectID, rng models.DateRange, excludeBookingID *primitive.ObjectID) (bool, error)
	// BlockedRanges lists the ranges held by pending or confirmed bookings, by check-in.
	BlockedRanges(ctx context.Context, listingID primitive.ObjectID) ([]models.DateRange, error)
}

type availabilityService struct {
	db *mongo.Database
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(db *mongo.Database) IAvailabilityService {
	return &availabilityService{db: db}
}

func (s *availabilityService) CheckAvailability(ctx context.Context, listingID primitive.ObjectID, rng models.DateRange, excludeBookingID *primitive.ObjectID) (bool, error) {
	if !rng.Valid() {
		return false, ErrInvalidDateRange
	}

	err := s.db.Collection(bookingsCollection).
		FindOne(ctx, ConflictFilter(listingID, rng, excludeBookingID), options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check availability of listing %s: %w", listingID.Hex(), err)
	}
	return false, nil
}

func (s *availabilityService) BlockedRanges(ctx context.Context, listingID primitive.ObjectID) ([]models.DateRange, error) {
	filter := bson.M{
		"listing_id": listingID,
		"status":     bson.M{"$in": models.BlockingStatuses},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: 1}}).
		SetProjection(bson.M{"check_in": 1, "check_out": 1})

	cursor, err := s.db.Collection(bookingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings of listing %s: %w", listingID.Hex(), err)
	}
	defer cursor.Close(ctx)

	ranges := []models.DateRange{}
	if err := cursor.All(ctx, &ranges); err != nil {
		return nil, fmt.Errorf("failed to decode bookings of listing %s: %w", listingID.Hex(), err)
	}
	return ranges, nil
}

// ConflictFilter matches blocking bookings of the listing that share a night with rng:
// existing.check_in < rng.CheckOut and existing.check_out > rng.CheckIn.
func ConflictFilter(listingID primitive.ObjectID, rng models.DateRange, excludeBookingID *primitive.ObjectID) bson.M {
	filter := bson.M{
		"listing_id": listingID,
		"status":     bson.M{"$in": models.BlockingStatuses},
		"check_in":   bson.M{"$lt": rng.CheckOut},
		"check_out":  bson.M{"$gt": rng.CheckIn},
	}
	if excludeBookingID != nil {
		filter["_id"] = bson.M{"$ne": *excludeBookingID}
	}
	return filter
}

// Conflicts is the in-memory form of ConflictFilter over already loaded bookings.
func Conflicts(existing []models.Booking, candidate models.DateRange, excludeBookingID *primitive.ObjectID) bool {
	for _, b := range existing {
		if excludeBookingID != nil && b.ID == *excludeBookingID {
			continue
		}
		if b.Status.Blocks() && b.DateRange.Overlaps(candidate) {
			return true
		}
	}
	return false
}
