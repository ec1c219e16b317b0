package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stays/internal/db"
	"stays/internal/models"
)

const reviewsCollection = "reviews"

// CreateReviewInput carries the author-supplied fields of a review.
type CreateReviewInput struct {
	BookingID     *primitive.ObjectID
	Rating        int
	Cleanliness   *int
	Accuracy      *int
	Communication *int
	Location      *int
	Value         *int
	Comment       string
}

// IReviewService defines review operations and the rating aggregates listings display.
type IReviewService interface {
	CreateReview(ctx context.Context, listingID, authorID primitive.ObjectID, input CreateReviewInput) (*models.Review, error)
	ListReviews(ctx context.Context, listingID primitive.ObjectID) ([]models.Review, error)
	// RatingSummaries returns a summary for every requested listing; listings without
	// reviews get a nil average and a zero count.
	RatingSummaries(ctx context.Context, listingIDs []primitive.ObjectID) (map[primitive.ObjectID]models.RatingSummary, error)
	// CombinedRatingSummary pools the reviews of all the given listings.
	CombinedRatingSummary(ctx context.Context, listingIDs []primitive.ObjectID) (models.RatingSummary, error)
}

type reviewService struct {
	db *mongo.Database
}

// NewReviewService creates a new ReviewService.
func NewReviewService(db *mongo.Database) IReviewService {
	return &reviewService{db: db}
}

func (s *reviewService) CreateReview(ctx context.Context, listingID, authorID primitive.ObjectID, input CreateReviewInput) (*models.Review, error) {
	if err := validateReviewInput(input); err != nil {
		return nil, err
	}

	n, err := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": listingID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up listing %s: %w", listingID.Hex(), err)
	}
	if n == 0 {
		return nil, fmt.Errorf("listing %s: %w", listingID.Hex(), ErrNotFound)
	}

	review := &models.Review{
		ID:            primitive.NewObjectID(),
		ListingID:     listingID,
		AuthorID:      authorID,
		BookingID:     input.BookingID,
		Rating:        input.Rating,
		Cleanliness:   input.Cleanliness,
		Accuracy:      input.Accuracy,
		Communication: input.Communication,
		Location:      input.Location,
		Value:         input.Value,
		Comment:       strings.TrimSpace(input.Comment),
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.Collection(reviewsCollection).InsertOne(ctx, review); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("failed to insert review for listing %s: %w", listingID.Hex(), err)
	}
	return review, nil
}

func validateReviewInput(input CreateReviewInput) error {
	if !models.ValidRating(input.Rating) {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, models.MinRating, models.MaxRating)
	}
	subs := map[string]*int{
		"cleanliness":   input.Cleanliness,
		"accuracy":      input.Accuracy,
		"communication": input.Communication,
		"location":      input.Location,
		"value":         input.Value,
	}
	for name, v := range subs {
		if v != nil && !models.ValidRating(*v) {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidInput, name, models.MinRating, models.MaxRating)
		}
	}
	return nil
}

func (s *reviewService) ListReviews(ctx context.Context, listingID primitive.ObjectID) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(reviewsCollection).Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews of listing %s: %w", listingID.Hex(), err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews of listing %s: %w", listingID.Hex(), err)
	}
	return reviews, nil
}

func (s *reviewService) RatingSummaries(ctx context.Context, listingIDs []primitive.ObjectID) (map[primitive.ObjectID]models.RatingSummary, error) {
	ratings, err := s.ratingsByListing(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	summaries := make(map[primitive.ObjectID]models.RatingSummary, len(listingIDs))
	for _, id := range listingIDs {
		summaries[id] = models.RatingSummary{
			Average: models.AverageRating(ratings[id]),
			Count:   len(ratings[id]),
		}
	}
	return summaries, nil
}

func (s *reviewService) CombinedRatingSummary(ctx context.Context, listingIDs []primitive.ObjectID) (models.RatingSummary, error) {
	ratings, err := s.ratingsByListing(ctx, listingIDs)
	if err != nil {
		return models.RatingSummary{}, err
	}
	var all []int
	for _, rs := range ratings {
		all = append(all, rs...)
	}
	return models.RatingSummary{Average: models.AverageRating(all), Count: len(all)}, nil
}

// ratingsByListing groups the raw ratings per listing. Averages are computed in Go
// so every caller rounds the same way.
func (s *reviewService) ratingsByListing(ctx context.Context, listingIDs []primitive.ObjectID) (map[primitive.ObjectID][]int, error) {
	out := make(map[primitive.ObjectID][]int, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listing_id": bson.M{"$in": listingIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$listing_id", "ratings": bson.M{"$push": "$rating"}}}},
	}
	cursor, err := s.db.Collection(reviewsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ListingID primitive.ObjectID `bson:"_id"`
		Ratings   []int              `bson:"ratings"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rating aggregates: %w", err)
	}
	for _, r := range rows {
		out[r.ListingID] = r.Ratings
	}
	return out, nil
}
