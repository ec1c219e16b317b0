package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stays/internal/config"
	"stays/internal/db"
	"stays/internal/models"
)

const listingsCollection = "listings"

// Autocomplete bounds.
const (
	AutocompleteMinChars = 2
	AutocompleteLimit    = 8
)

// IndexQueue schedules out-of-band search index maintenance. Writes to listings only
// enqueue; the index catches up asynchronously.
type IndexQueue interface {
	EnqueueListingIndex(ctx context.Context, listingID primitive.ObjectID) error
	EnqueueIndexRebuild(ctx context.Context) error
}

// ListingInput is the host-editable part of a listing.
type ListingInput struct {
	Title         string              `json:"title" binding:"required,max=200"`
	Description   string              `json:"description"`
	PropertyType  models.PropertyType `json:"property_type" binding:"required,property_type"`
	PricePerNight float64             `json:"price_per_night" binding:"gte=0"`
	Address       string              `json:"address" binding:"max=300"`
	City          string              `json:"city" binding:"required,max=100"`
	State         string              `json:"state" binding:"max=100"`
	Country       string              `json:"country" binding:"required,max=100"`
	Latitude      *float64            `json:"latitude" binding:"omitempty,latitude"`
	Longitude     *float64            `json:"longitude" binding:"omitempty,longitude"`
	Guests        int                 `json:"guests" binding:"gte=1"`
	Bedrooms      int                 `json:"bedrooms" binding:"gte=0"`
	Beds          int                 `json:"beds" binding:"gte=0"`
	Bathrooms     float64             `json:"bathrooms" binding:"gte=0"`

	HasWifi      bool `json:"has_wifi"`
	HasKitchen   bool `json:"has_kitchen"`
	HasParking   bool `json:"has_parking"`
	HasPool      bool `json:"has_pool"`
	HasAC        bool `json:"has_ac"`
	HasWasher    bool `json:"has_washer"`
	HasTV        bool `json:"has_tv"`
	HasGym       bool `json:"has_gym"`
	HasWorkspace bool `json:"has_workspace"`
	HasFireplace bool `json:"has_fireplace"`
	HasBBQ       bool `json:"has_bbq"`
	HasEVCharger bool `json:"has_ev_charger"`

	IsActive *bool `json:"is_active"`
	// Images are only read on create; the first one becomes primary.
	Images []string `json:"images" binding:"omitempty,dive,url"`
}

// ListingInputFrom returns the editable fields of an existing listing, so a partial
// update can be decoded on top of it.
func ListingInputFrom(l *models.Listing) ListingInput {
	active := l.IsActive
	return ListingInput{
		Title: l.Title, Description: l.Description, PropertyType: l.PropertyType,
		PricePerNight: l.PricePerNight, Address: l.Address, City: l.City, State: l.State,
		Country: l.Country, Latitude: l.Latitude, Longitude: l.Longitude,
		Guests: l.Guests, Bedrooms: l.Bedrooms, Beds: l.Beds, Bathrooms: l.Bathrooms,
		HasWifi: l.HasWifi, HasKitchen: l.HasKitchen, HasParking: l.HasParking, HasPool: l.HasPool,
		HasAC: l.HasAC, HasWasher: l.HasWasher, HasTV: l.HasTV, HasGym: l.HasGym,
		HasWorkspace: l.HasWorkspace, HasFireplace: l.HasFireplace, HasBBQ: l.HasBBQ,
		HasEVCharger: l.HasEVCharger,
		IsActive: &active,
	}
}

// Validate checks the invariants the store relies on, independent of request binding.
func (in *ListingInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !in.PropertyType.Valid():
		return fmt.Errorf("%w: unknown property type %q", ErrInvalidInput, in.PropertyType)
	case in.PricePerNight < 0 || math.IsNaN(in.PricePerNight) || math.IsInf(in.PricePerNight, 0):
		return fmt.Errorf("%w: price_per_night must be a non-negative amount", ErrInvalidInput)
	case strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.Country) == "":
		return fmt.Errorf("%w: city and country are required", ErrInvalidInput)
	case in.Guests < 1:
		return fmt.Errorf("%w: guests must be at least 1", ErrInvalidInput)
	case in.Bedrooms < 0 || in.Beds < 0:
		return fmt.Errorf("%w: bedrooms and beds cannot be negative", ErrInvalidInput)
	case in.Bathrooms < 0 || math.Mod(in.Bathrooms*2, 1) != 0:
		return fmt.Errorf("%w: bathrooms must be a non-negative multiple of 0.5", ErrInvalidInput)
	case in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90):
		return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	case in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180):
		return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}
	return nil
}

// fields is the $set document of an update; Images and the owner are never included.
func (in *ListingInput) fields() bson.M {
	m := bson.M{
		"title":           strings.TrimSpace(in.Title),
		"description":     in.Description,
		"property_type":   in.PropertyType,
		"price_per_night": models.RoundPrice(in.PricePerNight),
		"address":         in.Address,
		"city":            strings.TrimSpace(in.City),
		"state":           in.State,
		"country":         strings.TrimSpace(in.Country),
		"latitude":        roundCoord(in.Latitude),
		"longitude":       roundCoord(in.Longitude),
		"guests":          in.Guests,
		"bedrooms":        in.Bedrooms,
		"beds":            in.Beds,
		"bathrooms":       in.Bathrooms,
		"has_wifi":        in.HasWifi,
		"has_kitchen":     in.HasKitchen,
		"has_parking":     in.HasParking,
		"has_pool":        in.HasPool,
		"has_ac":          in.HasAC,
		"has_washer":      in.HasWasher,
		"has_tv":          in.HasTV,
		"has_gym":         in.HasGym,
		"has_workspace":   in.HasWorkspace,
		"has_fireplace":   in.HasFireplace,
		"has_bbq":         in.HasBBQ,
		"has_ev_charger":  in.HasEVCharger,
	}
	if in.IsActive != nil {
		m["is_active"] = *in.IsActive
	}
	return m
}

// roundCoord keeps six decimals.
func roundCoord(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1e6) / 1e6
	return &r
}

// ImageInput describes an image added to an existing listing.
type ImageInput struct {
	URL       string `json:"url" binding:"required,url"`
	Caption   string `json:"caption" binding:"max=200"`
	IsPrimary bool   `json:"is_primary"`
}

// IListingService defines listing storage and the read model built on it.
type IListingService interface {
	CreateListing(ctx context.Context, hostID primitive.ObjectID, input ListingInput) (*models.Listing, *models.HostGrant, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	// FindListingsByIDs resolves ids to active listings in the given order, silently
	// skipping ids that are missing or inactive.
	FindListingsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error)
	FindListingsByHost(ctx context.Context, hostID primitive.ObjectID) ([]models.Listing, error)
	UpdateListing(ctx context.Context, listingID, hostID primitive.ObjectID, input ListingInput) (*models.Listing, error)
	DeactivateListing(ctx context.Context, listingID, hostID primitive.ObjectID) error
	AddImage(ctx context.Context, listingID, hostID primitive.ObjectID, input ImageInput) (*models.ListingImage, error)
	DecorateListings(ctx context.Context, listings []models.Listing) ([]models.ListingView, error)
	Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error)
	HostStats(ctx context.Context, hostID primitive.ObjectID) (*models.HostStats, error)
	// ForEachActiveListing streams every active listing to fn, stopping at its first error.
	ForEachActiveListing(ctx context.Context, fn func(*models.Listing) error) error
}

// listingService implements IListingService.
type listingService struct {
	db         *mongo.Database
	cfg        *config.Config
	reviews    IReviewService
	users      IUserService
	indexQueue IndexQueue
}

// NewListingService creates a new ListingService. indexQueue may be nil, in which case
// the search index is only refreshed by rebuilds.
func NewListingService(db *mongo.Database, cfg *config.Config, reviews IReviewService, users IUserService, indexQueue IndexQueue) IListingService {
	return &listingService{db: db, cfg: cfg, reviews: reviews, users: users, indexQueue: indexQueue}
}

// CreateListing stores a new listing and returns the host grant the caller must apply.
func (s *listingService) CreateListing(ctx context.Context, hostID primitive.ObjectID, input ListingInput) (*models.Listing, *models.HostGrant, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()

	images := make([]models.ListingImage, 0, len(input.Images))
	for i, url := range input.Images {
		images = append(images, models.ListingImage{URL: url, IsPrimary: i == 0, Order: i})
	}

	listing := &models.Listing{
		ID:            primitive.NewObjectID(),
		HostID:        hostID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		PropertyType:  input.PropertyType,
		PricePerNight: models.RoundPrice(input.PricePerNight),
		Address:       input.Address,
		City:          strings.TrimSpace(input.City),
		State:         input.State,
		Country:       strings.TrimSpace(input.Country),
		Latitude:      roundCoord(input.Latitude),
		Longitude:     roundCoord(input.Longitude),
		Guests:        input.Guests,
		Bedrooms:      input.Bedrooms,
		Beds:          input.Beds,
		Bathrooms:     input.Bathrooms,
		HasWifi:       input.HasWifi,
		HasKitchen:    input.HasKitchen,
		HasParking:    input.HasParking,
		HasPool:       input.HasPool,
		HasAC:         input.HasAC,
		HasWasher:     input.HasWasher,
		HasTV:         input.HasTV,
		HasGym:        input.HasGym,
		HasWorkspace:  input.HasWorkspace,
		HasFireplace:  input.HasFireplace,
		HasBBQ:        input.HasBBQ,
		HasEVCharger:  input.HasEVCharger,
		Images:        images,
		IsActive:      input.IsActive == nil || *input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.db.Collection(listingsCollection).InsertOne(ctx, listing); err != nil {
		return nil, nil, fmt.Errorf("failed to insert new listing for host %s: %w", hostID.Hex(), err)
	}
	s.enqueueIndex(ctx, listing.ID)

	grant := &models.HostGrant{UserID: hostID, ListingID: listing.ID, GrantedAt: now}
	return listing, grant, nil
}

// FindListingByID finds a listing by its ID, active or not. It does NOT check ownership.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", listingID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

func (s *listingService) FindListingsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{
		"_id":       bson.M{"$in": ids},
		"is_active": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load listings by id: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.Listing
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return orderByIDs(found, ids), nil
}

// orderByIDs arranges listings in the order of ids, dropping ids with no listing.
func orderByIDs(listings []models.Listing, ids []primitive.ObjectID) []models.Listing {
	byID := make(map[primitive.ObjectID]*models.Listing, len(listings))
	for i := range listings {
		byID[listings[i].ID] = &listings[i]
	}
	ordered := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, *l)
			delete(byID, id)
		}
	}
	return ordered
}

func (s *listingService) FindListingsByHost(ctx context.Context, hostID primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"host_id": hostID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings of host %s: %w", hostID.Hex(), err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings of host %s: %w", hostID.Hex(), err)
	}
	return listings, nil
}

// findOwned loads a listing and checks that hostID owns it.
func (s *listingService) findOwned(ctx context.Context, listingID, hostID primitive.ObjectID) (*models.Listing, error) {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.HostID != hostID {
		return nil, fmt.Errorf("listing %s does not belong to user %s: %w", listingID.Hex(), hostID.Hex(), ErrForbidden)
	}
	return listing, nil
}

// UpdateListing replaces the editable fields of a listing owned by hostID.
func (s *listingService) UpdateListing(ctx context.Context, listingID, hostID primitive.ObjectID, input ListingInput) (*models.Listing, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findOwned(ctx, listingID, hostID); err != nil {
		return nil, err
	}

	set := input.fields()
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": listingID, "host_id": hostID}, bson.M{"$set": set}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", listingID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}
	s.enqueueIndex(ctx, listingID)
	return &updated, nil
}

// DeactivateListing hides a listing from search and booking. Bookings and reviews are kept.
func (s *listingService) DeactivateListing(ctx context.Context, listingID, hostID primitive.ObjectID) error {
	if _, err := s.findOwned(ctx, listingID, hostID); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "host_id": hostID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("db error deactivating listing %s: %w", listingID.Hex(), err)
	}
	s.enqueueIndex(ctx, listingID)
	return nil
}

var errImagesChanged = errors.New("listing images changed concurrently")

// AddImage appends an image after the existing ones. The append is conditional on the
// image count read, so concurrent uploads never share an order value.
func (s *listingService) AddImage(ctx context.Context, listingID, hostID primitive.ObjectID, input ImageInput) (*models.ListingImage, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	var image models.ListingImage
	op := func() error {
		listing, err := s.findOwned(ctx, listingID, hostID)
		if err != nil {
			return err
		}
		n := len(listing.Images)
		image = models.ListingImage{URL: input.URL, Caption: input.Caption, IsPrimary: input.IsPrimary, Order: n}

		sizeFilter := bson.M{"$size": n}
		if n == 0 {
			// Absent, null or empty.
			sizeFilter = bson.M{"$in": bson.A{nil, bson.A{}}}
		}
		var update interface{} = bson.M{
			"$push": bson.M{"images": image},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		}
		if image.IsPrimary {
			// A listing has at most one primary image.
			update = bson.A{bson.M{"$set": bson.M{
				"images": bson.M{"$concatArrays": bson.A{
					bson.M{"$map": bson.M{
						"input": bson.M{"$ifNull": bson.A{"$images", bson.A{}}},
						"in":    bson.M{"$mergeObjects": bson.A{"$$this", bson.M{"is_primary": false}}},
					}},
					bson.A{bson.M{"$literal": image}},
				}},
				"updated_at": time.Now().UTC(),
			}}}
		}
		result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
			bson.M{"_id": listingID, "host_id": hostID, "images": sizeFilter},
			update,
		)
		if err != nil {
			return fmt.Errorf("failed to add image to listing %s: %w", listingID.Hex(), err)
		}
		if result.MatchedCount == 0 {
			return errImagesChanged
		}
		return nil
	}

	err := db.WithRetries(op, db.DefaultMaxRetries, func(err error) bool {
		return errors.Is(err, errImagesChanged)
	})
	if err != nil {
		return nil, err
	}
	s.enqueueIndex(ctx, listingID)
	return &image, nil
}

// DecorateListings computes the read-time fields of each listing: ratings, primary
// image, host display fields and the superhost label.
func (s *listingService) DecorateListings(ctx context.Context, listings []models.Listing) ([]models.ListingView, error) {
	views := make([]models.ListingView, 0, len(listings))
	if len(listings) == 0 {
		return views, nil
	}

	ids := make([]primitive.ObjectID, 0, len(listings))
	hostSet := map[primitive.ObjectID]struct{}{}
	var hostIDs []primitive.ObjectID
	for _, l := range listings {
		ids = append(ids, l.ID)
		if _, seen := hostSet[l.HostID]; !seen {
			hostSet[l.HostID] = struct{}{}
			hostIDs = append(hostIDs, l.HostID)
		}
	}

	summaries, err := s.reviews.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	hostCounts, err := s.countListingsByHosts(ctx, hostIDs)
	if err != nil {
		return nil, err
	}
	hosts, err := s.users.FindByIDs(ctx, hostIDs)
	if err != nil {
		return nil, err
	}

	for i := range listings {
		l := &listings[i]
		view := models.NewListingView(l, summaries[l.ID], hostCounts[l.HostID])
		views = append(views, view.WithHost(hosts[l.HostID]))
	}
	return views, nil
}

func (s *listingService) countListingsByHosts(ctx context.Context, hostIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"host_id": bson.M{"$in": hostIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$host_id", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.db.Collection(listingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings per host: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		HostID primitive.ObjectID `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode listing counts: %w", err)
	}
	counts := make(map[primitive.ObjectID]int64, len(rows))
	for _, r := range rows {
		counts[r.HostID] = r.Count
	}
	return counts, nil
}

// Autocomplete suggests distinct city/country pairs of active listings whose city
// contains q. Queries shorter than two characters get no suggestions.
func (s *listingService) Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error) {
	suggestions := []models.AutocompleteSuggestion{}
	q = strings.TrimSpace(q)
	if len([]rune(q)) < AutocompleteMinChars {
		return suggestions, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_active": true,
			"city":      primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"},
		}}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"city": "$city", "country": "$country"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.city", Value: 1}, {Key: "_id.country", Value: 1}}}},
		{{Key: "$limit", Value: AutocompleteLimit}},
	}
	cursor, err := s.db.Collection(listingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to run autocomplete for %q: %w", q, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID models.AutocompleteSuggestion `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode autocomplete results: %w", err)
	}
	for _, r := range rows {
		sug := r.ID
		sug.Label = sug.City + ", " + sug.Country
		suggestions = append(suggestions, sug)
	}
	return suggestions, nil
}

// HostStats aggregates the host dashboard numbers over all of the host's listings.
func (s *listingService) HostStats(ctx context.Context, hostID primitive.ObjectID) (*models.HostStats, error) {
	listings, err := s.FindListingsByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	stats := &models.HostStats{TotalListings: int64(len(listings))}
	ids := make([]primitive.ObjectID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
		if l.IsActive {
			stats.ActiveListings++
		}
	}
	if len(ids) == 0 {
		return stats, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listing_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$total_price"},
			"guests":  bson.M{"$sum": "$guests"},
		}}},
	}
	cursor, err := s.db.Collection(bookingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings of host %s: %w", hostID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status  models.BookingStatus `bson:"_id"`
		Count   int64                `bson:"count"`
		Revenue float64              `bson:"revenue"`
		Guests  int64                `bson:"guests"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking aggregates: %w", err)
	}
	for _, r := range rows {
		stats.TotalBookings += r.Count
		switch r.Status {
		case models.BookingPending:
			stats.PendingBookings = r.Count
		case models.BookingConfirmed:
			stats.ConfirmedBookings = r.Count
		}
		if r.Status == models.BookingConfirmed || r.Status == models.BookingCompleted {
			stats.TotalRevenue += r.Revenue
			stats.TotalGuests += r.Guests
		}
	}
	stats.TotalRevenue = models.RoundPrice(stats.TotalRevenue)

	summary, err := s.reviews.CombinedRatingSummary(ctx, ids)
	if err != nil {
		return nil, err
	}
	stats.AverageRating = summary.Average
	stats.TotalReviews = summary.Count
	return stats, nil
}

func (s *listingService) ForEachActiveListing(ctx context.Context, fn func(*models.Listing) error) error {
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to scan active listings: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var listing models.Listing
		if err := cursor.Decode(&listing); err != nil {
			return fmt.Errorf("failed to decode listing during scan: %w", err)
		}
		if err := fn(&listing); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// enqueueIndex schedules an index refresh for the listing. Failures are logged only:
// the listing write already succeeded and the next rebuild repairs the index.
func (s *listingService) enqueueIndex(ctx context.Context, listingID primitive.ObjectID) {
	if s.indexQueue == nil {
		return
	}
	if err := s.indexQueue.EnqueueListingIndex(ctx, listingID); err != nil {
		log.Printf("Failed to enqueue index task for listing %s: %v", listingID.Hex(), err)
	}
}
