package services

import (
	"context"
	"errors"
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

// CreateBookingInput is a guest's booking request.
type CreateBookingInput struct {
	ListingID primitive.ObjectID
	Range     models.DateRange
	Guests    int
	Notes     string
}

// AmendBookingInput changes an existing booking. Nil fields are left as they are.
type AmendBookingInput struct {
	CheckIn  *models.Date
	CheckOut *models.Date
	Guests   *int
	Notes    *string
}

// IBookingService defines booking lifecycle operations.
type IBookingService interface {
	CreateBooking(ctx context.Context, guestID primitive.ObjectID, input CreateBookingInput) (*models.Booking, error)
	AmendBooking(ctx context.Context, bookingID, guestID primitive.ObjectID, input AmendBookingInput) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID, hostID primitive.ObjectID) (*models.Booking, error)
	FindGuestBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.BookingView, error)
	ListGuestBookings(ctx context.Context, guestID primitive.ObjectID) ([]models.BookingView, error)
	ListHostBookings(ctx context.Context, hostID primitive.ObjectID) ([]models.BookingView, error)
}

type bookingService struct {
	db           *mongo.Database
	availability IAvailabilityService
	listings     IListingService
	users        IUserService
}

// NewBookingService creates a new BookingService.
func NewBookingService(db *mongo.Database, availability IAvailabilityService, listings IListingService, users IUserService) IBookingService {
	return &bookingService{db: db, availability: availability, listings: listings, users: users}
}

// CreateBooking books a stay for the guest. The availability check and the insert run in
// one transaction that first bumps the listing's booking_seq, so two concurrent bookings
// of the same listing write-conflict and the loser re-runs the check against the winner's
// booking. total_price is fixed here and never recomputed.
func (s *bookingService) CreateBooking(ctx context.Context, guestID primitive.ObjectID, input CreateBookingInput) (*models.Booking, error) {
	if !input.Range.Valid() {
		return nil, ErrInvalidDateRange
	}
	if input.Guests < 1 {
		return nil, fmt.Errorf("%w: at least one guest is required", ErrInvalidInput)
	}

	listing, err := s.listings.FindListingByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive {
		return nil, fmt.Errorf("listing %s is not active: %w", listing.ID.Hex(), ErrNotFound)
	}
	if input.Guests > listing.Guests {
		return nil, fmt.Errorf("%w: listing accepts at most %d guests", ErrInvalidInput, listing.Guests)
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		ID:         primitive.NewObjectID(),
		ListingID:  listing.ID,
		GuestID:    guestID,
		DateRange:  input.Range,
		Guests:     input.Guests,
		TotalPrice: models.RoundPrice(float64(input.Range.Nights()) * listing.PricePerNight),
		Status:     models.BookingPending,
		Notes:      strings.TrimSpace(input.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = db.InTransaction(ctx, s.db.Client(), func(sc mongo.SessionContext) (interface{}, error) {
		if err := s.lockListing(sc, listing.ID); err != nil {
			return nil, err
		}
		free, err := s.availability.CheckAvailability(sc, listing.ID, booking.DateRange, nil)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, ErrDatesUnavailable
		}
		if _, err := s.db.Collection(bookingsCollection).InsertOne(sc, booking); err != nil {
			return nil, fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// lockListing bumps booking_seq on the active listing. Inside a transaction this write
// is what makes concurrent bookings of the listing conflict.
func (s *bookingService) lockListing(sc mongo.SessionContext, listingID primitive.ObjectID) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(sc,
		bson.M{"_id": listingID, "is_active": true},
		bson.M{"$inc": bson.M{"booking_seq": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to lock listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("listing %s: %w", listingID.Hex(), ErrNotFound)
	}
	return nil
}

// AmendBooking changes dates, guests or notes of the guest's pending or confirmed booking.
// New dates are checked against every other booking under the same listing lock as
// CreateBooking. total_price is left untouched.
func (s *bookingService) AmendBooking(ctx context.Context, bookingID, guestID primitive.ObjectID, input AmendBookingInput) (*models.Booking, error) {
	result, err := db.InTransaction(ctx, s.db.Client(), func(sc mongo.SessionContext) (interface{}, error) {
		current, err := s.findGuestBooking(sc, bookingID, guestID)
		if err != nil {
			return nil, err
		}
		if !current.Status.Blocks() {
			return nil, fmt.Errorf("cannot amend a %s booking: %w", current.Status, ErrInvalidTransition)
		}

		rng := current.DateRange
		if input.CheckIn != nil {
			rng.CheckIn = *input.CheckIn
		}
		if input.CheckOut != nil {
			rng.CheckOut = *input.CheckOut
		}
		if !rng.Valid() {
			return nil, ErrInvalidDateRange
		}

		set := bson.M{"updated_at": time.Now().UTC()}
		if input.Guests != nil {
			if *input.Guests < 1 {
				return nil, fmt.Errorf("%w: at least one guest is required", ErrInvalidInput)
			}
			listing, err := s.listings.FindListingByID(sc, current.ListingID)
			if err != nil {
				return nil, err
			}
			if *input.Guests > listing.Guests {
				return nil, fmt.Errorf("%w: listing accepts at most %d guests", ErrInvalidInput, listing.Guests)
			}
			set["guests"] = *input.Guests
		}
		if input.Notes != nil {
			set["notes"] = strings.TrimSpace(*input.Notes)
		}

		if !rng.CheckIn.Equal(current.CheckIn.Time) || !rng.CheckOut.Equal(current.CheckOut.Time) {
			if err := s.lockListing(sc, current.ListingID); err != nil {
				return nil, err
			}
			free, err := s.availability.CheckAvailability(sc, current.ListingID, rng, &current.ID)
			if err != nil {
				return nil, err
			}
			if !free {
				return nil, ErrDatesUnavailable
			}
			set["check_in"] = rng.CheckIn
			set["check_out"] = rng.CheckOut
		}

		var updated models.Booking
		err = s.db.Collection(bookingsCollection).
			FindOneAndUpdate(sc, bson.M{"_id": current.ID}, bson.M{"$set": set},
				options.FindOneAndUpdate().SetReturnDocument(options.After)).
			Decode(&updated)
		if err != nil {
			return nil, fmt.Errorf("failed to update booking %s: %w", bookingID.Hex(), err)
		}
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Booking), nil
}

// CancelBooking moves the guest's pending or confirmed booking to cancelled.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.Booking, error) {
	return s.transition(ctx,
		bson.M{"_id": bookingID, "guest_id": guestID},
		models.BlockingStatuses, models.BookingCancelled)
}

// ConfirmBooking moves a pending booking to confirmed. Only the listing's host may confirm.
func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID, hostID primitive.ObjectID) (*models.Booking, error) {
	listingIDs, err := s.hostListingIDs(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx,
		bson.M{"_id": bookingID, "listing_id": bson.M{"$in": listingIDs}},
		[]models.BookingStatus{models.BookingPending}, models.BookingConfirmed)
}

// transition atomically sets status to `to` when the booking matched by scope is in
// one of `from`. A booking outside scope reads as not found.
func (s *bookingService) transition(ctx context.Context, scope bson.M, from []models.BookingStatus, to models.BookingStatus) (*models.Booking, error) {
	collection := s.db.Collection(bookingsCollection)

	filter := bson.M{"status": bson.M{"$in": from}}
	for k, v := range scope {
		filter[k] = v
	}
	var updated models.Booking
	err := collection.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to move booking to %s: %w", to, err)
	}

	// Distinguish a missing booking from one in the wrong state.
	var existing models.Booking
	if err := collection.FindOne(ctx, scope).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return nil, fmt.Errorf("cannot move a %s booking to %s: %w", existing.Status, to, ErrInvalidTransition)
}

func (s *bookingService) findGuestBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Collection(bookingsCollection).
		FindOne(ctx, bson.M{"_id": bookingID, "guest_id": guestID}).
		Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s: %w", bookingID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding booking %s: %w", bookingID.Hex(), err)
	}
	return &booking, nil
}

func (s *bookingService) FindGuestBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.BookingView, error) {
	booking, err := s.findGuestBooking(ctx, bookingID, guestID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Booking{*booking})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *bookingService) ListGuestBookings(ctx context.Context, guestID primitive.ObjectID) ([]models.BookingView, error) {
	return s.list(ctx, bson.M{"guest_id": guestID})
}

func (s *bookingService) ListHostBookings(ctx context.Context, hostID primitive.ObjectID) ([]models.BookingView, error) {
	listingIDs, err := s.hostListingIDs(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if len(listingIDs) == 0 {
		return []models.BookingView{}, nil
	}
	return s.list(ctx, bson.M{"listing_id": bson.M{"$in": listingIDs}})
}

func (s *bookingService) hostListingIDs(ctx context.Context, hostID primitive.ObjectID) ([]primitive.ObjectID, error) {
	listings, err := s.listings.FindListingsByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (s *bookingService) list(ctx context.Context, filter bson.M) ([]models.BookingView, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(bookingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return s.views(ctx, bookings)
}

// views decorates bookings with their listing's and guest's display fields. Inactive
// listings still decorate their bookings.
func (s *bookingService) views(ctx context.Context, bookings []models.Booking) ([]models.BookingView, error) {
	guestSet := map[primitive.ObjectID]struct{}{}
	var guestIDs []primitive.ObjectID
	for _, b := range bookings {
		if _, seen := guestSet[b.GuestID]; !seen {
			guestSet[b.GuestID] = struct{}{}
			guestIDs = append(guestIDs, b.GuestID)
		}
	}
	guests, err := s.users.FindByIDs(ctx, guestIDs)
	if err != nil {
		return nil, err
	}

	listings := map[primitive.ObjectID]*models.Listing{}
	views := make([]models.BookingView, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		listing, ok := listings[b.ListingID]
		if !ok {
			found, err := s.listings.FindListingByID(ctx, b.ListingID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			listing = found
			listings[b.ListingID] = found
		}
		views = append(views, models.NewBookingView(b, listing).WithGuest(guests[b.GuestID]))
	}
	return views, nil
}
