package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
	"stays/internal/services"
)

// --- Mocks ---

// MockSearchService
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params models.SearchParams) (*models.SearchPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchPage), args.Error(1)
}

func (m *MockSearchService) Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AutocompleteSuggestion), args.Error(1)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, hostID primitive.ObjectID, input services.ListingInput) (*models.Listing, *models.HostGrant, error) {
	args := m.Called(ctx, hostID, input)
	var listing *models.Listing
	if args.Get(0) != nil {
		listing = args.Get(0).(*models.Listing)
	}
	var grant *models.HostGrant
	if args.Get(1) != nil {
		grant = args.Get(1).(*models.HostGrant)
	}
	return listing, grant, args.Error(2)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingsByHost(ctx context.Context, hostID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID, hostID primitive.ObjectID, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, listingID, hostID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) DeactivateListing(ctx context.Context, listingID, hostID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, hostID)
	return args.Error(0)
}

func (m *MockListingService) AddImage(ctx context.Context, listingID, hostID primitive.ObjectID, input services.ImageInput) (*models.ListingImage, error) {
	args := m.Called(ctx, listingID, hostID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingImage), args.Error(1)
}

func (m *MockListingService) DecorateListings(ctx context.Context, listings []models.Listing) ([]models.ListingView, error) {
	args := m.Called(ctx, listings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingView), args.Error(1)
}

func (m *MockListingService) Autocomplete(ctx context.Context, q string) ([]models.AutocompleteSuggestion, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AutocompleteSuggestion), args.Error(1)
}

func (m *MockListingService) HostStats(ctx context.Context, hostID primitive.ObjectID) (*models.HostStats, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HostStats), args.Error(1)
}

func (m *MockListingService) ForEachActiveListing(ctx context.Context, fn func(*models.Listing) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockReviewService
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) CreateReview(ctx context.Context, listingID, authorID primitive.ObjectID, input services.CreateReviewInput) (*models.Review, error) {
	args := m.Called(ctx, listingID, authorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewService) ListReviews(ctx context.Context, listingID primitive.ObjectID) ([]models.Review, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *MockReviewService) RatingSummaries(ctx context.Context, listingIDs []primitive.ObjectID) (map[primitive.ObjectID]models.RatingSummary, error) {
	args := m.Called(ctx, listingIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]models.RatingSummary), args.Error(1)
}

func (m *MockReviewService) CombinedRatingSummary(ctx context.Context, listingIDs []primitive.ObjectID) (models.RatingSummary, error) {
	args := m.Called(ctx, listingIDs)
	return args.Get(0).(models.RatingSummary), args.Error(1)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByIDs(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]*models.User), args.Error(1)
}

func (m *MockUserService) ApplyHostGrant(ctx context.Context, grant models.HostGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

// MockBookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, guestID primitive.ObjectID, input services.CreateBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, guestID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) AmendBooking(ctx context.Context, bookingID, guestID primitive.ObjectID, input services.AmendBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, guestID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, bookingID, hostID primitive.ObjectID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) FindGuestBooking(ctx context.Context, bookingID, guestID primitive.ObjectID) (*models.BookingView, error) {
	args := m.Called(ctx, bookingID, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingView), args.Error(1)
}

func (m *MockBookingService) ListGuestBookings(ctx context.Context, guestID primitive.ObjectID) ([]models.BookingView, error) {
	args := m.Called(ctx, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingView), args.Error(1)
}

func (m *MockBookingService) ListHostBookings(ctx context.Context, hostID primitive.ObjectID) ([]models.BookingView, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingView), args.Error(1)
}

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) CheckAvailability(ctx context.Context, listingID primitive.ObjectID, rng models.DateRange, excludeBookingID *primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, listingID, rng, excludeBookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityService) BlockedRanges(ctx context.Context, listingID primitive.ObjectID) ([]models.DateRange, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DateRange), args.Error(1)
}

// MockIndexQueue
type MockIndexQueue struct {
	mock.Mock
}

func (m *MockIndexQueue) EnqueueListingIndex(ctx context.Context, listingID primitive.ObjectID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockIndexQueue) EnqueueIndexRebuild(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
