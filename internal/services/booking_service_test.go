package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
)

func TestBookingService_Lifecycle(t *testing.T) {
	database := setupServicesDB(t, "stays_booking_lifecycle_test")
	requireReplicaSet(t, database)
	svc := newServicesUnderTest(database, nil)
	ctx := context.Background()

	host := insertUser(t, database, "host")
	guest := insertUser(t, database, "guest")
	listing := createListing(t, svc, host.ID, validListingInput("Alfama Flat"))

	booking, err := svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{
		ListingID: listing.ID,
		Range:     stay("2026-09-01", "2026-09-04"),
		Guests:    2,
		Notes:     "  late arrival ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, 300.0, booking.TotalPrice)
	assert.Equal(t, 3, booking.Nights())
	assert.Equal(t, "late arrival", booking.Notes)

	_, err = svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{
		ListingID: listing.ID, Range: stay("2026-09-03", "2026-09-05"), Guests: 1,
	})
	assert.ErrorIs(t, err, ErrDatesUnavailable)

	next, err := svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{
		ListingID: listing.ID, Range: stay("2026-09-04", "2026-09-06"), Guests: 1,
	})
	require.NoError(t, err, "back-to-back stays do not overlap")

	// Only the listing's host may confirm.
	_, err = svc.bookings.ConfirmBooking(ctx, booking.ID, guest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	confirmed, err := svc.bookings.ConfirmBooking(ctx, booking.ID, host.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	_, err = svc.bookings.ConfirmBooking(ctx, booking.ID, host.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cancelled, err := svc.bookings.CancelBooking(ctx, booking.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	_, err = svc.bookings.CancelBooking(ctx, booking.ID, guest.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.bookings.CancelBooking(ctx, next.ID, host.ID)
	assert.ErrorIs(t, err, ErrNotFound, "only the guest may cancel")

	// Cancelled dates can be booked again.
	_, err = svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{
		ListingID: listing.ID, Range: stay("2026-09-01", "2026-09-04"), Guests: 1,
	})
	require.NoError(t, err)

	view, err := svc.bookings.FindGuestBooking(ctx, next.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alfama Flat", view.ListingTitle)
	assert.Equal(t, 2, view.Nights)
	assert.Equal(t, "guest", view.GuestName)
	_, err = svc.bookings.FindGuestBooking(ctx, next.ID, host.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	guestBookings, err := svc.bookings.ListGuestBookings(ctx, guest.ID)
	require.NoError(t, err)
	assert.Len(t, guestBookings, 3)
	hostBookings, err := svc.bookings.ListHostBookings(ctx, host.ID)
	require.NoError(t, err)
	assert.Len(t, hostBookings, 3)
	for _, b := range hostBookings {
		assert.Equal(t, "guest", b.GuestName)
		assert.Equal(t, "guest@example.com", b.GuestEmail)
	}
	none, err := svc.bookings.ListHostBookings(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookingService_CreateRejectsInvalidRequests(t *testing.T) {
	database := setupServicesDB(t, "stays_booking_invalid_test")
	requireReplicaSet(t, database)
	svc := newServicesUnderTest(database, nil)
	ctx := context.Background()

	host := insertUser(t, database, "host")
	listing := createListing(t, svc, host.ID, validListingInput("Tiny Cabin"))
	inactiveInput := validListingInput("Closed Cabin")
	off := false
	inactiveInput.IsActive = &off
	inactive := createListing(t, svc, host.ID, inactiveInput)
	guestID := primitive.NewObjectID()

	tests := []struct {
		name    string
		input   CreateBookingInput
		wantErr error
	}{
		{name: "empty range", input: CreateBookingInput{ListingID: listing.ID, Range: stay("2026-10-02", "2026-10-02"), Guests: 1}, wantErr: ErrInvalidDateRange},
		{name: "reversed range", input: CreateBookingInput{ListingID: listing.ID, Range: stay("2026-10-05", "2026-10-02"), Guests: 1}, wantErr: ErrInvalidDateRange},
		{name: "no guests", input: CreateBookingInput{ListingID: listing.ID, Range: stay("2026-10-01", "2026-10-02")}, wantErr: ErrInvalidInput},
		{name: "over capacity", input: CreateBookingInput{ListingID: listing.ID, Range: stay("2026-10-01", "2026-10-02"), Guests: 9}, wantErr: ErrInvalidInput},
		{name: "inactive listing", input: CreateBookingInput{ListingID: inactive.ID, Range: stay("2026-10-01", "2026-10-02"), Guests: 1}, wantErr: ErrNotFound},
		{name: "unknown listing", input: CreateBookingInput{ListingID: primitive.NewObjectID(), Range: stay("2026-10-01", "2026-10-02"), Guests: 1}, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := svc.bookings.CreateBooking(ctx, guestID, tt.input)
			assert.Nil(t, booking)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBookingService_Amend(t *testing.T) {
	database := setupServicesDB(t, "stays_booking_amend_test")
	requireReplicaSet(t, database)
	svc := newServicesUnderTest(database, nil)
	ctx := context.Background()

	host := insertUser(t, database, "host")
	guest := insertUser(t, database, "guest")
	listing := createListing(t, svc, host.ID, validListingInput("River House"))

	first, err := svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{ListingID: listing.ID, Range: stay("2026-11-01", "2026-11-05"), Guests: 2})
	require.NoError(t, err)
	_, err = svc.bookings.CreateBooking(ctx, guest.ID, CreateBookingInput{ListingID: listing.ID, Range: stay("2026-11-10", "2026-11-12"), Guests: 2})
	require.NoError(t, err)

	// Shifting over its own dates is fine.
	checkOut := models.MustParseDate("2026-11-07")
	guests := 3
	amended, err := svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{CheckOut: &checkOut, Guests: &guests})
	require.NoError(t, err)
	assert.Equal(t, stay("2026-11-01", "2026-11-07"), amended.DateRange)
	assert.Equal(t, 3, amended.Guests)
	assert.Equal(t, first.TotalPrice, amended.TotalPrice, "total price is fixed at creation")

	crowd := 5
	_, err = svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{Guests: &crowd})
	assert.ErrorIs(t, err, ErrInvalidInput)
	zero := 0
	_, err = svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{Guests: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	clash := models.MustParseDate("2026-11-11")
	_, err = svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{CheckOut: &clash})
	assert.ErrorIs(t, err, ErrDatesUnavailable)

	early := models.MustParseDate("2026-10-30")
	_, err = svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{CheckOut: &early})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.bookings.AmendBooking(ctx, first.ID, host.ID, AmendBookingInput{Guests: &guests})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.bookings.CancelBooking(ctx, first.ID, guest.ID)
	require.NoError(t, err)
	_, err = svc.bookings.AmendBooking(ctx, first.ID, guest.ID, AmendBookingInput{Guests: &guests})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBookingService_ConcurrentBookingsOfSameDates(t *testing.T) {
	database := setupServicesDB(t, "stays_booking_race_test")
	requireReplicaSet(t, database)
	svc := newServicesUnderTest(database, nil)
	ctx := context.Background()

	host := insertUser(t, database, "host")
	listing := createListing(t, svc, host.ID, validListingInput("Contested Loft"))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.bookings.CreateBooking(ctx, primitive.NewObjectID(), CreateBookingInput{
				ListingID: listing.ID, Range: stay("2026-12-20", "2026-12-27"), Guests: 1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrDatesUnavailable), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	blocked, err := svc.availability.BlockedRanges(ctx, listing.ID)
	require.NoError(t, err)
	assert.Len(t, blocked, 1)
}
