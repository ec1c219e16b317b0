package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
	"stays/internal/services"
)

// RestBookingHandler handles REST requests for bookings and listing availability.
type RestBookingHandler struct {
	bookingService      services.IBookingService
	availabilityService services.IAvailabilityService
	listingService      services.IListingService
}

// NewRestBookingHandler creates a new RestBookingHandler.
func NewRestBookingHandler(bookingService services.IBookingService, availabilityService services.IAvailabilityService, listingService services.IListingService) *RestBookingHandler {
	return &RestBookingHandler{
		bookingService:      bookingService,
		availabilityService: availabilityService,
		listingService:      listingService,
	}
}

type createBookingRequest struct {
	ListingID string       `json:"listing" binding:"required"`
	CheckIn   *models.Date `json:"check_in" binding:"required"`
	CheckOut  *models.Date `json:"check_out" binding:"required"`
	Guests    int          `json:"guests" binding:"required,gte=1"`
	Notes     string       `json:"notes" binding:"max=2000"`
}

type amendBookingRequest struct {
	CheckIn  *models.Date `json:"check_in"`
	CheckOut *models.Date `json:"check_out"`
	Guests   *int         `json:"guests" binding:"omitempty,gte=1"`
	Notes    *string      `json:"notes" binding:"omitempty,max=2000"`
}

// CreateBooking handles POST /v1/booking
func (h *RestBookingHandler) CreateBooking(c *gin.Context) {
	guestID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking: " + err.Error()})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(req.ListingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), guestID, services.CreateBookingInput{
		ListingID: listingID,
		Range:     models.DateRange{CheckIn: *req.CheckIn, CheckOut: *req.CheckOut},
		Guests:    req.Guests,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, models.NewBookingView(booking, nil))
}

// ListBookings handles GET /v1/booking
func (h *RestBookingHandler) ListBookings(c *gin.Context) {
	guestID, ok := currentUser(c)
	if !ok {
		return
	}
	bookings, err := h.bookingService.ListGuestBookings(c.Request.Context(), guestID)
	if err != nil {
		respondError(c, err, "Failed to load bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": bookings})
}

// GetBooking handles GET /v1/booking/:id
func (h *RestBookingHandler) GetBooking(c *gin.Context) {
	guestID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "booking")
	if !ok {
		return
	}
	booking, err := h.bookingService.FindGuestBooking(c.Request.Context(), bookingID, guestID)
	if err != nil {
		respondError(c, err, "Failed to retrieve booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// AmendBooking handles PATCH /v1/booking/:id
func (h *RestBookingHandler) AmendBooking(c *gin.Context) {
	guestID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "booking")
	if !ok {
		return
	}
	var req amendBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking: " + err.Error()})
		return
	}

	booking, err := h.bookingService.AmendBooking(c.Request.Context(), bookingID, guestID, services.AmendBookingInput{
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Guests:   req.Guests,
		Notes:    req.Notes,
	})
	if err != nil {
		respondError(c, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, models.NewBookingView(booking, nil))
}

// CancelBooking handles POST /v1/booking/:id/cancel
func (h *RestBookingHandler) CancelBooking(c *gin.Context) {
	guestID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "booking")
	if !ok {
		return
	}
	booking, err := h.bookingService.CancelBooking(c.Request.Context(), bookingID, guestID)
	if err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, models.NewBookingView(booking, nil))
}

// ConfirmBooking handles POST /v1/booking/:id/confirm. The caller must host the listing.
func (h *RestBookingHandler) ConfirmBooking(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "booking")
	if !ok {
		return
	}
	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), bookingID, hostID)
	if err != nil {
		respondError(c, err, "Failed to confirm booking")
		return
	}
	c.JSON(http.StatusOK, models.NewBookingView(booking, nil))
}

// HostBookings handles GET /v1/host/bookings
func (h *RestBookingHandler) HostBookings(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	bookings, err := h.bookingService.ListHostBookings(c.Request.Context(), hostID)
	if err != nil {
		respondError(c, err, "Failed to load bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": bookings})
}

// Availability handles GET /v1/booking/availability/:listing_id. With check_in and
// check_out query parameters the response also says whether that stay is free.
func (h *RestBookingHandler) Availability(c *gin.Context) {
	listingID, ok := pathID(c, "listing_id", "listing")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.listingService.FindListingByID(ctx, listingID); err != nil {
		respondError(c, err, "Failed to retrieve listing")
		return
	}
	blocked, err := h.availabilityService.BlockedRanges(ctx, listingID)
	if err != nil {
		respondError(c, err, "Failed to load availability")
		return
	}
	resp := gin.H{"listing": listingID, "blocked": blocked}

	checkIn, checkOut := c.Query("check_in"), c.Query("check_out")
	if checkIn != "" || checkOut != "" {
		in, errIn := models.ParseDate(checkIn)
		out, errOut := models.ParseDate(checkOut)
		if errIn != nil || errOut != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "check_in and check_out must both be YYYY-MM-DD dates"})
			return
		}
		free, err := h.availabilityService.CheckAvailability(ctx, listingID, models.DateRange{CheckIn: in, CheckOut: out}, nil)
		if err != nil {
			respondError(c, err, "Failed to check availability")
			return
		}
		resp["available"] = free
	}
	c.JSON(http.StatusOK, resp)
}
