package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
	"stays/internal/services"
)

// RestListingHandler handles REST requests for listings, their reviews and host dashboards.
type RestListingHandler struct {
	listingService services.IListingService
	reviewService  services.IReviewService
	userService    services.IUserService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService, reviewService services.IReviewService, userService services.IUserService) *RestListingHandler {
	return &RestListingHandler{
		listingService: listingService,
		reviewService:  reviewService,
		userService:    userService,
	}
}

// decorateOne builds the read model of a single listing.
func (h *RestListingHandler) decorateOne(c *gin.Context, listing *models.Listing) (*models.ListingView, bool) {
	views, err := h.listingService.DecorateListings(c.Request.Context(), []models.Listing{*listing})
	if err != nil || len(views) != 1 {
		if err != nil {
			_ = c.Error(err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing details"})
		return nil, false
	}
	return &views[0], true
}

// GetListingByID handles GET /v1/listing/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err, "Failed to retrieve listing")
		return
	}
	view, ok := h.decorateOne(c, listing)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateListing handles POST /v1/listing
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing: " + err.Error()})
		return
	}

	listing, grant, err := h.listingService.CreateListing(c.Request.Context(), hostID, input)
	if err != nil {
		respondError(c, err, "Failed to create listing")
		return
	}
	if grant != nil {
		if err := h.userService.ApplyHostGrant(c.Request.Context(), *grant); err != nil {
			_ = c.Error(err)
		}
	}

	view, ok := h.decorateOne(c, listing)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateListing handles PATCH /v1/listing/:id. Absent fields keep their current values.
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}

	current, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err, "Failed to retrieve listing")
		return
	}
	if current.HostID != hostID {
		respondError(c, services.ErrForbidden, "")
		return
	}

	input := services.ListingInputFrom(current)
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing: " + err.Error()})
		return
	}

	updated, err := h.listingService.UpdateListing(c.Request.Context(), listingID, hostID, input)
	if err != nil {
		respondError(c, err, "Failed to update listing")
		return
	}
	view, ok := h.decorateOne(c, updated)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteListing handles DELETE /v1/listing/:id. The listing is deactivated, not removed.
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}
	if err := h.listingService.DeactivateListing(c.Request.Context(), listingID, hostID); err != nil {
		respondError(c, err, "Failed to delete listing")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddImage handles POST /v1/listing/:id/images
func (h *RestListingHandler) AddImage(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}
	var input services.ImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image: " + err.Error()})
		return
	}

	image, err := h.listingService.AddImage(c.Request.Context(), listingID, hostID, input)
	if err != nil {
		respondError(c, err, "Failed to add image")
		return
	}
	c.JSON(http.StatusCreated, image)
}

// ListReviews handles GET /v1/listing/:id/reviews
func (h *RestListingHandler) ListReviews(c *gin.Context) {
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}
	reviews, err := h.reviewService.ListReviews(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err, "Failed to load reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": reviews})
}

type createReviewRequest struct {
	BookingID     string `json:"booking"`
	Rating        int    `json:"rating" binding:"required"`
	Cleanliness   *int   `json:"cleanliness"`
	Accuracy      *int   `json:"accuracy"`
	Communication *int   `json:"communication"`
	Location      *int   `json:"location"`
	Value         *int   `json:"value"`
	Comment       string `json:"comment" binding:"max=2000"`
}

// CreateReview handles POST /v1/listing/:id/reviews
func (h *RestListingHandler) CreateReview(c *gin.Context) {
	authorID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review: " + err.Error()})
		return
	}

	input := services.CreateReviewInput{
		Rating:        req.Rating,
		Cleanliness:   req.Cleanliness,
		Accuracy:      req.Accuracy,
		Communication: req.Communication,
		Location:      req.Location,
		Value:         req.Value,
		Comment:       req.Comment,
	}
	if req.BookingID != "" {
		bookingID, err := primitive.ObjectIDFromHex(req.BookingID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
			return
		}
		input.BookingID = &bookingID
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), listingID, authorID, input)
	if err != nil {
		respondError(c, err, "Failed to create review")
		return
	}
	c.JSON(http.StatusCreated, review)
}

// HostListings handles GET /v1/host/listings. Inactive listings are included.
func (h *RestListingHandler) HostListings(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	listings, err := h.listingService.FindListingsByHost(c.Request.Context(), hostID)
	if err != nil {
		respondError(c, err, "Failed to load listings")
		return
	}
	views, err := h.listingService.DecorateListings(c.Request.Context(), listings)
	if err != nil {
		respondError(c, err, "Failed to load listings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": views})
}

// HostStats handles GET /v1/host/stats
func (h *RestListingHandler) HostStats(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.listingService.HostStats(c.Request.Context(), hostID)
	if err != nil {
		respondError(c, err, "Failed to load host statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
