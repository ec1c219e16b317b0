package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/api/middleware"
	"stays/internal/services"
)

// MsgDatesUnavailable is the body error of every booking conflict.
const MsgDatesUnavailable = "These dates are not available."

// respondError maps a service error onto a status. Unknown errors are attached to the
// context and answered with fallback, never with their text.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrDatesUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": MsgDatesUnavailable})
	case errors.Is(err, services.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Check-out must be after check-in"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": "You have already reviewed this listing"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// pathID parses an ObjectID path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser reads the authenticated user, answering 401 when there is none.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	return id, true
}
