package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stays/internal/services"
)

// RestAdminHandler handles administrative maintenance requests.
type RestAdminHandler struct {
	indexQueue services.IndexQueue
}

// NewRestAdminHandler creates a new RestAdminHandler.
func NewRestAdminHandler(indexQueue services.IndexQueue) *RestAdminHandler {
	return &RestAdminHandler{indexQueue: indexQueue}
}

// ReindexSearch handles POST /v1/admin/search/reindex
func (h *RestAdminHandler) ReindexSearch(c *gin.Context) {
	if h.indexQueue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search index is not configured"})
		return
	}
	if err := h.indexQueue.EnqueueIndexRebuild(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule index rebuild"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}
