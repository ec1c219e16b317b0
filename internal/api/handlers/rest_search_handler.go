package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stays/internal/models"
	"stays/internal/services"
)

// RestSearchHandler handles listing search requests.
type RestSearchHandler struct {
	searchService services.ISearchService
}

// NewRestSearchHandler creates a new RestSearchHandler.
func NewRestSearchHandler(searchService services.ISearchService) *RestSearchHandler {
	return &RestSearchHandler{searchService: searchService}
}

// Search handles GET /v1/search
func (h *RestSearchHandler) Search(c *gin.Context) {
	params, err := parseSearchParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.searchService.Search(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search listings"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Autocomplete handles GET /v1/search/autocomplete
func (h *RestSearchHandler) Autocomplete(c *gin.Context) {
	suggestions, err := h.searchService.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load suggestions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": suggestions})
}

// parseSearchParams reads the query string. Paging and ordering are normalised later by
// the search service; only malformed numbers are rejected here.
func parseSearchParams(c *gin.Context) (models.SearchParams, error) {
	params := models.SearchParams{
		Query:    c.Query("q"),
		Ordering: models.Ordering(c.Query("ordering")),
	}
	f := &params.Filters

	if v := strings.TrimSpace(c.Query("property_type")); v != "" {
		pt := models.PropertyType(v)
		f.PropertyType = &pt
	}
	if v := strings.TrimSpace(c.Query("city")); v != "" {
		f.City = &v
	}
	if v := strings.TrimSpace(c.Query("country")); v != "" {
		f.Country = &v
	}

	var err error
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return params, err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return params, err
	}
	if f.MinGuests, err = queryInt(c, "min_guests"); err != nil {
		return params, err
	}
	if f.MinBedrooms, err = queryInt(c, "min_bedrooms"); err != nil {
		return params, err
	}

	page, err := queryInt(c, "page")
	if err != nil {
		return params, err
	}
	if page != nil {
		if *page > models.MaxPage {
			return params, fmt.Errorf("page must not exceed %d", models.MaxPage)
		}
		params.Page = *page
	}
	pageSize, err := queryInt(c, "page_size")
	if err != nil {
		return params, err
	}
	if pageSize != nil {
		params.PageSize = *pageSize
	}

	for _, amenity := range models.Amenities {
		raw, ok := c.GetQuery(amenity)
		if !ok || raw == "" {
			continue
		}
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return params, fmt.Errorf("invalid value for %s: %q", amenity, raw)
		}
		if on {
			f.Amenities = append(f.Amenities, amenity)
		}
	}
	return params, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q", name, raw)
	}
	return &v, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid value for %s: %q", name, raw)
	}
	return &v, nil
}
