package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"stays/internal/api/handlers"
	"stays/internal/api/middleware"
	"stays/internal/cache"
	"stays/internal/config"
	"stays/internal/search"
	"stays/internal/services"
)

// Services bundles the service layer shared by the HTTP API and the task processor.
type Services struct {
	Users        services.IUserService
	Reviews      services.IReviewService
	Listings     services.IListingService
	Availability services.IAvailabilityService
	Bookings     services.IBookingService
	Search       services.ISearchService
	IndexQueue   services.IndexQueue
	IndexHealth  cache.IndexHealth
}

// NewServices wires the service layer. esClient, rdb and indexQueue may be nil: without
// an index client every search is served by the store, without a queue the index is
// only refreshed by rebuilds.
func NewServices(cfg *config.Config, db *mongo.Database, rdb *redis.Client, esClient *elasticsearch.Client, indexQueue services.IndexQueue) *Services {
	userService := services.NewUserService(db)
	reviewService := services.NewReviewService(db)
	listingService := services.NewListingService(db, cfg, reviewService, userService, indexQueue)
	availabilityService := services.NewAvailabilityService(db)
	bookingService := services.NewBookingService(db, availabilityService, listingService, userService)

	var primary search.Engine
	var indexHealth cache.IndexHealth
	if esClient != nil {
		primary = search.NewElasticEngine(esClient, cfg.ElasticsearchIndex)
		indexHealth = cache.NewIndexHealth(rdb, cfg.SearchIndexCooldown)
	}
	searchService := services.NewSearchService(cfg, primary, search.NewMongoEngine(db), indexHealth, listingService)

	return &Services{
		Users:        userService,
		Reviews:      reviewService,
		Listings:     listingService,
		Availability: availabilityService,
		Bookings:     bookingService,
		Search:       searchService,
		IndexQueue:   indexQueue,
		IndexHealth:  indexHealth,
	}
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	if err := handlers.RegisterValidators(); err != nil {
		log.Fatalf("CRITICAL: Failed to register request validators: %v", err)
	}

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Apply global middleware first (order matters)
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowOrigin))
	r.Use(rateLimiter.Limit())

	searchHandler := handlers.NewRestSearchHandler(svc.Search)
	listingHandler := handlers.NewRestListingHandler(svc.Listings, svc.Reviews, svc.Users)
	bookingHandler := handlers.NewRestBookingHandler(svc.Bookings, svc.Availability, svc.Listings)
	adminHandler := handlers.NewRestAdminHandler(svc.IndexQueue)

	v1 := r.Group("/v1")
	{
		// Public Routes
		v1.GET("/search", searchHandler.Search)
		v1.GET("/search/autocomplete", searchHandler.Autocomplete)
		v1.GET("/listing/:id", listingHandler.GetListingByID)
		v1.GET("/listing/:id/reviews", listingHandler.ListReviews)
		v1.GET("/booking/availability/:listing_id", bookingHandler.Availability)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated Routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.PATCH("/listing/:id", listingHandler.UpdateListing)
			authRequired.DELETE("/listing/:id", listingHandler.DeleteListing)
			authRequired.POST("/listing/:id/images", listingHandler.AddImage)
			authRequired.POST("/listing/:id/reviews", listingHandler.CreateReview)

			authRequired.GET("/host/listings", listingHandler.HostListings)
			authRequired.GET("/host/stats", listingHandler.HostStats)
			authRequired.GET("/host/bookings", bookingHandler.HostBookings)

			authRequired.POST("/booking", bookingHandler.CreateBooking)
			authRequired.GET("/booking", bookingHandler.ListBookings)
			authRequired.GET("/booking/:id", bookingHandler.GetBooking)
			authRequired.PATCH("/booking/:id", bookingHandler.AmendBooking)
			authRequired.POST("/booking/:id/cancel", bookingHandler.CancelBooking)
			authRequired.POST("/booking/:id/confirm", bookingHandler.ConfirmBooking)
		}

		// Admin Routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/search/reindex", adminHandler.ReindexSearch)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine. It speaks the
// {method, arguments} protocol of the ops tooling.
func SetupServiceRouter(indexQueue services.IndexQueue, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "reindex":
			if indexQueue == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Search index is not configured"})
				return
			}
			if err := indexQueue.EnqueueIndexRebuild(c.Request.Context()); err != nil {
				log.Printf("Service API: failed to enqueue index rebuild: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to enqueue index rebuild"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Index rebuild scheduled"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
