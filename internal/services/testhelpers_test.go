package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"stays/internal/config"
	"stays/internal/db"
	"stays/internal/models"
	"stays/internal/utils"
)

// setupServicesDB returns a clean database with the production indexes.
func setupServicesDB(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName, listingsCollection, bookingsCollection, reviewsCollection, usersCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

// requireReplicaSet skips tests that need multi-document transactions.
func requireReplicaSet(t *testing.T, database *mongo.Database) {
	t.Helper()
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := database.Client().Database("admin").RunCommand(context.Background(), bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	require.NoError(t, err)
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		t.Skip("MongoDB is not a replica set, skipping transactional test")
	}
}

type servicesUnderTest struct {
	users        IUserService
	reviews      IReviewService
	listings     IListingService
	availability IAvailabilityService
	bookings     IBookingService
}

func newServicesUnderTest(database *mongo.Database, indexQueue IndexQueue) servicesUnderTest {
	cfg := &config.Config{SearchDefaultPageSize: 12, SearchMaxPageSize: 50}
	users := NewUserService(database)
	reviews := NewReviewService(database)
	listings := NewListingService(database, cfg, reviews, users, indexQueue)
	availability := NewAvailabilityService(database)
	return servicesUnderTest{
		users:        users,
		reviews:      reviews,
		listings:     listings,
		availability: availability,
		bookings:     NewBookingService(database, availability, listings, users),
	}
}

func insertUser(t *testing.T, database *mongo.Database, name string) *models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{ID: primitive.NewObjectID(), Email: name + "@example.com", Name: name, CreatedAt: now, UpdatedAt: now}
	_, err := database.Collection(usersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user
}

func validListingInput(title string) ListingInput {
	return ListingInput{
		Title:         title,
		Description:   "A quiet place",
		PropertyType:  models.PropertyApartment,
		PricePerNight: 100,
		City:          "Lisbon",
		Country:       "Portugal",
		Guests:        4,
		Bedrooms:      2,
		Beds:          2,
		Bathrooms:     1.5,
	}
}

func createListing(t *testing.T, svc servicesUnderTest, hostID primitive.ObjectID, input ListingInput) *models.Listing {
	t.Helper()
	listing, _, err := svc.listings.CreateListing(context.Background(), hostID, input)
	require.NoError(t, err)
	return listing
}

func stay(checkIn, checkOut string) models.DateRange {
	return models.DateRange{CheckIn: models.MustParseDate(checkIn), CheckOut: models.MustParseDate(checkOut)}
}
