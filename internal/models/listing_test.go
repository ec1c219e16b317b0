package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays/internal/models"
)

func TestPrimaryImage(t *testing.T) {
	assert.Equal(t, "", models.PrimaryImage(nil))

	images := []models.ListingImage{
		{URL: "third", Order: 2},
		{URL: "first", Order: 0},
		{URL: "second", Order: 1},
	}
	assert.Equal(t, "first", models.PrimaryImage(images))

	images[2].IsPrimary = true
	assert.Equal(t, "second", models.PrimaryImage(images))
}

func TestSortedImages_StableOnTies(t *testing.T) {
	images := []models.ListingImage{{URL: "x", Order: 1}, {URL: "y", Order: 0}, {URL: "z", Order: 1}}

	sorted := models.SortedImages(images)

	assert.Equal(t, []string{"y", "x", "z"}, []string{sorted[0].URL, sorted[1].URL, sorted[2].URL})
	assert.Equal(t, "x", images[0].URL, "input is not reordered")
}

func TestAverageRating(t *testing.T) {
	assert.Nil(t, models.AverageRating(nil))

	avg := models.AverageRating([]int{5, 4, 4})
	require.NotNil(t, avg)
	assert.Equal(t, 4.33, *avg)
}

func TestIsSuperhost(t *testing.T) {
	assert.False(t, models.IsSuperhost(2))
	assert.True(t, models.IsSuperhost(3))
}

func TestPropertyType_Valid(t *testing.T) {
	for _, pt := range models.PropertyTypes {
		assert.True(t, pt.Valid(), pt)
	}
	assert.False(t, models.PropertyType("castle").Valid())
	assert.False(t, models.PropertyType("").Valid())
}

func TestNewListingView(t *testing.T) {
	avg := 4.5
	l := &models.Listing{
		Title:  "Loft",
		Images: []models.ListingImage{{URL: "b", Order: 1}, {URL: "a", Order: 0}},
	}

	v := models.NewListingView(l, models.RatingSummary{Average: &avg, Count: 2}, 3).
		WithHost(&models.User{Name: "Ana", Avatar: "https://img.example/ana.png"})

	assert.Equal(t, "a", v.PrimaryImage)
	assert.Equal(t, "a", v.Images[0].URL)
	assert.Equal(t, "b", l.Images[0].URL, "listing images are not reordered")
	assert.Equal(t, 2, v.ReviewCount)
	assert.True(t, v.HostIsSuperhost)
	assert.Equal(t, "Ana", v.HostName)

	unknownHost := models.NewListingView(l, models.RatingSummary{}, 1).WithHost(nil)
	assert.Nil(t, unknownHost.AverageRating)
	assert.False(t, unknownHost.HostIsSuperhost)
	assert.Empty(t, unknownHost.HostName)
}

func TestAmenityFlags(t *testing.T) {
	l := &models.Listing{HasWifi: true, HasEVCharger: true}
	flags := l.AmenityFlags()

	assert.Len(t, flags, len(models.Amenities))
	assert.True(t, flags[models.AmenityWifi])
	assert.True(t, flags[models.AmenityEVCharger])
	assert.False(t, flags[models.AmenityPool])
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 10.13, models.RoundPrice(10.125000001))
	assert.Equal(t, 286.5, models.RoundPrice(3*95.5))
}
