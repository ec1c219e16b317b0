package models

import (
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyType is the category of a listing.
type PropertyType string

const (
	PropertyHouse      PropertyType = "house"
	PropertyApartment  PropertyType = "apartment"
	PropertyVilla      PropertyType = "villa"
	PropertyCabin      PropertyType = "cabin"
	PropertyCondo      PropertyType = "condo"
	PropertyStudio     PropertyType = "studio"
	PropertyBeachHouse PropertyType = "beach_house"
	PropertyTreehouse  PropertyType = "treehouse"
	PropertyFarm       PropertyType = "farm"
	PropertyBoat       PropertyType = "boat"
)

// PropertyTypes lists every accepted property type.
var PropertyTypes = []PropertyType{
	PropertyHouse, PropertyApartment, PropertyVilla, PropertyCabin, PropertyCondo,
	PropertyStudio, PropertyBeachHouse, PropertyTreehouse, PropertyFarm, PropertyBoat,
}

// Valid reports whether t is one of the known property types.
func (t PropertyType) Valid() bool {
	for _, known := range PropertyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Amenity flags, by their stored field name.
const (
	AmenityWifi      = "has_wifi"
	AmenityKitchen   = "has_kitchen"
	AmenityParking   = "has_parking"
	AmenityPool      = "has_pool"
	AmenityAC        = "has_ac"
	AmenityWasher    = "has_washer"
	AmenityTV        = "has_tv"
	AmenityGym       = "has_gym"
	AmenityWorkspace = "has_workspace"
	AmenityFireplace = "has_fireplace"
	AmenityBBQ       = "has_bbq"
	AmenityEVCharger = "has_ev_charger"
)

// Amenities lists the amenity flag names in a stable order.
var Amenities = []string{
	AmenityWifi, AmenityKitchen, AmenityParking, AmenityPool, AmenityAC, AmenityWasher,
	AmenityTV, AmenityGym, AmenityWorkspace, AmenityFireplace, AmenityBBQ, AmenityEVCharger,
}

// ListingImage is an image owned by a listing. It lives embedded in the listing document,
// so it goes away with it.
type ListingImage struct {
	URL       string `bson:"url" json:"url"`
	Caption   string `bson:"caption" json:"caption"`
	IsPrimary bool   `bson:"is_primary" json:"is_primary"`
	Order     int    `bson:"order" json:"order"`
}

// Listing is a bookable property.
type Listing struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HostID        primitive.ObjectID `bson:"host_id" json:"host"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	PropertyType  PropertyType       `bson:"property_type" json:"property_type"`
	PricePerNight float64            `bson:"price_per_night" json:"price_per_night"`

	Address   string   `bson:"address" json:"address"`
	City      string   `bson:"city" json:"city"`
	State     string   `bson:"state" json:"state"`
	Country   string   `bson:"country" json:"country"`
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude"`

	Guests    int     `bson:"guests" json:"guests"`
	Bedrooms  int     `bson:"bedrooms" json:"bedrooms"`
	Beds      int     `bson:"beds" json:"beds"`
	Bathrooms float64 `bson:"bathrooms" json:"bathrooms"`

	HasWifi      bool `bson:"has_wifi" json:"has_wifi"`
	HasKitchen   bool `bson:"has_kitchen" json:"has_kitchen"`
	HasParking   bool `bson:"has_parking" json:"has_parking"`
	HasPool      bool `bson:"has_pool" json:"has_pool"`
	HasAC        bool `bson:"has_ac" json:"has_ac"`
	HasWasher    bool `bson:"has_washer" json:"has_washer"`
	HasTV        bool `bson:"has_tv" json:"has_tv"`
	HasGym       bool `bson:"has_gym" json:"has_gym"`
	HasWorkspace bool `bson:"has_workspace" json:"has_workspace"`
	HasFireplace bool `bson:"has_fireplace" json:"has_fireplace"`
	HasBBQ       bool `bson:"has_bbq" json:"has_bbq"`
	HasEVCharger bool `bson:"has_ev_charger" json:"has_ev_charger"`

	Images     []ListingImage `bson:"images" json:"images"`
	IsActive   bool           `bson:"is_active" json:"is_active"`
	BookingSeq int64          `bson:"booking_seq" json:"-"` // bumped by every booking write, see BookingService
	CreatedAt  time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at" json:"updated_at"`
}

// AmenityFlags returns the amenity flags keyed by field name.
func (l *Listing) AmenityFlags() map[string]bool {
	return map[string]bool{
		AmenityWifi:      l.HasWifi,
		AmenityKitchen:   l.HasKitchen,
		AmenityParking:   l.HasParking,
		AmenityPool:      l.HasPool,
		AmenityAC:        l.HasAC,
		AmenityWasher:    l.HasWasher,
		AmenityTV:        l.HasTV,
		AmenityGym:       l.HasGym,
		AmenityWorkspace: l.HasWorkspace,
		AmenityFireplace: l.HasFireplace,
		AmenityBBQ:       l.HasBBQ,
		AmenityEVCharger: l.HasEVCharger,
	}
}

// SortedImages returns the images in display order: explicit order first,
// insertion order for ties.
func SortedImages(images []ListingImage) []ListingImage {
	sorted := make([]ListingImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// PrimaryImage returns the URL of the primary-flagged image, else the first image
// in display order, else "".
func PrimaryImage(images []ListingImage) string {
	sorted := SortedImages(images)
	for _, img := range sorted {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(sorted) > 0 {
		return sorted[0].URL
	}
	return ""
}

// AverageRating is the mean of ratings rounded to two decimals, or nil when there are none.
func AverageRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := math.Round(float64(sum)/float64(len(ratings))*100) / 100
	return &avg
}

// SuperhostMinListings is the listing count from which a host is labelled superhost.
const SuperhostMinListings = 3

// IsSuperhost derives the superhost label from the host's listing count.
func IsSuperhost(listingCount int64) bool {
	return listingCount >= SuperhostMinListings
}

// RatingSummary is the aggregated review data of one listing.
type RatingSummary struct {
	Average *float64 `json:"average_rating"`
	Count   int      `json:"review_count"`
}

// ListingView is a listing decorated with its derived, read-time fields.
type ListingView struct {
	*Listing
	PrimaryImage    string   `json:"primary_image,omitempty"`
	AverageRating   *float64 `json:"average_rating"`
	ReviewCount     int      `json:"review_count"`
	HostName        string   `json:"host_name"`
	HostAvatar      string   `json:"host_avatar"`
	HostIsSuperhost bool     `json:"host_is_superhost"`
}

// NewListingView builds the read model of a listing. Images are returned in display order.
func NewListingView(l *Listing, summary RatingSummary, hostListingCount int64) ListingView {
	cp := *l
	cp.Images = SortedImages(l.Images)
	return ListingView{
		Listing:         &cp,
		PrimaryImage:    PrimaryImage(l.Images),
		AverageRating:   summary.Average,
		ReviewCount:     summary.Count,
		HostIsSuperhost: IsSuperhost(hostListingCount),
	}
}

// WithHost fills the host display fields. u may be nil when the profile is unknown.
func (v ListingView) WithHost(u *User) ListingView {
	if u != nil {
		v.HostName = u.Name
		v.HostAvatar = u.Avatar
	}
	return v
}

// HostStats are the numbers shown on a host's dashboard. Revenue and guests count
// confirmed and completed bookings only.
type HostStats struct {
	TotalListings     int64    `json:"total_listings"`
	ActiveListings    int64    `json:"active_listings"`
	TotalBookings     int64    `json:"total_bookings"`
	PendingBookings   int64    `json:"pending_bookings"`
	ConfirmedBookings int64    `json:"confirmed_bookings"`
	TotalRevenue      float64  `json:"total_revenue"`
	TotalGuests       int64    `json:"total_guests"`
	AverageRating     *float64 `json:"average_rating"`
	TotalReviews      int      `json:"total_reviews"`
}

// RoundPrice rounds an amount to cents.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// HostGrant is emitted by listing creation: the caller applies it to the host's profile.
type HostGrant struct {
	UserID    primitive.ObjectID `json:"user_id"`
	ListingID primitive.ObjectID `json:"listing_id"`
	GrantedAt time.Time          `json:"granted_at"`
}
