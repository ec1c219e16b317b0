package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

// Date is a calendar day, stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalBSONValue stores the date as a BSON datetime so range queries work natively.
func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(d.Time.UTC())
}

// UnmarshalBSONValue reads a BSON datetime.
func (d *Date) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	tm, ok := raw.TimeOK()
	if !ok {
		return errors.New("invalid BSON type for Date: expected datetime")
	}
	*d = NewDate(tm)
	return nil
}

// DateRange is the half-open stay interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  Date `bson:"check_in" json:"check_in"`
	CheckOut Date `bson:"check_out" json:"check_out"`
}

// Valid reports whether check-out is strictly after check-in.
func (r DateRange) Valid() bool {
	return r.CheckOut.After(r.CheckIn.Time)
}

// Nights is the number of nights covered by the range.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn.Time).Hours() / 24)
}

// Overlaps reports whether the two half-open ranges share at least one night.
// Touching ranges (one checks out the day the other checks in) do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut.Time) && o.CheckIn.Before(r.CheckOut.Time)
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// BlockingStatuses are the statuses that hold dates on a listing.
var BlockingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// Blocks reports whether a booking in this status holds its dates.
func (s BookingStatus) Blocks() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking is a guest's reservation of a listing.
type Booking struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ListingID  primitive.ObjectID `bson:"listing_id" json:"listing"`
	GuestID    primitive.ObjectID `bson:"guest_id" json:"guest"`
	DateRange  `bson:",inline"`
	Guests     int           `bson:"guests" json:"guests"`
	TotalPrice float64       `bson:"total_price" json:"total_price"` // fixed at creation
	Status     BookingStatus `bson:"status" json:"status"`
	Notes      string        `bson:"notes" json:"notes"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}

// Nights is exposed alongside the booking in API responses.
func (b *Booking) Nights() int {
	return b.DateRange.Nights()
}

// BookingView is the API shape of a booking.
type BookingView struct {
	*Booking
	Nights         int    `json:"nights"`
	ListingTitle   string `json:"listing_title,omitempty"`
	ListingCity    string `json:"listing_city,omitempty"`
	ListingCountry string `json:"listing_country,omitempty"`
	PrimaryImage   string `json:"primary_image,omitempty"`
	GuestName      string `json:"guest_name,omitempty"`
	GuestEmail     string `json:"guest_email,omitempty"`
	GuestAvatar    string `json:"guest_avatar,omitempty"`
}

// NewBookingView decorates a booking with its listing's display fields; listing may be nil.
func NewBookingView(b *Booking, listing *Listing) BookingView {
	v := BookingView{Booking: b, Nights: b.Nights()}
	if listing != nil {
		v.ListingTitle = listing.Title
		v.ListingCity = listing.City
		v.ListingCountry = listing.Country
		v.PrimaryImage = PrimaryImage(listing.Images)
	}
	return v
}

// WithGuest fills the guest display fields. u may be nil when the profile is unknown.
func (v BookingView) WithGuest(u *User) BookingView {
	if u != nil {
		v.GuestName = u.Name
		v.GuestEmail = u.Email
		v.GuestAvatar = u.Avatar
	}
	return v
}
