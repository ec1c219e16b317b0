package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a guest's rating of a listing. One per (listing, author).
type Review struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ListingID primitive.ObjectID  `bson:"listing_id" json:"listing"`
	AuthorID  primitive.ObjectID  `bson:"author_id" json:"author"`
	BookingID *primitive.ObjectID `bson:"booking_id,omitempty" json:"booking,omitempty"`
	Rating    int                 `bson:"rating" json:"rating"`

	Cleanliness   *int `bson:"cleanliness,omitempty" json:"cleanliness,omitempty"`
	Accuracy      *int `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Communication *int `bson:"communication,omitempty" json:"communication,omitempty"`
	Location      *int `bson:"location,omitempty" json:"location,omitempty"`
	Value         *int `bson:"value,omitempty" json:"value,omitempty"`

	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// SubRatings returns the optional sub-ratings that were given.
func (r *Review) SubRatings() []int {
	var out []int
	for _, v := range []*int{r.Cleanliness, r.Accuracy, r.Communication, r.Location, r.Value} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// ValidRating reports whether v is within the 1-5 scale.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
