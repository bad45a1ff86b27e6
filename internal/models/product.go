package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Rating    float64            `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Product is a catalog entry. CountInStock is only decremented when an
// order's payment is finalized.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User         primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	Brand        string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Category     string             `bson:"category,omitempty" json:"category,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Reviews      []Review           `bson:"reviews" json:"reviews"`
	Rating       float64            `bson:"rating" json:"rating"`
	NumReviews   int                `bson:"numReviews" json:"numReviews"`
	Price        float64            `bson:"price" json:"price"`
	CountInStock int                `bson:"countInStock" json:"countInStock"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AddReview appends a review and recomputes the average rating.
func (p *Product) AddReview(review Review) {
	p.Reviews = append(p.Reviews, review)
	p.NumReviews = len(p.Reviews)

	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(len(p.Reviews))
}

func (p *Product) ReviewedBy(userID primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}
