package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string               `bson:"name" json:"name"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password" json:"-"`
	IsAdmin      bool                 `bson:"isAdmin" json:"isAdmin"`
	Wishlist     []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HasInWishlist(productID primitive.ObjectID) bool {
	for _, id := range u.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}
