package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderMarkPaid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	order := Order{Status: OrderStatusPending, PaymentResult: &PaymentResult{Status: PaymentStatusPending}}

	order.MarkPaid("pi_1", map[string]interface{}{"id": "pi_1"}, now)

	if !order.IsPaid || order.PaidAt == nil || !order.PaidAt.Equal(now) {
		t.Fatalf("expected order paid at %v, got %+v", now, order)
	}
	if order.Status != OrderStatusPaid || order.StripePaymentIntentID != "pi_1" {
		t.Fatalf("unexpected status or intent: %+v", order)
	}
	if order.PaymentResult.Status != PaymentStatusPaid || order.PaymentResult.ID != "pi_1" {
		t.Fatalf("unexpected payment result: %+v", order.PaymentResult)
	}
	if order.PaymentResult.UpdateTime != "2026-03-01T06:30:00Z" {
		t.Fatalf("update time must be UTC, got %q", order.PaymentResult.UpdateTime)
	}
	if !order.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt %v, got %v", now, order.UpdatedAt)
	}
}

func TestOrderIsOwnedBy(t *testing.T) {
	owner := primitive.NewObjectID()
	order := Order{User: &owner}

	if !order.IsOwnedBy(owner) {
		t.Fatalf("expected owner match")
	}
	if order.IsOwnedBy(primitive.NewObjectID()) {
		t.Fatalf("expected other user to be rejected")
	}
	if (&Order{}).IsOwnedBy(owner) {
		t.Fatalf("order without user has no owner")
	}
}

func TestProductAddReview(t *testing.T) {
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	var product Product

	product.AddReview(Review{User: alice, Rating: 5})
	product.AddReview(Review{User: bob, Rating: 2})

	if product.NumReviews != 2 || product.Rating != 3.5 {
		t.Fatalf("expected 2 reviews averaging 3.5, got %d / %v", product.NumReviews, product.Rating)
	}
	if !product.ReviewedBy(alice) || product.ReviewedBy(primitive.NewObjectID()) {
		t.Fatalf("ReviewedBy mismatch")
	}
}

func TestUserHasInWishlist(t *testing.T) {
	saved := primitive.NewObjectID()
	user := User{Wishlist: []primitive.ObjectID{primitive.NewObjectID(), saved}}

	if !user.HasInWishlist(saved) {
		t.Fatalf("expected saved product in wishlist")
	}
	if user.HasInWishlist(primitive.NewObjectID()) {
		t.Fatalf("unexpected wishlist hit")
	}
}
