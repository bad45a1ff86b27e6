package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"

	PaymentStatusCreated = "created"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// OrderItem is a line item captured at order creation. Price is the unit
// price at that moment and never follows later catalog changes.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Image    string             `bson:"image,omitempty" json:"image,omitempty"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"qty" json:"qty"`
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// PaymentResult records the last provider outcome seen for an order. Raw
// keeps the provider object untouched for manual reconciliation.
type PaymentResult struct {
	ID         string                 `bson:"id,omitempty" json:"id,omitempty"`
	Status     string                 `bson:"status" json:"status"`
	UpdateTime string                 `bson:"update_time,omitempty" json:"update_time,omitempty"`
	Raw        map[string]interface{} `bson:"raw,omitempty" json:"raw,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	OrderID               string              `bson:"orderId,omitempty" json:"orderId,omitempty"`
	User                  *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	OrderItems            []OrderItem         `bson:"orderItems" json:"orderItems"`
	ShippingAddress       ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod         string              `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	ItemPrice             float64             `bson:"itemPrice" json:"itemPrice"`
	TaxPrice              float64             `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice         float64             `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice            float64             `bson:"totalPrice" json:"totalPrice"`
	Currency              string              `bson:"currency,omitempty" json:"currency,omitempty"`
	Status                string              `bson:"status,omitempty" json:"status,omitempty"`
	IsPaid                bool                `bson:"isPaid" json:"isPaid"`
	PaidAt                *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered           bool                `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt           *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	StripeSessionID       string              `bson:"stripeSessionId,omitempty" json:"stripeSessionId,omitempty"`
	StripePaymentIntentID string              `bson:"stripePaymentIntentId,omitempty" json:"stripePaymentIntentId,omitempty"`
	PaymentResult         *PaymentResult      `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	CreatedAt             time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// MarkPaid applies the one-way unpaid to paid transition.
func (o *Order) MarkPaid(paymentIntentID string, raw map[string]interface{}, now time.Time) {
	paidAt := now
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.StripePaymentIntentID = paymentIntentID
	o.PaymentResult = &PaymentResult{
		ID:         paymentIntentID,
		Status:     PaymentStatusPaid,
		UpdateTime: now.UTC().Format(time.RFC3339Nano),
		Raw:        raw,
	}
	o.Status = OrderStatusPaid
	o.UpdatedAt = now
}

func (o *Order) IsOwnedBy(userID primitive.ObjectID) bool {
	return o.User != nil && *o.User == userID
}
