package payments

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// locateOrder finds the order a correlation key points at. Keys that parse
// as an ObjectID are store ids; anything else is a merchant order id.
func locateOrder(ctx context.Context, orders OrderStore, key string) (*models.Order, error) {
	if id, err := primitive.ObjectIDFromHex(key); err == nil {
		return orders.FindByID(ctx, id)
	}
	return orders.FindByOrderID(ctx, key)
}

// resolveOrderID turns a correlation key into a store id, reading the order
// only when the key is a merchant order id.
func resolveOrderID(ctx context.Context, orders OrderStore, key string) (primitive.ObjectID, bool, error) {
	if id, err := primitive.ObjectIDFromHex(key); err == nil {
		return id, true, nil
	}
	order, err := orders.FindByOrderID(ctx, key)
	if err != nil || order == nil {
		return primitive.NilObjectID, false, err
	}
	return order.ID, true, nil
}
