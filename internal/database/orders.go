package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

const (
	OrdersCollection   = "orders"
	ProductsCollection = "products"
	UsersCollection    = "users"
)

// OrderRepository persists orders. Lookups return (nil, nil) when nothing
// matches. A ctx obtained from MongoTransactor.WithTransaction binds every
// call to that transaction.
type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(OrdersCollection)}
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"orderId": orderID})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Insert stores a new order and sets its id.
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

// Save replaces the stored document with order.
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		return errors.New("save order: missing id")
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("save order %s: %w", order.ID.Hex(), mongo.ErrNoDocuments)
	}
	return nil
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) (int64, error) {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "isPaid": false},
		bson.M{"$set": bson.M{"paymentResult": result}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// SetCheckoutSession stores the provider session on an order that is still
// unpaid.
func (r *OrderRepository) SetCheckoutSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "isPaid": false},
		bson.M{"$set": bson.M{
			"stripeSessionId":      sessionID,
			"paymentResult.status": models.PaymentStatusPending,
		}},
	)
	return err
}
