package payments

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

//go:generate mockgen -destination=mock_ports_test.go -package=payments . OrderStore,InventoryStore,Transactor,Publisher

// OrderStore is the slice of order persistence the reconciliation core needs.
// Lookups return (nil, nil) when the order does not exist. Every method runs
// inside the caller's transaction when ctx came from Transactor.WithTransaction.
type OrderStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	// MarkPaymentFailed updates paymentResult only while the order is unpaid
	// and reports how many orders matched.
	MarkPaymentFailed(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) (int64, error)
}

type InventoryStore interface {
	// DecrementStock lowers countInStock by qty only when at least qty is
	// available, returning the number of modified products (0 or 1).
	DecrementStock(ctx context.Context, productID primitive.ObjectID, qty int) (int64, error)
}

// Transactor runs fn inside a multi-document transaction. A nil error from fn
// commits; any other result aborts.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Publisher announces order payment transitions to other services.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

const (
	OrderEventPaid          = "order.paid"
	OrderEventPaymentFailed = "order.payment_failed"
)

type OrderEvent struct {
	Type            string `json:"type"`
	OrderID         string `json:"orderId"`
	MerchantOrderID string `json:"merchantOrderId,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	OccurredAt      string `json:"occurredAt"`
}
