package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

type txMarker struct{}

// memStore is an in-memory OrderStore, InventoryStore and Transactor.
// Transactions are serialized and roll back every write on error.
type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	orders   map[primitive.ObjectID]models.Order
	stock    map[primitive.ObjectID]int
	saves    int
	failures int

	// failSaveInTx makes Save fail when called inside a transaction.
	failSaveInTx error
	// vanishInTx makes FindByID report the order missing inside a transaction.
	vanishInTx bool
}

func newMemStore() *memStore {
	return &memStore{
		orders: map[primitive.ObjectID]models.Order{},
		stock:  map[primitive.ObjectID]int{},
	}
}

func inTx(ctx context.Context) bool {
	marked, _ := ctx.Value(txMarker{}).(bool)
	return marked
}

func (s *memStore) addProduct(countInStock int) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	s.stock[id] = countInStock
	return id
}

func (s *memStore) addOrder(order models.Order) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders[order.ID] = order
	return order
}

func (s *memStore) order(t *testing.T, id primitive.ObjectID) models.Order {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		t.Fatalf("order %s not in store", id.Hex())
	}
	return order
}

func (s *memStore) countInStock(id primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[id]
}

func (s *memStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vanishInTx && inTx(ctx) {
		return nil, nil
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *memStore) FindByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.OrderID == orderID {
			found := order
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) Save(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveInTx != nil && inTx(ctx) {
		return s.failSaveInTx
	}
	s.orders[order.ID] = *order
	s.saves++
	return nil
}

func (s *memStore) MarkPaymentFailed(_ context.Context, id primitive.ObjectID, result models.PaymentResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.IsPaid {
		return 0, nil
	}
	order.PaymentResult = &result
	s.orders[id] = order
	s.failures++
	return 1, nil
}

func (s *memStore) DecrementStock(_ context.Context, productID primitive.ObjectID, qty int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.stock[productID]
	if !ok || current < qty {
		return 0, nil
	}
	s.stock[productID] = current - qty
	return 1, nil
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	orders := make(map[primitive.ObjectID]models.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	stock := make(map[primitive.ObjectID]int, len(s.stock))
	for k, v := range s.stock {
		stock[k] = v
	}
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.mu.Lock()
		s.orders = orders
		s.stock = stock
		s.mu.Unlock()
		return err
	}
	return nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

// newTestFinalizer wires a finalizer to the store, using it as the
// transactor when withTx is set.
func newTestFinalizer(store *memStore, withTx bool) *Finalizer {
	var tx Transactor
	if withTx {
		tx = store
	}
	f := NewFinalizer(store, store, tx)
	f.now = fixedClock()
	return f
}

func orderWithItems(items ...models.OrderItem) models.Order {
	return models.Order{
		OrderID:    "order_test",
		OrderItems: items,
		Status:     models.OrderStatusPending,
	}
}

func succeededIntent(orderID primitive.ObjectID, paymentIntentID string) Intent {
	return Intent{
		Kind:            IntentPaymentSucceeded,
		EventType:       EventPaymentIntentSucceeded,
		PaymentIntentID: paymentIntentID,
		Correlation:     Correlation{MongoOrderID: orderID.Hex()},
		Raw:             map[string]interface{}{"id": paymentIntentID, "object": "payment_intent"},
	}
}
