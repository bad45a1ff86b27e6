package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"storefront/internal/models"
)

func newTestReconciler(store *memStore, publisher Publisher) *Reconciler {
	return NewReconciler(newTestFinalizer(store, true), newTestRecorder(store), publisher)
}

func TestDispatch_CheckoutCompletedPublishesOrderPaid(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)
	store := newMemStore()
	productA := store.addProduct(4)
	order := store.addOrder(orderWithItems(models.OrderItem{Product: productA, Quantity: 2}))

	publisher.EXPECT().
		PublishOrderEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt OrderEvent) error {
			assert.Equal(t, OrderEventPaid, evt.Type)
			assert.Equal(t, order.ID.Hex(), evt.OrderID)
			assert.Equal(t, "pi_test_123", evt.PaymentIntentID)
			return nil
		})

	evt := Event{
		Type: EventCheckoutCompleted,
		Object: json.RawMessage(fmt.Sprintf(
			`{"id":"cs_test","payment_intent":"pi_test_123","metadata":{"mongoOrderId":"%s"}}`, order.ID.Hex())),
	}

	outcome, err := newTestReconciler(store, publisher).Dispatch(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, outcome)
	assert.Equal(t, 2, store.countInStock(productA))
	assert.Equal(t, "pi_test_123", store.order(t, order.ID).StripePaymentIntentID)
}

func TestDispatch_DuplicateDoesNotPublishAgain(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)
	publisher.EXPECT().PublishOrderEvent(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	store := newMemStore()
	productA := store.addProduct(5)
	order := store.addOrder(orderWithItems(models.OrderItem{Product: productA, Quantity: 2}))
	reconciler := newTestReconciler(store, publisher)
	evt := Event{
		Type:   EventPaymentIntentSucceeded,
		Object: json.RawMessage(fmt.Sprintf(`{"id":"pi_dup","metadata":{"mongoOrderId":"%s"}}`, order.ID.Hex())),
	}

	first, err := reconciler.Dispatch(context.Background(), evt)
	require.NoError(t, err)
	second, err := reconciler.Dispatch(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinalized, first)
	assert.Equal(t, OutcomeAlreadyPaid, second)
	assert.Equal(t, 3, store.countInStock(productA))
}

func TestDispatch_PublishFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)
	publisher.EXPECT().PublishOrderEvent(gomock.Any(), gomock.Any()).Return(errors.New("channel closed"))

	store := newMemStore()
	order := store.addOrder(orderWithItems())
	evt := Event{
		Type:   EventPaymentIntentFailed,
		Object: json.RawMessage(fmt.Sprintf(`{"id":"pi_x","metadata":{"mongoOrderId":"%s"}}`, order.ID.Hex())),
	}

	outcome, err := newTestReconciler(store, publisher).Dispatch(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailureRecorded, outcome)
}

func TestDispatch_UnrecognizedEventIsIgnored(t *testing.T) {
	store := newMemStore()

	outcome, err := newTestReconciler(store, nil).Dispatch(context.Background(), Event{Type: "charge.refunded"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Zero(t, store.saves)
}

func TestDispatch_MalformedObjectIsError(t *testing.T) {
	store := newMemStore()

	_, err := newTestReconciler(store, nil).Dispatch(context.Background(), Event{
		Type:   EventPaymentIntentSucceeded,
		Object: json.RawMessage(`[1,2`),
	})

	assert.Error(t, err)
}
