package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

// fakeStripe serves the checkout session endpoint and records the last form
// submitted to it.
func fakeStripe(t *testing.T) (*stripe.Backends, *url.Values) {
	t.Helper()
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.test/c/pay/cs_test_123"}`))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, &form
}

func TestCheckoutSessions_Create(t *testing.T) {
	backends, form := fakeStripe(t)
	sessions := NewCheckoutSessions(CheckoutConfig{
		SecretKey:   "sk_test_123",
		Currency:    "INR",
		FrontendURL: "https://shop.example/",
		Backends:    backends,
	})

	session, err := sessions.Create(context.Background(), CheckoutRequest{
		OrderID:      "order_1",
		MongoOrderID: "65f000000000000000000001",
		TotalPrice:   349.5,
		Items: []CheckoutLineItem{
			{Name: "Kettle", UnitPrice: 199.99, Quantity: 1},
			{Name: "Mug", UnitPrice: 74.755, Quantity: 2},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.Equal(t, "https://checkout.stripe.test/c/pay/cs_test_123", session.URL)

	got := *form
	assert.Equal(t, "payment", got.Get("mode"))
	assert.Equal(t, "card", got.Get("payment_method_types[0]"))
	assert.Equal(t, "inr", got.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "19999", got.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "Mug", got.Get("line_items[1][price_data][product_data][name]"))
	assert.Equal(t, "2", got.Get("line_items[1][quantity]"))
	assert.Equal(t, "order_1", got.Get("metadata[orderId]"))
	assert.Equal(t, "65f000000000000000000001", got.Get("metadata[mongoOrderId]"))
	assert.Equal(t, "65f000000000000000000001", got.Get("payment_intent_data[metadata][mongoOrderId]"))
	assert.Equal(t, "https://shop.example/success?session_id={CHECKOUT_SESSION_ID}", got.Get("success_url"))
	assert.Equal(t, "https://shop.example/cancel", got.Get("cancel_url"))
}

func TestCheckoutSessions_FallsBackToOrderTotal(t *testing.T) {
	backends, form := fakeStripe(t)
	sessions := NewCheckoutSessions(CheckoutConfig{SecretKey: "sk_test_123", Backends: backends})

	_, err := sessions.Create(context.Background(), CheckoutRequest{
		OrderID:      "order_2",
		MongoOrderID: "65f000000000000000000002",
		TotalPrice:   120,
	})

	require.NoError(t, err)
	got := *form
	assert.Equal(t, "Order order_2", got.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "12000", got.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "1", got.Get("line_items[0][quantity]"))
	assert.Empty(t, got.Get("line_items[1][quantity]"))
}

func TestCheckoutSessions_RequiresOrder(t *testing.T) {
	sessions := NewCheckoutSessions(CheckoutConfig{SecretKey: "sk_test_123"})

	_, err := sessions.Create(context.Background(), CheckoutRequest{OrderID: "order_3"})

	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.EqualValues(t, 19999, MinorUnits(199.99))
	assert.EqualValues(t, 1, MinorUnits(0.005))
	assert.EqualValues(t, 0, MinorUnits(0))
}
