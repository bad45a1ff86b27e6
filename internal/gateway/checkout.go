package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type CheckoutConfig struct {
	SecretKey   string
	Currency    string
	FrontendURL string
	// Backends overrides the Stripe API endpoint; nil uses the live API.
	Backends *stripe.Backends
}

type CheckoutLineItem struct {
	Name      string
	Image     string
	UnitPrice float64
	Quantity  int
}

// CheckoutRequest describes an order to be paid through a hosted checkout
// page. Prices are in major currency units.
type CheckoutRequest struct {
	OrderID      string
	MongoOrderID string
	TotalPrice   float64
	Items        []CheckoutLineItem
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutSessions creates Stripe checkout sessions carrying the order
// correlation metadata on both the session and its payment intent.
type CheckoutSessions struct {
	api         *client.API
	currency    string
	frontendURL string
}

func NewCheckoutSessions(cfg CheckoutConfig) *CheckoutSessions {
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "inr"
	}
	return &CheckoutSessions{
		api:         client.New(cfg.SecretKey, cfg.Backends),
		currency:    currency,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

func (s *CheckoutSessions) Create(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if req.MongoOrderID == "" {
		return CheckoutSession{}, errors.New("checkout: order id is required")
	}

	metadata := map[string]string{
		"orderId":      req.OrderID,
		"mongoOrderId": req.MongoOrderID,
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          s.lineItems(req),
		SuccessURL:         stripe.String(s.frontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.frontendURL + "/cancel"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// lineItems emits one line per order item, or a single line for the order
// total when the order has no items.
func (s *CheckoutSessions) lineItems(req CheckoutRequest) []*stripe.CheckoutSessionLineItemParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" && strings.HasPrefix(item.Image, "http") {
			product.Images = stripe.StringSlice([]string{item.Image})
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(MinorUnits(item.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(qty)),
		})
	}
	if len(items) > 0 {
		return items
	}

	return []*stripe.CheckoutSessionLineItemParams{{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(s.currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String("Order " + req.OrderID),
			},
			UnitAmount: stripe.Int64(MinorUnits(req.TotalPrice)),
		},
		Quantity: stripe.Int64(1),
	}}
}

// MinorUnits converts a major-unit amount (rupees) to the provider's minor
// unit (paise).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
