package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"storefront/internal/payments"
)

// Verifier authenticates a raw webhook delivery and turns it into an event.
type Verifier interface {
	Verify(payload []byte, signature string) (payments.Event, error)
}

var ErrMissingSignature = errors.New("missing Stripe-Signature header")

// SignatureVerifier checks the Stripe-Signature header against the endpoint
// secret over the exact request bytes.
type SignatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

func (v *SignatureVerifier) Verify(payload []byte, signature string) (payments.Event, error) {
	if signature == "" {
		return payments.Event{}, ErrMissingSignature
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payments.Event{}, err
	}
	return fromStripeEvent(evt), nil
}

// UnverifiedParser accepts any well-formed JSON event without checking the
// signature. It exists for local and automated test environments only.
type UnverifiedParser struct{}

func NewUnverifiedParser() *UnverifiedParser {
	log.Println("[WEBHOOK] [WARN] signature verification disabled (test mode)")
	return &UnverifiedParser{}
}

func (UnverifiedParser) Verify(payload []byte, _ string) (payments.Event, error) {
	if len(payload) == 0 {
		return payments.Event{}, nil
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return payments.Event{}, fmt.Errorf("parse webhook body: %w", err)
	}
	return fromStripeEvent(evt), nil
}

func fromStripeEvent(evt stripe.Event) payments.Event {
	out := payments.Event{
		ID:   evt.ID,
		Type: string(evt.Type),
	}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out
}
