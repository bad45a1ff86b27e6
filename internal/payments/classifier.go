package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventCheckoutCompleted      = "checkout.session.completed"
)

// Event is a verified provider event. Object holds the event's data object
// exactly as the provider sent it.
type Event struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Object json.RawMessage `json:"-"`
}

type IntentKind int

const (
	IntentUnrecognized IntentKind = iota
	IntentPaymentSucceeded
	IntentPaymentFailed
)

func (k IntentKind) String() string {
	switch k {
	case IntentPaymentSucceeded:
		return "payment_succeeded"
	case IntentPaymentFailed:
		return "payment_failed"
	default:
		return "unrecognized"
	}
}

// Correlation carries the identifiers the merchant attached to the checkout.
type Correlation struct {
	MongoOrderID string
	OrderID      string
}

// Key returns the identifier used to find the local order, preferring the
// store id over the merchant order id.
func (c Correlation) Key() string {
	if c.MongoOrderID != "" {
		return c.MongoOrderID
	}
	return c.OrderID
}

type Intent struct {
	Kind            IntentKind
	EventType       string
	PaymentIntentID string
	Correlation     Correlation
	Raw             map[string]interface{}
}

type providerObject struct {
	ID            string                 `json:"id"`
	PaymentIntent json.RawMessage        `json:"payment_intent"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// Classify maps a provider event to an internal intent. Unknown event types
// are not an error; only an undecodable data object is.
func Classify(evt Event) (Intent, error) {
	intent := Intent{Kind: IntentUnrecognized, EventType: evt.Type}

	switch evt.Type {
	case EventPaymentIntentSucceeded:
		intent.Kind = IntentPaymentSucceeded
	case EventCheckoutCompleted:
		intent.Kind = IntentPaymentSucceeded
	case EventPaymentIntentFailed:
		intent.Kind = IntentPaymentFailed
	default:
		return intent, nil
	}

	var obj providerObject
	if err := json.Unmarshal(evt.Object, &obj); err != nil {
		return Intent{}, fmt.Errorf("decode %s object: %w", evt.Type, err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(evt.Object, &raw); err != nil {
		return Intent{}, fmt.Errorf("decode %s object: %w", evt.Type, err)
	}

	intent.Raw = raw
	intent.Correlation = Correlation{
		MongoOrderID: metadataString(obj.Metadata, "mongoOrderId"),
		OrderID:      metadataString(obj.Metadata, "orderId"),
	}

	if evt.Type == EventCheckoutCompleted {
		piID, err := paymentIntentRef(obj.PaymentIntent)
		if err != nil {
			return Intent{}, fmt.Errorf("decode session payment_intent: %w", err)
		}
		intent.PaymentIntentID = piID
	} else {
		intent.PaymentIntentID = obj.ID
	}

	return intent, nil
}

// paymentIntentRef accepts the session's payment_intent either as an id or as
// an expanded object.
func paymentIntentRef(data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return "", err
		}
		return id, nil
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &expanded); err != nil {
		return "", err
	}
	return expanded.ID, nil
}

func metadataString(metadata map[string]interface{}, key string) string {
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
