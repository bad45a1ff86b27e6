package payments

import (
	"context"
	"log"
	"time"
)

// Reconciler routes verified provider events to the finalizer or the failure
// recorder.
type Reconciler struct {
	finalizer *Finalizer
	failures  *FailureRecorder
	publisher Publisher
}

// NewReconciler wires the dispatch path. publisher may be nil.
func NewReconciler(finalizer *Finalizer, failures *FailureRecorder, publisher Publisher) *Reconciler {
	return &Reconciler{
		finalizer: finalizer,
		failures:  failures,
		publisher: publisher,
	}
}

// Dispatch classifies evt and applies it. The error is reserved for events
// that cannot be classified at all; missing orders, duplicates and store
// failures inside finalization are reported through the Outcome.
func (r *Reconciler) Dispatch(ctx context.Context, evt Event) (Outcome, error) {
	intent, err := Classify(evt)
	if err != nil {
		return "", err
	}

	switch intent.Kind {
	case IntentPaymentSucceeded:
		outcome := r.finalizer.Finalize(ctx, intent)
		if outcome.Finalized() {
			r.publish(ctx, OrderEventPaid, intent)
		}
		return outcome, nil
	case IntentPaymentFailed:
		outcome := r.failures.Record(ctx, intent)
		if outcome == OutcomeFailureRecorded {
			r.publish(ctx, OrderEventPaymentFailed, intent)
		}
		return outcome, nil
	default:
		log.Printf("[PAYMENT] [INFO] unhandled stripe event type: %s", evt.Type)
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) publish(ctx context.Context, eventType string, intent Intent) {
	if r.publisher == nil {
		return
	}
	err := r.publisher.PublishOrderEvent(ctx, OrderEvent{
		Type:            eventType,
		OrderID:         intent.Correlation.MongoOrderID,
		MerchantOrderID: intent.Correlation.OrderID,
		PaymentIntentID: intent.PaymentIntentID,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[PAYMENT] [WARN] publish %s failed: %v", eventType, err)
	}
}
