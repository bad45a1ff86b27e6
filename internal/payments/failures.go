package payments

import (
	"context"
	"log"
	"time"

	"storefront/internal/models"
)

// FailureRecorder stores a failed payment attempt on an unpaid order. It
// never touches inventory.
type FailureRecorder struct {
	orders OrderStore
	now    func() time.Time
}

func NewFailureRecorder(orders OrderStore) *FailureRecorder {
	return &FailureRecorder{orders: orders, now: time.Now}
}

func (r *FailureRecorder) Record(ctx context.Context, intent Intent) Outcome {
	key := intent.Correlation.Key()
	if key == "" {
		log.Printf("[PAYMENT] [INFO] %s carries no order metadata; nothing to record", intent.EventType)
		return OutcomeUncorrelated
	}

	id, found, err := resolveOrderID(ctx, r.orders, key)
	if err != nil {
		log.Printf("[PAYMENT] [ERROR] order lookup failed for %s: %v", key, err)
		return OutcomeAbandoned
	}
	if !found {
		log.Printf("[PAYMENT] [WARN] order not found for failed payment: %s", key)
		return OutcomeOrderMissing
	}

	matched, err := r.orders.MarkPaymentFailed(ctx, id, models.PaymentResult{
		ID:         intent.PaymentIntentID,
		Status:     models.PaymentStatusFailed,
		UpdateTime: r.now().UTC().Format(time.RFC3339Nano),
		Raw:        intent.Raw,
	})
	if err != nil {
		log.Printf("[PAYMENT] [ERROR] recording failed payment for %s: %v", id.Hex(), err)
		return OutcomeAbandoned
	}
	if matched == 0 {
		log.Printf("[PAYMENT] [INFO] failed payment not recorded, order %s is missing or already paid", id.Hex())
		return OutcomeFailureSkipped
	}

	log.Printf("[PAYMENT] [INFO] payment failure recorded for order %s", id.Hex())
	return OutcomeFailureRecorded
}
