package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var errOrderVanished = errors.New("order disappeared inside transaction")

// Finalizer marks orders paid and decrements their stock exactly once per
// order, however many times the provider delivers the success event.
type Finalizer struct {
	orders    OrderStore
	inventory InventoryStore
	tx        Transactor
	now       func() time.Time
}

// NewFinalizer builds a finalizer. A nil tx disables the transactional path
// and every finalization goes through the direct path.
func NewFinalizer(orders OrderStore, inventory InventoryStore, tx Transactor) *Finalizer {
	return &Finalizer{
		orders:    orders,
		inventory: inventory,
		tx:        tx,
		now:       time.Now,
	}
}

// Finalize applies a payment-succeeded intent. It never returns an error:
// every failure is logged and reported as an Outcome so the provider is not
// asked to retry conditions a retry cannot fix.
func (f *Finalizer) Finalize(ctx context.Context, intent Intent) Outcome {
	key := intent.Correlation.Key()
	if key == "" {
		log.Printf("[PAYMENT] [WARN] %s carries no order metadata; skipping finalization", intent.EventType)
		return OutcomeUncorrelated
	}

	order, err := locateOrder(ctx, f.orders, key)
	if err != nil {
		log.Printf("[PAYMENT] [ERROR] order lookup failed for %s: %v", key, err)
		return OutcomeAbandoned
	}
	if order == nil {
		log.Printf("[PAYMENT] [WARN] order not found for finalization: %s", key)
		return OutcomeOrderMissing
	}

	if order.IsPaid && order.StripePaymentIntentID == intent.PaymentIntentID {
		log.Printf("[PAYMENT] [INFO] order already marked paid: %s", order.ID.Hex())
		return OutcomeAlreadyPaid
	}

	if f.tx != nil {
		outcome, err := f.finalizeInTransaction(ctx, order.ID, intent)
		if err == nil {
			return outcome
		}
		log.Printf("[PAYMENT] [ERROR] transactional finalization failed for %s, falling back: %v", order.ID.Hex(), err)
	}

	return f.finalizeDirect(ctx, order.ID, intent)
}

func (f *Finalizer) finalizeInTransaction(ctx context.Context, id primitive.ObjectID, intent Intent) (Outcome, error) {
	var outcome Outcome
	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		order, err := f.orders.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return errOrderVanished
		}
		if order.IsPaid {
			outcome = OutcomeAlreadyPaid
			return nil
		}

		if err := f.decrementStock(txCtx, order, true); err != nil {
			return err
		}

		order.MarkPaid(intent.PaymentIntentID, intent.Raw, f.now())
		if err := f.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		outcome = OutcomeFinalized
		return nil
	})
	if errors.Is(err, errOrderVanished) {
		log.Printf("[PAYMENT] [WARN] order disappeared in transaction: %s", id.Hex())
		return OutcomeOrderMissing, nil
	}
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeAlreadyPaid:
		log.Printf("[PAYMENT] [INFO] order already paid inside transaction: %s", id.Hex())
	case OutcomeFinalized:
		log.Printf("[PAYMENT] [INFO] order finalized transactionally: %s", id.Hex())
	}
	return outcome, nil
}

// finalizeDirect is used when transactions are unavailable or failed. The
// order is saved as paid first; stock decrements that fail afterwards are
// logged and never undo the paid state.
func (f *Finalizer) finalizeDirect(ctx context.Context, id primitive.ObjectID, intent Intent) Outcome {
	order, err := f.orders.FindByID(ctx, id)
	if err != nil {
		log.Printf("[PAYMENT] [ERROR] direct finalization lookup failed for %s: %v", id.Hex(), err)
		return OutcomeAbandoned
	}
	if order == nil {
		log.Printf("[PAYMENT] [WARN] order not found in direct finalization: %s", id.Hex())
		return OutcomeOrderMissing
	}
	if order.IsPaid {
		log.Printf("[PAYMENT] [INFO] order already marked paid (direct): %s", id.Hex())
		return OutcomeAlreadyPaid
	}

	order.MarkPaid(intent.PaymentIntentID, intent.Raw, f.now())
	if err := f.orders.Save(ctx, order); err != nil {
		log.Printf("[PAYMENT] [ERROR] direct finalization save failed for %s: %v", id.Hex(), err)
		return OutcomeAbandoned
	}

	_ = f.decrementStock(ctx, order, false)

	log.Printf("[PAYMENT] [INFO] order finalized (direct save): %s", id.Hex())
	return OutcomeFinalizedFallback
}

// decrementStock applies the conditional decrement to every line item.
// Insufficient stock is logged and skipped. A store error stops the loop when
// stopOnError is set and is logged and skipped otherwise.
func (f *Finalizer) decrementStock(ctx context.Context, order *models.Order, stopOnError bool) error {
	for _, item := range order.OrderItems {
		modified, err := f.inventory.DecrementStock(ctx, item.Product, item.Quantity)
		if err != nil {
			if stopOnError {
				return fmt.Errorf("decrement stock for product %s: %w", item.Product.Hex(), err)
			}
			log.Printf("[PAYMENT] [WARN] product decrement failed for %s: %v", item.Product.Hex(), err)
			continue
		}
		if modified == 0 {
			log.Printf("[PAYMENT] [WARN] could not decrement stock for product %s qty %d (order %s)",
				item.Product.Hex(), item.Quantity, order.ID.Hex())
		}
	}
	return nil
}
