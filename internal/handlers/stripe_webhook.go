package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/gateway"
	"storefront/internal/middleware"
	"storefront/internal/payments"
)

// EventDispatcher applies a verified provider event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt payments.Event) (payments.Outcome, error)
}

// StripeWebhook reads the raw body before anything else touches it, verifies
// it and dispatches the event. Every event that passes verification and
// dispatches without error is acknowledged with 200, including events for
// orders that do not exist and duplicates.
func StripeWebhook(verifier gateway.Verifier, dispatcher EventDispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/stripe/webhook"
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[WEBHOOK] [ERROR] panic recovered: %v", r)
				middleware.RecordWebhookOutcome("", "error")
				c.Abort()
				c.String(http.StatusInternalServerError, "Webhook handler error")
			}
		}()

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Println("[WEBHOOK] [ERROR] read body failed:", err)
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		evt, err := verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Println("[WEBHOOK] [WARN] signature verification failed:", err)
			middleware.RecordWebhookOutcome("", "rejected")
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		outcome, err := dispatcher.Dispatch(c.Request.Context(), evt)
		if err != nil {
			log.Printf("[WEBHOOK] [ERROR] handling %s (%s) failed: %v", evt.Type, evt.ID, err)
			middleware.RecordWebhookOutcome(evt.Type, "error")
			c.String(http.StatusInternalServerError, "Webhook handler error")
			return
		}

		log.Printf("[WEBHOOK] [INFO] %s %s -> %s", route, evt.Type, outcome)
		middleware.RecordWebhookOutcome(evt.Type, string(outcome))
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
