package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/gateway"
	"storefront/internal/models"
)

// CheckoutOrderStore is the order persistence the checkout endpoint uses.
type CheckoutOrderStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	SetCheckoutSession(ctx context.Context, id primitive.ObjectID, sessionID string) error
}

type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
}

type CheckoutSessionCreator interface {
	Create(ctx context.Context, req gateway.CheckoutRequest) (gateway.CheckoutSession, error)
}

type createCheckoutSessionRequest struct {
	MongoOrderID    string                 `json:"mongoOrderId"`
	OrderID         string                 `json:"orderId"`
	Items           []orderItemRequest     `json:"items"`
	User            string                 `json:"user"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

// CreateCheckoutSession opens a hosted checkout page for an existing order,
// or for a new order built from items, and records the session on it.
func CreateCheckoutSession(orders CheckoutOrderStore, catalog ProductCatalog, sessions CheckoutSessionCreator, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/stripe/create-checkout-session"
		defer handlePanic(c, route)

		var req createCheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var order *models.Order
		if mongoOrderID := strings.TrimSpace(req.MongoOrderID); mongoOrderID != "" {
			id, err := primitive.ObjectIDFromHex(mongoOrderID)
			if err != nil {
				respondWithError(c, http.StatusNotFound, route, "Order not found")
				return
			}
			order, err = orders.FindByID(ctx, id)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Could not create checkout session")
				return
			}
			if order == nil {
				respondWithError(c, http.StatusNotFound, route, "Order not found")
				return
			}
			if order.IsPaid {
				respondWithError(c, http.StatusBadRequest, route, "Order already paid")
				return
			}
		} else {
			created, status, err := createOrderForCheckout(ctx, orders, catalog, req, currency)
			if err != nil {
				respondWithError(c, status, route, err.Error())
				return
			}
			order = created
		}

		if order.OrderID == "" {
			order.OrderID = order.ID.Hex()
		}

		session, err := sessions.Create(ctx, checkoutRequestFor(order))
		if err != nil {
			log.Printf("[CHECKOUT] [ERROR] session for order %s failed: %v", order.ID.Hex(), err)
			respondWithError(c, http.StatusInternalServerError, route, "Could not create checkout session")
			return
		}

		if err := orders.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
			log.Printf("[CHECKOUT] [ERROR] storing session %s on order %s failed: %v", session.ID, order.ID.Hex(), err)
			respondWithError(c, http.StatusInternalServerError, route, "Could not create checkout session")
			return
		}

		log.Printf("[CHECKOUT] [INFO] session %s created for order %s", session.ID, order.ID.Hex())
		c.JSON(http.StatusOK, gin.H{"url": session.URL, "sessionId": session.ID})
	}
}

func createOrderForCheckout(ctx context.Context, orders CheckoutOrderStore, catalog ProductCatalog, req createCheckoutSessionRequest, currency string) (*models.Order, int, error) {
	if len(req.Items) == 0 {
		return nil, http.StatusBadRequest, errors.New("items required to create order")
	}
	ids, err := orderItemProductIDs(req.Items)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	products, err := catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("Could not create checkout session")
	}
	items, err := buildOrderItems(req.Items, products)
	if err != nil {
		var notFound productNotFoundError
		if errors.As(err, &notFound) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusBadRequest, err
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = fmt.Sprintf("order_%s", uuid.NewString())
	}

	total := itemsTotal(items)
	now := time.Now()
	order := &models.Order{
		OrderID:         orderID,
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress,
		ItemPrice:       total,
		TotalPrice:      total,
		Currency:        strings.ToUpper(currency),
		Status:          models.OrderStatusPending,
		PaymentResult:   &models.PaymentResult{Status: models.PaymentStatusCreated},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.User)); err == nil {
		order.User = &userID
	}

	if err := orders.Insert(ctx, order); err != nil {
		return nil, http.StatusInternalServerError, errors.New("Could not create checkout session")
	}
	return order, 0, nil
}

func checkoutRequestFor(order *models.Order) gateway.CheckoutRequest {
	items := make([]gateway.CheckoutLineItem, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		name := item.Name
		if name == "" {
			name = "Product " + item.Product.Hex()
		}
		items = append(items, gateway.CheckoutLineItem{
			Name:      name,
			Image:     item.Image,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		})
	}
	return gateway.CheckoutRequest{
		OrderID:      order.OrderID,
		MongoOrderID: order.ID.Hex(),
		TotalPrice:   order.TotalPrice,
		Items:        items,
	}
}
