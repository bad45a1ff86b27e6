package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type shippingAddressRequest struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems" binding:"required"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

// CreateOrder stores an unpaid order priced from the catalog. Stock is not
// touched until the payment is finalized.
func CreateOrder(db *mongo.Database, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		user, _ := middleware.CurrentUser(c)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ids, err := orderItemProductIDs(req.OrderItems)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		catalog, err := database.NewProductRepository(db).FindByIDs(ctx, ids)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items, err := buildOrderItems(req.OrderItems, catalog)
		if err != nil {
			var notFound productNotFoundError
			if errors.As(err, &notFound) {
				respondWithError(c, http.StatusNotFound, route, err.Error())
				return
			}
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		prices := calculateOrderPrices(items)
		now := time.Now()
		userID := user.ID
		order := models.Order{
			User:            &userID,
			OrderItems:      items,
			ShippingAddress: models.ShippingAddress(req.ShippingAddress),
			PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
			ItemPrice:       prices.Items,
			TaxPrice:        prices.Tax,
			ShippingPrice:   prices.Shipping,
			TotalPrice:      prices.Total,
			Currency:        strings.ToUpper(currency),
			Status:          models.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := database.NewOrderRepository(db).Insert(ctx, &order); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[ORDER] [INFO] order created for user:", userID.Hex())
		c.JSON(http.StatusCreated, order)
	}
}

func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(database.OrdersCollection).Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Orders could not be fetched")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to parse orders")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/myorders"
		defer handlePanic(c, route)

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(database.OrdersCollection).Find(ctx, bson.M{"user": user.ID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Orders could not be fetched")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to parse orders")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

// GetOrderByID serves the order to its owner or an admin.
func GetOrderByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := database.NewOrderRepository(db).FindByID(ctx, id)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if order == nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found.")
			return
		}
		if !user.IsAdmin && !order.IsOwnedBy(user.ID) {
			respondWithError(c, http.StatusBadRequest, route, "Not authorized to view this order.")
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func UpdateOrderToDelivered(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/deliver"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		now := time.Now()
		var order models.Order
		err := db.Collection(database.OrdersCollection).FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isDelivered": true, "deliveredAt": now, "updatedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "Order not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[ORDER] [INFO] order delivered:", id.Hex())
		c.JSON(http.StatusOK, order)
	}
}
