package handlers

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

const (
	taxRate               = 0.18
	freeShippingThreshold = 1000
	flatShippingPrice     = 100
)

// orderItemRequest accepts the product reference as either productId or
// product. Quantity defaults to one when omitted.
type orderItemRequest struct {
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Quantity  int    `json:"qty"`
}

func (r orderItemRequest) productHex() string {
	if id := strings.TrimSpace(r.ProductID); id != "" {
		return id
	}
	return strings.TrimSpace(r.Product)
}

type orderPrices struct {
	Items    float64
	Tax      float64
	Shipping float64
	Total    float64
}

type productNotFoundError struct {
	ProductID string
}

func (e productNotFoundError) Error() string {
	return fmt.Sprintf("Product not found: %s", e.ProductID)
}

func orderItemProductIDs(items []orderItemRequest) ([]primitive.ObjectID, error) {
	if len(items) == 0 {
		return nil, errors.New("No items ordered.")
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		id, err := primitive.ObjectIDFromHex(item.productHex())
		if err != nil {
			return nil, fmt.Errorf("invalid product id: %q", item.productHex())
		}
		if item.Quantity < 0 {
			return nil, errors.New("quantity must be greater than zero")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// buildOrderItems prices every requested item from the catalog. Client
// supplied prices are never trusted.
func buildOrderItems(items []orderItemRequest, catalog []models.Product) ([]models.OrderItem, error) {
	byID := make(map[primitive.ObjectID]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		id, err := primitive.ObjectIDFromHex(item.productHex())
		if err != nil {
			return nil, fmt.Errorf("invalid product id: %q", item.productHex())
		}
		product, ok := byID[id]
		if !ok {
			return nil, productNotFoundError{ProductID: id.Hex()}
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		orderItems = append(orderItems, models.OrderItem{
			Product:  product.ID,
			Name:     product.Name,
			Image:    product.Image,
			Price:    product.Price,
			Quantity: qty,
		})
	}
	return orderItems, nil
}

func itemsTotal(items []models.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// calculateOrderPrices applies 18% tax and free shipping above 1000.
func calculateOrderPrices(items []models.OrderItem) orderPrices {
	itemPrice := itemsTotal(items)
	tax := roundMoney(itemPrice * taxRate)
	shipping := float64(flatShippingPrice)
	if itemPrice > freeShippingThreshold {
		shipping = 0
	}
	return orderPrices{
		Items:    itemPrice,
		Tax:      tax,
		Shipping: shipping,
		Total:    roundMoney(itemPrice + tax + shipping),
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
