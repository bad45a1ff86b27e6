package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

// loadWishlist resolves the user's wishlist to products, keeping wishlist
// order and skipping products that no longer exist.
func loadWishlist(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) ([]models.Product, error) {
	var user models.User
	if err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"_id": userID}, noPassword).Decode(&user); err != nil {
		return nil, err
	}
	if len(user.Wishlist) == 0 {
		return []models.Product{}, nil
	}

	products, err := database.NewProductRepository(db).FindByIDs(ctx, user.Wishlist)
	if err != nil {
		return nil, err
	}
	return orderProductsByIDs(user.Wishlist, products), nil
}

func orderProductsByIDs(ids []primitive.ObjectID, products []models.Product) []models.Product {
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/wishlist"
		defer handlePanic(c, route)

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		products, err := loadWishlist(ctx, db, user.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "User not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func AddToWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/wishlist"
		defer handlePanic(c, route)

		user, _ := middleware.CurrentUser(c)

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		count, err := db.Collection(database.ProductsCollection).CountDocuments(ctx, bson.M{"_id": productID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if count == 0 {
			respondWithError(c, http.StatusNotFound, route, "Product does not exist.")
			return
		}

		res, err := db.Collection(database.UsersCollection).UpdateOne(ctx,
			bson.M{"_id": user.ID, "wishlist": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"wishlist": productID},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Product already added to the wishlist.")
			return
		}

		products, err := loadWishlist(ctx, db, user.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Product added to the wishlist.",
			"wishlist": products,
		})
	}
}

func RemoveFromWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/wishlist/:productId"
		defer handlePanic(c, route)

		productID, ok := objectIDParam(c, route, "productId")
		if !ok {
			return
		}
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		_, err := db.Collection(database.UsersCollection).UpdateOne(ctx,
			bson.M{"_id": user.ID},
			bson.M{
				"$pull": bson.M{"wishlist": productID},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		products, err := loadWishlist(ctx, db, user.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Product removed from wishlist.",
			"wishlist": products,
		})
	}
}
