package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

var sortableProductFields = map[string]struct{}{
	"price":        {},
	"rating":       {},
	"name":         {},
	"createdAt":    {},
	"countInStock": {},
	"numReviews":   {},
}

// buildProductFilter turns catalog query parameters into a Mongo filter.
// price is read as price[gte] and price[lte].
func buildProductFilter(keyword, category, inStock string, price map[string]string) (bson.M, error) {
	filter := bson.M{}

	if keyword = strings.TrimSpace(keyword); keyword != "" {
		filter["name"] = primitive.Regex{Pattern: regexpQuote(keyword), Options: "i"}
	}

	if category = strings.TrimSpace(category); category != "" {
		filter["category"] = category
	}

	if inStock = strings.TrimSpace(inStock); inStock != "" {
		wantInStock, err := strconv.ParseBool(inStock)
		if err != nil {
			return nil, errors.New("inStock must be boolean")
		}
		if wantInStock {
			filter["countInStock"] = bson.M{"$gt": 0}
		} else {
			filter["countInStock"] = 0
		}
	}

	priceFilter := bson.M{}
	for _, op := range []string{"gte", "lte"} {
		raw := strings.TrimSpace(price[op])
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("price bounds must be numbers")
		}
		priceFilter["$"+op] = value
	}
	if len(priceFilter) > 0 {
		filter["price"] = priceFilter
	}

	return filter, nil
}

// parseProductSort accepts field_asc or field_desc; a bare field sorts
// ascending.
func parseProductSort(raw string) (bson.D, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return bson.D{{Key: "createdAt", Value: -1}}, nil
	}
	field, direction, _ := strings.Cut(raw, "_")
	if _, ok := sortableProductFields[field]; !ok {
		return nil, errors.New("unsupported sort field: " + field)
	}
	order := 1
	if direction == "desc" {
		order = -1
	}
	return bson.D{{Key: field, Value: order}, {Key: "_id", Value: 1}}, nil
}

func regexpQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		filter, err := buildProductFilter(c.Query("keyword"), c.Query("category"), c.Query("inStock"), c.QueryMap("price"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		sort, err := parseProductSort(c.Query("sort"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		page, limit, err := parsePaginationParams(
			firstNonEmpty(c.Query("page"), c.Query("pageNumber")),
			firstNonEmpty(c.Query("limit"), c.Query("pageSize")),
		)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coll := db.Collection(database.ProductsCollection)
		total, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cursor, err := coll.Find(ctx, filter, options.Find().
			SetSort(sort).
			SetSkip((page-1)*limit).
			SetLimit(limit))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products":   products,
			"page":       page,
			"pages":      totalPages(total, limit),
			"totalItems": total,
		})
	}
}

func GetTopProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/top"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(database.ProductsCollection).Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "rating", Value: -1}}).SetLimit(3))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0, 3)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func GetProductByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var product models.Product
		err := db.Collection(database.ProductsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&product)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "Product not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func CreateProduct(db *mongo.Database, storage *UploadStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer handlePanic(c, route)

		user, _ := middleware.CurrentUser(c)

		input, err := parseProductInput(c, storage)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		now := time.Now()
		product := models.Product{
			User:      user.ID,
			Name:      "Sample name",
			Reviews:   []models.Review{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyProductInput(&product, input)

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(database.ProductsCollection).InsertOne(ctx, product)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}

		log.Println("[PRODUCT] [INFO] product created:", product.ID.Hex())
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(db *mongo.Database, storage *UploadStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		input, err := parseProductInput(c, storage)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coll := db.Collection(database.ProductsCollection)
		var product models.Product
		err = coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "Product not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		previousImage := product.Image
		set := applyProductInput(&product, input)
		if len(set) == 0 {
			c.JSON(http.StatusOK, product)
			return
		}
		product.UpdatedAt = time.Now()
		set["updatedAt"] = product.UpdatedAt

		if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if previousImage != product.Image && strings.HasPrefix(previousImage, uploadURLPrefix) {
			if err := storage.deleteUpload(previousImage); err != nil {
				log.Printf("[PRODUCT] [WARN] old image delete failed: %v", err)
			}
		}

		c.JSON(http.StatusOK, product)
	}
}

// applyProductInput copies the sent fields onto product and returns them as
// a $set document. countInStock is only changed here by an explicit admin
// edit.
func applyProductInput(product *models.Product, input productInput) bson.M {
	set := bson.M{}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
		set["name"] = product.Name
	}
	if input.Price != nil {
		product.Price = *input.Price
		set["price"] = product.Price
	}
	if input.Image != nil && *input.Image != "" {
		product.Image = *input.Image
		set["image"] = product.Image
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
		set["brand"] = product.Brand
	}
	if input.Category != nil {
		product.Category = *input.Category
		set["category"] = product.Category
	}
	if input.Description != nil {
		product.Description = *input.Description
		set["description"] = product.Description
	}
	if input.CountInStock != nil {
		product.CountInStock = *input.CountInStock
		set["countInStock"] = product.CountInStock
	}
	return set
}

func DeleteProduct(db *mongo.Database, storage *UploadStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var deleted models.Product
		err := db.Collection(database.ProductsCollection).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "Product not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if strings.HasPrefix(deleted.Image, uploadURLPrefix) {
			if err := storage.deleteUpload(deleted.Image); err != nil {
				log.Printf("[PRODUCT] [WARN] image delete failed: %v", err)
			}
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "Product deleted successfully."})
	}
}

type createReviewRequest struct {
	Rating  float64 `json:"rating" binding:"required,gte=1,lte=5"`
	Comment string  `json:"comment" binding:"required"`
}

// CreateProductReview adds one review per user and recomputes the average.
func CreateProductReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products/:id/reviews"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		user, _ := middleware.CurrentUser(c)

		var req createReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coll := db.Collection(database.ProductsCollection)
		var product models.Product
		err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "Product not found.")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if product.ReviewedBy(user.ID) {
			respondWithError(c, http.StatusBadRequest, route, "Product already reviewed by this user.")
			return
		}

		review := models.Review{
			ID:        primitive.NewObjectID(),
			Name:      user.Name,
			Rating:    req.Rating,
			Comment:   strings.TrimSpace(req.Comment),
			User:      user.ID,
			CreatedAt: time.Now(),
		}
		product.AddReview(review)

		// The user filter keeps two concurrent reviews from the same user out.
		res, err := coll.UpdateOne(ctx,
			bson.M{"_id": id, "reviews.user": bson.M{"$ne": user.ID}},
			bson.M{
				"$push": bson.M{"reviews": review},
				"$set": bson.M{
					"numReviews": product.NumReviews,
					"rating":     product.Rating,
					"updatedAt":  review.CreatedAt,
				},
			},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Product already reviewed by this user.")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Review added successfully."})
	}
}
