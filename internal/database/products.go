package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

// DecrementStock lowers countInStock by qty when enough stock is available.
// It returns the number of modified products; 0 means the product is missing
// or holds fewer than qty units.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID primitive.ObjectID, qty int) (int64, error) {
	filter := bson.M{
		"_id":          productID,
		"countInStock": bson.M{"$gte": qty},
	}
	update := bson.M{"$inc": bson.M{"countInStock": -qty}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindByIDs returns the products among ids that exist, in no particular order.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, len(ids))
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}
