package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(ProductsCollection).Indexes()

	nameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_index"),
	}

	log.Println("EnsureProductIndexes: creating name_index index")
	if _, err := indexes.CreateOne(ctx, nameIndex); err != nil {
		log.Println("EnsureProductIndexes: name index error:", err)
		return err
	}
	log.Println("EnsureProductIndexes: name_index index created")
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(UsersCollection).Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	if _, err := indexes.CreateOne(ctx, emailIndex); err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: email_unique index created")
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(OrdersCollection).Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}},
			Options: options.Index().SetName("user_index"),
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().
				SetName("orderId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"orderId": bson.M{"$type": "string"},
				}),
		},
		{
			Keys:    bson.D{{Key: "stripeSessionId", Value: 1}},
			Options: options.Index().SetName("stripeSessionId_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	names, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureOrderIndexes: order index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: created", names)
	return nil
}
