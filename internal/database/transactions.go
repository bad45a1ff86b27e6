package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTransactor runs callbacks inside a multi-document transaction. It
// requires a replica set or sharded cluster; on a standalone server every
// call fails and callers are expected to fall back.
type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

// WithTransaction commits when fn returns nil and aborts otherwise. The
// driver may run fn more than once on transient errors.
func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
