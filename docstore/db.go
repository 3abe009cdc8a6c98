package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	subjectsCollection = "subjects"
	productsCollection = "products"
)

// DB wraps one Mongo client and database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and pings the server before returning.
func Open(ctx context.Context, uri, database string) (*DB, error) {
	if uri == "" {
		return nil, errors.New("docstore: uri required")
	}
	if database == "" {
		return nil, errors.New("docstore: database name required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}

	return &DB{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the unique email index and the seller lookup index.
// It is idempotent.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	_, err := d.db.Collection(subjectsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("docstore: subjects index: %w", err)
	}

	_, err = d.db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sellerID", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("seller_recent"),
	})
	if err != nil {
		return fmt.Errorf("docstore: products index: %w", err)
	}
	return nil
}

// Subjects returns the subject store.
func (d *DB) Subjects() *Subjects {
	return &Subjects{coll: d.db.Collection(subjectsCollection)}
}

// Products returns the product store.
func (d *DB) Products() *Products {
	return &Products{coll: d.db.Collection(productsCollection)}
}

// Ping checks server reachability.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
