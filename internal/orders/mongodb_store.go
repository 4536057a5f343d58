package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using MongoDB. The unique index on order_number
// combined with a single findOneAndUpdate upsert preserves the same
// merge-on-conflict semantics as the Postgres backend.
type MongoStore struct {
	client *mongo.Client
	orders *mongo.Collection
}

type mongoOrder struct {
	OrderNumber string    `bson:"order_number"`
	UserID      string    `bson:"user_id"`
	Status      string    `bson:"status"`
	TotalAmount string    `bson:"total_amount"`
	Currency    string    `bson:"currency"`
	ItemsCount  int       `bson:"items_count"`
	OrderedAt   time.Time `bson:"ordered_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

// NewMongoStore creates a new MongoDB-backed store.
func NewMongoStore(connectionString, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		// Disconnect() error during initialization cleanup is not actionable.
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	store := &MongoStore{
		client: client,
		orders: client.Database(database).Collection(tableOrDefault(collection)),
	}

	_, err = store.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ordered_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create order indexes: %w", err)
	}

	return store, nil
}

// UpsertOrder performs a single atomic findOneAndUpdate upsert keyed on
// order_number, returning the persisted document.
func (s *MongoStore) UpsertOrder(ctx context.Context, order ConfirmedOrder) (ConfirmedOrder, error) {
	if order.OrderNumber == "" {
		return ConfirmedOrder{}, fmt.Errorf("orders: order number required")
	}

	update := bson.M{
		"$set": bson.M{
			"user_id":      order.UserID,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
			"currency":     order.Currency,
			"items_count":  order.ItemsCount,
			"ordered_at":   order.OrderedAt,
		},
		"$setOnInsert": bson.M{
			"order_number": order.OrderNumber,
			"created_at":   time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc mongoOrder
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"order_number": order.OrderNumber}, update, opts).Decode(&doc)
	if err != nil {
		return ConfirmedOrder{}, fmt.Errorf("upsert order: %w", err)
	}
	return doc.toOrder(), nil
}

// GetOrder retrieves an order by order number.
func (s *MongoStore) GetOrder(ctx context.Context, orderNumber string) (ConfirmedOrder, error) {
	var doc mongoOrder
	err := s.orders.FindOne(ctx, bson.M{"order_number": orderNumber}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ConfirmedOrder{}, ErrNotFound
	}
	if err != nil {
		return ConfirmedOrder{}, fmt.Errorf("get order: %w", err)
	}
	return doc.toOrder(), nil
}

// ListOrdersByUser returns a user's orders, most recent first.
func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]ConfirmedOrder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ordered_at", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []ConfirmedOrder
	for cursor.Next(ctx) {
		var doc mongoOrder
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, doc.toOrder())
	}
	return out, cursor.Err()
}

// Close disconnects the MongoDB client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (d mongoOrder) toOrder() ConfirmedOrder {
	return ConfirmedOrder{
		OrderNumber: d.OrderNumber,
		UserID:      d.UserID,
		Status:      d.Status,
		TotalAmount: d.TotalAmount,
		Currency:    d.Currency,
		ItemsCount:  d.ItemsCount,
		OrderedAt:   d.OrderedAt,
		CreatedAt:   d.CreatedAt,
	}
}
