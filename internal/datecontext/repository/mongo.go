package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "desk_preferences"
)

type preferenceDocument struct {
	Operator  string    `bson:"operator"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoPreferenceStore struct {
	collection *mongo.Collection
	operator   string
	timeout    time.Duration
}

func NewMongoPreferenceStore(db *mongo.Database, operator string, timeout time.Duration) PreferenceStore {
	return &mongoPreferenceStore{
		collection: db.Collection(CollectionName),
		operator:   operator,
		timeout:    timeout,
	}
}

// EnsureIndexes creates the unique (operator, key) index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "operator", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("operator_key_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create preference index: %w", err)
	}
	return nil
}

func (s *mongoPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var doc preferenceDocument
	err := s.collection.FindOne(ctx, bson.M{"operator": s.operator, "key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *mongoPreferenceStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"operator": s.operator, "key": key}
	update := bson.M{"$set": bson.M{
		"value":      value,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}
