package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const slotsCollection = "cache_slots"

// slotDoc is one cache slot. The slot key is the document _id.
type slotDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KV stores cache slots as documents in the cache_slots collection.
type KV struct {
	col *mongo.Collection
}

func NewKV(db *mongo.Database) *KV {
	return &KV{col: db.Collection(slotsCollection)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc slotDoc
	err := k.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo find %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	doc := slotDoc{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := k.col.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", key, err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := k.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.col.Database().Client().Ping(ctx, nil)
}
