package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tabletop/internal/store"
)

// snapshotDoc is one stored blob
type snapshotDoc struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// SnapshotRepo stores snapshot blobs as documents, one per key. It
// implements store.BlobStore.
type SnapshotRepo struct {
	collection *mongo.Collection
}

func NewSnapshotRepo(db *mongo.Database, collection string) *SnapshotRepo {
	return &SnapshotRepo{
		collection: db.Collection(collection),
	}
}

// Put replaces the document for key, inserting it on first save.
func (r *SnapshotRepo) Put(ctx context.Context, key string, data []byte) error {
	doc := snapshotDoc{
		Key:       key,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *SnapshotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc snapshotDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrBlobNotFound
		}
		return nil, err
	}
	return doc.Data, nil
}

var _ store.BlobStore = (*SnapshotRepo)(nil)
