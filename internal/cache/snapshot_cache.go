package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tabletop/internal/store"
)

// SnapshotCache stores snapshot blobs as plain redis strings. It implements
// store.BlobStore.
type SnapshotCache struct {
	client    *redis.Client
	namespace string
}

// NewSnapshotCache creates a redis-backed blob store. Keys are namespaced as
// "<namespace>:<key>".
func NewSnapshotCache(client *redis.Client, namespace string) *SnapshotCache {
	return &SnapshotCache{
		client:    client,
		namespace: namespace,
	}
}

func (c *SnapshotCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.namespace, key)
}

// Put overwrites the blob. No TTL: the snapshot must outlive restarts.
func (c *SnapshotCache) Put(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, c.key(key), data, 0).Err()
}

func (c *SnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

var _ store.BlobStore = (*SnapshotCache)(nil)
