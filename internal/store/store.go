// Package store defines the opaque blob contract the room snapshot is
// persisted through, plus the backends that do not need a database driver.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrBlobNotFound is returned by Get when nothing was ever stored under key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the minimum a durable backend has to offer.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// MemoryBlobStore keeps blobs in process memory.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
	}
}

func (m *MemoryBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := make([]byte, len(data))
	copy(b, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = b
	return nil
}

func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
