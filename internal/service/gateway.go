package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tabletop/internal/model"
	"tabletop/internal/store"
)

// Gateway saves and loads the whole room table as one JSON blob under a
// fixed key. Every save is a full overwrite; there is no versioning.
type Gateway struct {
	blobs   store.BlobStore
	key     string
	timeout time.Duration
}

// NewGateway creates a gateway. timeout bounds each call to the backend; zero
// leaves the caller's context as is.
func NewGateway(blobs store.BlobStore, key string, timeout time.Duration) *Gateway {
	return &Gateway{
		blobs:   blobs,
		key:     key,
		timeout: timeout,
	}
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Save serialises table and writes it.
func (g *Gateway) Save(ctx context.Context, table model.Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode room table: %w", err)
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	if err := g.blobs.Put(ctx, g.key, data); err != nil {
		return fmt.Errorf("save room table: %w", err)
	}
	return nil
}

// Load reads the table back. A missing blob is reported as
// store.ErrBlobNotFound (wrapped); callers treat it like any other failure.
// Rosters are cleared by Registry.Restore, not here.
func (g *Gateway) Load(ctx context.Context) (model.Table, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	data, err := g.blobs.Get(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("load room table: %w", err)
	}
	var table model.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode room table: %w", err)
	}
	if table == nil {
		table = model.Table{}
	}
	return table, nil
}
