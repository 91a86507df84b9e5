package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tabletop/internal/model"
)

// Saver is told that the room table changed
type Saver interface {
	MarkDirty()
}

// WriteBehind flushes the room table to the Gateway after mutations.
// Marks that arrive while a flush is pending or running coalesce into at most
// one more save, and saves never overlap.
type WriteBehind struct {
	gateway  *Gateway
	snapshot func() model.Table
	debounce time.Duration

	dirty   atomic.Bool
	signal  chan struct{}
	flushMu sync.Mutex
	saves   atomic.Int64

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewWriteBehind starts the flusher goroutine. snapshot must return a copy
// of the table that is safe to encode without holding any lock.
func NewWriteBehind(gateway *Gateway, snapshot func() model.Table, debounce time.Duration) *WriteBehind {
	w := &WriteBehind{
		gateway:  gateway,
		snapshot: snapshot,
		debounce: debounce,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w
}

// MarkDirty never blocks.
func (w *WriteBehind) MarkDirty() {
	w.dirty.Store(true)
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *WriteBehind) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			return
		case <-w.signal:
		}

		if w.debounce > 0 {
			timer := time.NewTimer(w.debounce)
			select {
			case <-w.done:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		if err := w.Flush(context.Background()); err != nil {
			log.Printf("room table save failed: %v", err)
		}
	}
}

// Flush saves now if anything changed since the last successful save. A
// failed save leaves the table dirty so a later flush retries it.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	if !w.dirty.Swap(false) {
		return nil
	}
	if err := w.gateway.Save(ctx, w.snapshot()); err != nil {
		w.dirty.Store(true)
		return err
	}
	w.saves.Add(1)
	return nil
}

// Saves reports how many saves have succeeded.
func (w *WriteBehind) Saves() int64 {
	return w.saves.Load()
}

// Close stops the flusher. Pending changes are not saved; call Flush first
// for a final best-effort save.
func (w *WriteBehind) Close() {
	w.once.Do(func() { close(w.done) })
	<-w.stopped
}
