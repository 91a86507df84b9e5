package service

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tabletop/internal/config"
	"tabletop/internal/model"
	"tabletop/internal/store"
)

type delivery struct {
	Event   model.EventName
	Payload interface{}
}

// recorder is a Broadcaster that keeps every delivery per connection.
type recorder struct {
	mu  sync.Mutex
	got map[string][]delivery
}

func newRecorder() *recorder {
	return &recorder{got: make(map[string][]delivery)}
}

func (r *recorder) SendTo(connIDs []string, event model.EventName, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range connIDs {
		r.got[id] = append(r.got[id], delivery{Event: event, Payload: payload})
	}
}

func (r *recorder) events(connID string) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.got[connID]...)
}

func (r *recorder) last(t *testing.T, connID string) delivery {
	t.Helper()
	evs := r.events(connID)
	if len(evs) == 0 {
		t.Fatalf("no events delivered to %s", connID)
	}
	return evs[len(evs)-1]
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evs := range r.got {
		n += len(evs)
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = make(map[string][]delivery)
}

type countingSaver struct {
	n atomic.Int64
}

func (c *countingSaver) MarkDirty() { c.n.Add(1) }

func testConfig() *config.Config {
	return &config.Config{
		CoordinateSpace: config.SpacePixel,
		BoardWidth:      600,
		BoardHeight:     600,
	}
}

type testEngine struct {
	*Engine
	rec   *recorder
	saver *countingSaver
	blobs *store.MemoryBlobStore
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	reg := NewRegistry(nil, rng)
	binder := NewBinder(reg, NewPlacement(testConfig(), rng))
	blobs := store.NewMemoryBlobStore()
	e := NewEngine(reg, binder, NewGateway(blobs, "rooms.json", time.Second), rng)

	te := &testEngine{Engine: e, rec: newRecorder(), saver: &countingSaver{}, blobs: blobs}
	e.SetBroadcaster(te.rec)
	e.SetSaver(te.saver)
	return te
}

func roster(t *testing.T, d delivery) []model.Player {
	t.Helper()
	if d.Event != model.EvUpdatePlayers {
		t.Fatalf("event = %s, want updatePlayers", d.Event)
	}
	players, ok := d.Payload.([]model.Player)
	if !ok {
		t.Fatalf("payload type %T, want []model.Player", d.Payload)
	}
	return players
}
