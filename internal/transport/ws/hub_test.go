package ws

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"tabletop/internal/model"
)

func recv(t *testing.T, conn *Connection) model.Envelope {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		if !ok {
			t.Fatalf("%s: send channel closed", conn.ID)
		}
		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("%s: bad envelope %s", conn.ID, data)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("%s: nothing delivered", conn.ID)
	}
	return model.Envelope{}
}

func newConn(id string) *Connection {
	return &Connection{ID: id, Send: make(chan []byte, 8)}
}

type countingObserver struct {
	connected, disconnected atomic.Int64
}

func (o *countingObserver) Connected()    { o.connected.Add(1) }
func (o *countingObserver) Disconnected() { o.disconnected.Add(1) }

func TestHubSendTo(t *testing.T) {
	h := NewHub()
	defer h.Close()

	a, b, c := newConn("a"), newConn("b"), newConn("c")
	h.Register(a)
	h.Register(b)
	h.Register(c)
	if n := h.Count(); n != 3 {
		t.Fatalf("Count = %d", n)
	}

	h.SendTo([]string{"a", "b", "ghost"}, model.EvRollDiceResult, model.RollResult{Roll: 5})
	h.SendTo([]string{"a", "b"}, model.EvCloseModal, nil)

	for _, conn := range []*Connection{a, b} {
		first := recv(t, conn)
		if first.Type != model.EvRollDiceResult || string(first.Payload) != `{"roll":5}` {
			t.Errorf("%s first = %+v", conn.ID, first)
		}
		second := recv(t, conn)
		if second.Type != model.EvCloseModal || second.Payload != nil {
			t.Errorf("%s second = %+v", conn.ID, second)
		}
	}
	select {
	case data := <-c.Send:
		t.Errorf("c received %s", data)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	defer h.Close()

	slow := &Connection{ID: "slow", Send: make(chan []byte, 1)}
	h.Register(slow)
	for i := 0; i < 5; i++ {
		h.SendTo([]string{"slow"}, model.EvRollDiceResult, model.RollResult{Roll: i})
	}
	time.Sleep(50 * time.Millisecond)

	if got := recv(t, slow); string(got.Payload) != `{"roll":0}` {
		t.Errorf("kept %s, want the first event", got.Payload)
	}
	select {
	case data := <-slow.Send:
		t.Errorf("overflow delivered %s", data)
	default:
	}
}

func TestHubUnregisterAndObserver(t *testing.T) {
	h := NewHub()
	defer h.Close()
	obs := &countingObserver{}
	h.SetObserver(obs)

	a := newConn("a")
	h.Register(a)
	h.Unregister(a)
	h.Unregister(a) // second call is ignored

	if _, ok := <-a.Send; ok {
		t.Error("Send not closed after Unregister")
	}
	if n := h.Count(); n != 0 {
		t.Errorf("Count = %d", n)
	}
	if obs.connected.Load() != 1 || obs.disconnected.Load() != 1 {
		t.Errorf("observer saw %d/%d", obs.connected.Load(), obs.disconnected.Load())
	}

	// a stale connection with a reused id must not evict the live one
	b1, b2 := newConn("b"), newConn("b")
	h.Register(b1)
	h.Register(b2)
	h.Unregister(b1)
	if n := h.Count(); n != 1 {
		t.Errorf("Count = %d after stale unregister", n)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	a := newConn("a")
	h.Register(a)
	h.Close()
	h.Close()

	select {
	case _, ok := <-a.Send:
		if ok {
			t.Error("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatal("Send not closed by Close")
	}
	h.SendTo([]string{"a"}, model.EvCloseModal, nil) // must not block
	h.Unregister(a)
	if h.Count() != 0 {
		t.Error("Count after Close")
	}
}
