package ws

import (
	"encoding/json"
	"log"
	"sync"

	"tabletop/internal/model"
)

// Connection is one live websocket client
type Connection struct {
	ID   string
	Send chan []byte
}

// ConnectionObserver is told when live connections come and go
type ConnectionObserver interface {
	Connected()
	Disconnected()
}

// delivery is one encoded event headed for a set of connections
type delivery struct {
	ConnIDs []string
	Data    []byte
}

// Hub owns every live connection and fans encoded events out to them. All
// map access happens on the run goroutine; deliveries queued by one caller
// reach each connection in the order they were queued.
type Hub struct {
	conns map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	deliver    chan *delivery
	count      chan chan int
	done       chan struct{}
	once       sync.Once

	observer ConnectionObserver
}

// NewHub creates a new websocket hub and starts its loop
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		deliver:    make(chan *delivery, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// SetObserver must be called before the first connection registers.
func (h *Hub) SetObserver(o ConnectionObserver) {
	h.observer = o
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for id, conn := range h.conns {
				close(conn.Send)
				delete(h.conns, id)
			}
			return

		case conn := <-h.register:
			h.conns[conn.ID] = conn
			log.Printf("Connection %s registered (%d live)", conn.ID, len(h.conns))
			if h.observer != nil {
				h.observer.Connected()
			}

		case conn := <-h.unregister:
			if existing, ok := h.conns[conn.ID]; ok && existing == conn {
				delete(h.conns, conn.ID)
				close(conn.Send)
				log.Printf("Connection %s unregistered (%d live)", conn.ID, len(h.conns))
				if h.observer != nil {
					h.observer.Disconnected()
				}
			}

		case d := <-h.deliver:
			for _, id := range d.ConnIDs {
				conn, ok := h.conns[id]
				if !ok {
					continue
				}
				select {
				case conn.Send <- d.Data:
				default:
					// Drop message if buffer full
				}
			}

		case reply := <-h.count:
			reply <- len(h.conns)
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection and closes its Send channel
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// SendTo encodes one event and queues it for connIDs (implements
// service.Broadcaster).
func (h *Hub) SendTo(connIDs []string, event model.EventName, payload interface{}) {
	data, err := Encode(event, payload)
	if err != nil {
		log.Printf("encode %s: %v", event, err)
		return
	}
	ids := make([]string, len(connIDs))
	copy(ids, connIDs)

	select {
	case h.deliver <- &delivery{ConnIDs: ids, Data: data}:
	case <-h.done:
	}
}

// Close stops the hub and closes every connection's Send channel.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Encode builds the wire envelope for one event
func Encode(event model.EventName, payload interface{}) ([]byte, error) {
	env := model.Envelope{Type: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
