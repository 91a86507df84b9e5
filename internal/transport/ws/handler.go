package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tabletop/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // rooms are public; admin actions go through REST
	},
}

// EventHandler consumes inbound client events (implemented by
// service.Engine).
type EventHandler interface {
	HandleEvent(connID string, env model.Envelope)
	Disconnect(connID string)
}

// Handler handles WebSocket connections
type Handler struct {
	hub    *Hub
	events EventHandler
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, events EventHandler) *Handler {
	return &Handler{
		hub:    hub,
		events: events,
	}
}

// ServeWS handles GET /ws. Each socket gets a fresh connection id, which is
// also its player id in any room it joins.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		ID:   uuid.NewString(),
		Send: make(chan []byte, 256),
	}
	h.hub.Register(conn)

	log.Printf("Player connected %s", conn.ID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// ServeWSHandler adapts ServeWS to http.Handler.
func (h *Handler) ServeWSHandler() http.Handler {
	return http.HandlerFunc(h.ServeWS)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.events.Disconnect(conn.ID)
		h.hub.Unregister(conn)
		wsConn.Close()
		log.Printf("Player disconnected %s", conn.ID)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			h.hub.SendTo([]string{conn.ID}, model.EvInvalidEvent, model.Notice{Message: "Malformed message"})
			continue
		}
		h.events.HandleEvent(conn.ID, env)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				w.Close()
				return
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
