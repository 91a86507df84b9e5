package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tabletop/internal/model"
)

const createAttempts = 3

// Engine turns client and admin actions into serialised state transitions
// followed by broadcasts. All Registry and Binder access happens under mu.
type Engine struct {
	mu       sync.Mutex
	registry *Registry
	binder   *Binder
	rng      *rand.Rand

	gateway     *Gateway
	broadcaster Broadcaster
	saver       Saver
	newID       func() string
}

// NewEngine creates an engine. rng must be the generator shared with
// registry and binder; the engine's lock is what protects it.
func NewEngine(registry *Registry, binder *Binder, gateway *Gateway, rng *rand.Rand) *Engine {
	return &Engine{
		registry: registry,
		binder:   binder,
		rng:      rng,
		gateway:  gateway,
		newID:    uuid.NewString,
	}
}

// SetBroadcaster sets the broadcaster for websocket events
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// SetSaver sets the write-behind saver notified after mutations
func (e *Engine) SetSaver(s Saver) {
	e.saver = s
}

// Restore loads the durable table. Any failure, including a missing blob,
// leaves the engine with an empty table. It returns the number of rooms.
func (e *Engine) Restore(ctx context.Context) int {
	table, err := e.gateway.Load(ctx)
	if err != nil {
		log.Printf("room table load failed, starting empty: %v", err)
		table = model.Table{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Restore(table)
	return e.registry.Len()
}

// Snapshot returns a deep copy of the room table.
func (e *Engine) Snapshot() model.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Snapshot()
}

// CreateRoom creates a room under a fresh random id.
func (e *Engine) CreateRoom() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for attempt := 0; attempt < createAttempts; attempt++ {
		id := e.newID()
		if _, err := e.registry.Create(id); err != nil {
			if errors.Is(err, ErrRoomExists) {
				continue
			}
			return "", err
		}
		log.Printf("room %s created", id)
		e.markDirty()
		return id, nil
	}
	return "", ErrRoomExists
}

func (e *Engine) RoomExists(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Exists(id)
}

// Rooms lists every room with its roster size.
func (e *Engine) Rooms() []model.RoomSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Summaries()
}

// Room returns a copy of one room.
func (e *Engine) Room(id string) (*model.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	room, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return room.Clone(), nil
}

// DeleteRoom notifies every bound connection, then removes the room and its
// bindings.
func (e *Engine) DeleteRoom(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Exists(id) {
		return ErrRoomNotFound
	}
	e.emit(id, model.EvRoomDeleted, model.Notice{Message: "Room deleted"})

	if _, err := e.registry.Delete(id); err != nil {
		return err
	}
	evicted := e.binder.Evict(id)
	log.Printf("room %s deleted, %d connections evicted", id, len(evicted))
	e.markDirty()
	return nil
}

// Join binds connID to roomID and broadcasts the roster.
func (e *Engine) Join(connID, roomID string) (model.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if roomID == "" {
		e.notify(connID, model.EvRoomNotFound, "Room ID is required")
		return model.Player{}, ErrRoomNotFound
	}

	player, err := e.binder.Join(connID, roomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		e.notify(connID, model.EvRoomNotFound, "Room not found")
		return model.Player{}, err
	case errors.Is(err, ErrRoomFull):
		e.notify(connID, model.EvRoomFull, "Room is full")
		return model.Player{}, err
	case err != nil:
		return model.Player{}, err
	}

	log.Printf("Player %s joined room %s as %s", connID, roomID, player.Color)
	e.emitRoster(roomID)
	e.markDirty()
	return player, nil
}

// Move overwrites the sender's position and broadcasts the full roster. A
// sender without a player in the room is a no-op.
func (e *Engine) Move(connID, roomID string, pos model.Position) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, roomID); err != nil {
		return false, err
	}
	moved, err := e.binder.Move(connID, roomID, pos)
	if err != nil {
		return false, err
	}
	if !moved {
		return false, nil
	}
	e.emitRoster(roomID)
	e.markDirty()
	return true, nil
}

// RollDice broadcasts a roll. A nil roll is rolled on the server.
func (e *Engine) RollDice(connID, roomID string, roll *int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, roomID); err != nil {
		return 0, err
	}
	var value int
	if roll != nil {
		value = *roll
	} else {
		value = rollDie(e.rng, DieSides)
	}
	e.emit(roomID, model.EvRollDiceResult, model.RollResult{Roll: value})
	return value, nil
}

func (e *Engine) OpenModal(connID, roomID, category string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, roomID); err != nil {
		return err
	}
	e.emit(roomID, model.EvOpenModal, model.ModalOpened{Category: category})
	return nil
}

func (e *Engine) CloseModal(connID, roomID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, roomID); err != nil {
		return err
	}
	e.emit(roomID, model.EvCloseModal, nil)
	return nil
}

func (e *Engine) FlipImage(connID string, req model.FlipRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, req.RoomID); err != nil {
		return err
	}
	e.emit(req.RoomID, model.EvFlipImage, model.ImageFlipped{
		Category: req.Category,
		NewSrc:   req.NewSrc,
		Flipped:  req.Flipped,
	})
	return nil
}

// DrawCard takes the top card of the room deck and broadcasts it.
func (e *Engine) DrawCard(connID, roomID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRoom(connID, roomID); err != nil {
		return "", err
	}
	card, remaining, err := e.registry.DrawCard(roomID)
	if err != nil {
		e.notify(connID, model.EvInvalidEvent, "Deck is empty")
		return "", err
	}
	e.emit(roomID, model.EvCardDrawn, model.CardDrawn{Card: card, Remaining: remaining})
	e.markDirty()
	return card, nil
}

// Disconnect removes connID from every room and broadcasts the new rosters.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	affected := e.binder.Unbind(connID)
	changed := false
	for _, roomID := range affected {
		if !e.registry.Exists(roomID) {
			continue
		}
		changed = true
		e.emitRoster(roomID)
	}
	if changed {
		log.Printf("Player %s left %d room(s)", connID, len(affected))
		e.markDirty()
	}
}

// HandleEvent decodes one inbound event and dispatches it. Failures are
// reported to connID only.
func (e *Engine) HandleEvent(connID string, env model.Envelope) {
	var err error
	switch env.Type {
	case model.EvJoinRoom:
		var roomID string
		if roomID, err = decodeRoomID(env.Payload); err == nil {
			_, err = e.Join(connID, roomID)
		}
	case model.EvMovePlayer:
		var req model.MoveRequest
		if err = decode(env.Payload, &req); err == nil {
			var pos model.Position
			if pos, err = movePosition(req); err == nil {
				_, err = e.Move(connID, req.RoomID, pos)
			}
		}
	case model.EvRollDice:
		var req model.RollRequest
		if req, err = decodeRoll(env.Payload); err == nil {
			_, err = e.RollDice(connID, req.RoomID, req.Roll)
		}
	case model.EvOpenModal:
		var req model.ModalRequest
		if err = decode(env.Payload, &req); err == nil {
			err = e.OpenModal(connID, req.RoomID, req.Category)
		}
	case model.EvCloseModal:
		var roomID string
		if roomID, err = decodeRoomID(env.Payload); err == nil {
			err = e.CloseModal(connID, roomID)
		}
	case model.EvFlipImage:
		var req model.FlipRequest
		if err = decode(env.Payload, &req); err == nil {
			err = e.FlipImage(connID, req)
		}
	case model.EvDrawCard:
		var roomID string
		if roomID, err = decodeRoomID(env.Payload); err == nil {
			_, err = e.DrawCard(connID, roomID)
		}
	default:
		err = ErrInvalidEvent
	}

	if errors.Is(err, ErrInvalidEvent) {
		e.mu.Lock()
		e.notify(connID, model.EvInvalidEvent, "Invalid "+string(env.Type)+" event")
		e.mu.Unlock()
	}
}

// requireRoom reports roomNotFound to connID when roomID is empty or unknown.
func (e *Engine) requireRoom(connID, roomID string) error {
	if roomID == "" {
		e.notify(connID, model.EvRoomNotFound, "Room ID is required")
		return ErrRoomNotFound
	}
	if !e.registry.Exists(roomID) {
		e.notify(connID, model.EvRoomNotFound, "Room not found")
		return ErrRoomNotFound
	}
	return nil
}

func (e *Engine) emitRoster(roomID string) {
	room, err := e.registry.Get(roomID)
	if err != nil {
		return
	}
	players := make([]model.Player, len(room.Players))
	copy(players, room.Players)
	e.emit(roomID, model.EvUpdatePlayers, players)
}

func (e *Engine) emit(roomID string, event model.EventName, payload interface{}) {
	if e.broadcaster == nil {
		return
	}
	conns := e.binder.Connections(roomID)
	if len(conns) == 0 {
		return
	}
	e.broadcaster.SendTo(conns, event, payload)
}

func (e *Engine) notify(connID string, event model.EventName, message string) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.SendTo([]string{connID}, event, model.Notice{Message: message})
}

func (e *Engine) markDirty() {
	if e.saver != nil {
		e.saver.MarkDirty()
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return ErrInvalidEvent
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return ErrInvalidEvent
	}
	return nil
}

// decodeRoomID accepts a bare room id string or {"roomId": ...}. An absent
// payload yields an empty id, which is reported as roomNotFound.
func decodeRoomID(payload json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(payload, &id); err == nil {
		return id, nil
	}
	var obj struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", ErrInvalidEvent
	}
	return obj.RoomID, nil
}

// movePosition takes x/y, falling back to xPercent/yPercent per axis.
func movePosition(req model.MoveRequest) (model.Position, error) {
	x, y := req.X, req.Y
	if x == nil {
		x = req.XPercent
	}
	if y == nil {
		y = req.YPercent
	}
	if x == nil || y == nil {
		return model.Position{}, ErrInvalidEvent
	}
	return model.Position{X: *x, Y: *y}, nil
}

// decodeRoll accepts {"roomId", "roll"} or a bare room id string.
func decodeRoll(payload json.RawMessage) (model.RollRequest, error) {
	var req model.RollRequest
	if err := json.Unmarshal(payload, &req); err == nil {
		return req, nil
	}
	id, err := decodeRoomID(payload)
	if err != nil {
		return model.RollRequest{}, err
	}
	return model.RollRequest{RoomID: id}, nil
}
