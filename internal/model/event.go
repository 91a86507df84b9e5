package model

import "encoding/json"

// EventName identifies a client or server event on the bidirectional channel.
type EventName string

// Client -> server events
const (
	EvJoinRoom   EventName = "joinRoom"
	EvMovePlayer EventName = "movePlayer"
	EvRollDice   EventName = "rollDice"
	EvOpenModal  EventName = "openModal"
	EvCloseModal EventName = "closeModal"
	EvFlipImage  EventName = "flipImage"
	EvDrawCard   EventName = "drawCard"
)

// Server -> client events
const (
	EvUpdatePlayers  EventName = "updatePlayers"
	EvRoomNotFound   EventName = "roomNotFound"
	EvRoomFull       EventName = "roomFull"
	EvRoomDeleted    EventName = "roomDeleted"
	EvRollDiceResult EventName = "rollDiceResult"
	EvCardDrawn      EventName = "cardDrawn"
	EvInvalidEvent   EventName = "invalidEvent"
	// openModal, closeModal and flipImage are echoed under their client names.
)

// Envelope is the wire format in both directions
type Envelope struct {
	Type    EventName       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Notice is the payload of roomNotFound, roomFull, roomDeleted and invalidEvent.
type Notice struct {
	Message string `json:"message"`
}

// MoveRequest accepts either pixel (x/y) or percentage (xPercent/yPercent) keys.
type MoveRequest struct {
	RoomID   string   `json:"roomId"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	XPercent *float64 `json:"xPercent,omitempty"`
	YPercent *float64 `json:"yPercent,omitempty"`
}

// RollRequest carries a client-side roll. A nil Roll asks the server to roll.
type RollRequest struct {
	RoomID string `json:"roomId"`
	Roll   *int   `json:"roll,omitempty"`
}

type RollResult struct {
	Roll int `json:"roll"`
}

type ModalRequest struct {
	RoomID   string `json:"roomId"`
	Category string `json:"category"`
}

type ModalOpened struct {
	Category string `json:"category"`
}

type FlipRequest struct {
	RoomID   string `json:"roomId"`
	Category string `json:"category"`
	NewSrc   string `json:"newSrc"`
	Flipped  bool   `json:"flipped"`
}

type ImageFlipped struct {
	Category string `json:"category"`
	NewSrc   string `json:"newSrc"`
	Flipped  bool   `json:"flipped"`
}

// CardDrawn is broadcast after a card leaves the room deck
type CardDrawn struct {
	Card      string `json:"card"`
	Remaining int    `json:"remaining"`
}
