package model

import "time"

// Room is one isolated game table: a roster plus the durable fields that
// survive a restart.
type Room struct {
	ID        string    `json:"-"`
	Players   []Player  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
	Deck      []string  `json:"deck"`
}

// Clone returns a deep copy safe to hand outside the serialised section.
func (r *Room) Clone() *Room {
	c := &Room{
		ID:        r.ID,
		Players:   make([]Player, len(r.Players)),
		CreatedAt: r.CreatedAt,
	}
	copy(c.Players, r.Players)
	if r.Deck != nil {
		c.Deck = make([]string, len(r.Deck))
		copy(c.Deck, r.Deck)
	}
	return c
}

// PlayerIndex returns the roster index of playerID, or -1.
func (r *Room) PlayerIndex(playerID string) int {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// Table is the serialised room table: room id -> room.
type Table map[string]*Room

// RoomSummary is the admin listing view of a room
type RoomSummary struct {
	ID          string    `json:"roomId"`
	PlayerCount int       `json:"playerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
