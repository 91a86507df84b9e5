package service

import (
	"math/rand"
	"sort"
	"time"

	"tabletop/internal/model"
)

// DefaultDeck is used when no card labels are configured.
var DefaultDeck = []string{
	"question-1", "question-2", "question-3", "question-4", "question-5",
	"question-6", "question-7", "question-8", "question-9", "question-10",
}

// Registry owns the room table. It is not safe for concurrent use; the
// Engine serialises every call.
type Registry struct {
	rooms     map[string]*model.Room
	deckCards []string
	rng       *rand.Rand
	now       func() time.Time
}

// NewRegistry creates an empty registry. rng shuffles decks.
func NewRegistry(deckCards []string, rng *rand.Rand) *Registry {
	if len(deckCards) == 0 {
		deckCards = DefaultDeck
	}
	return &Registry{
		rooms:     make(map[string]*model.Room),
		deckCards: deckCards,
		rng:       rng,
		now:       time.Now,
	}
}

// Create inserts an empty room.
func (r *Registry) Create(id string) (*model.Room, error) {
	if _, ok := r.rooms[id]; ok {
		return nil, ErrRoomExists
	}
	room := &model.Room{
		ID:        id,
		Players:   []model.Player{},
		CreatedAt: r.now().UTC(),
	}
	r.rooms[id] = room
	return room, nil
}

func (r *Registry) Exists(id string) bool {
	_, ok := r.rooms[id]
	return ok
}

// Get returns the live room. Callers must not mutate it.
func (r *Registry) Get(id string) (*model.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Delete removes and returns the room.
func (r *Registry) Delete(id string) (*model.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	delete(r.rooms, id)
	return room, nil
}

func (r *Registry) Len() int {
	return len(r.rooms)
}

// Summaries lists rooms ordered by creation time.
func (r *Registry) Summaries() []model.RoomSummary {
	out := make([]model.RoomSummary, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, model.RoomSummary{
			ID:          id,
			PlayerCount: len(room.Players),
			CreatedAt:   room.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AddPlayer appends p to the roster.
func (r *Registry) AddPlayer(roomID string, p model.Player) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.Players = append(room.Players, p)
	return nil
}

// SetPosition overwrites a player's position.
func (r *Registry) SetPosition(roomID, playerID string, pos model.Position) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	i := room.PlayerIndex(playerID)
	if i < 0 {
		return ErrPlayerNotFound
	}
	room.Players[i].Position = pos
	return nil
}

// RemovePlayer drops playerID from every room and returns the ids of the
// rooms it was removed from.
func (r *Registry) RemovePlayer(playerID string) []string {
	var affected []string
	for id, room := range r.rooms {
		i := room.PlayerIndex(playerID)
		if i < 0 {
			continue
		}
		room.Players = append(room.Players[:i:i], room.Players[i+1:]...)
		affected = append(affected, id)
	}
	sort.Strings(affected)
	return affected
}

// Deck returns the room's deck, shuffling a fresh one on first access.
func (r *Registry) Deck(roomID string) ([]string, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.Deck == nil {
		deck := make([]string, len(r.deckCards))
		copy(deck, r.deckCards)
		r.rng.Shuffle(len(deck), func(i, j int) {
			deck[i], deck[j] = deck[j], deck[i]
		})
		room.Deck = deck
	}
	return room.Deck, nil
}

// DrawCard pops the top card of the room's deck.
func (r *Registry) DrawCard(roomID string) (string, int, error) {
	deck, err := r.Deck(roomID)
	if err != nil {
		return "", 0, err
	}
	if len(deck) == 0 {
		return "", 0, ErrDeckEmpty
	}
	card := deck[0]
	r.rooms[roomID].Deck = deck[1:]
	return card, len(deck) - 1, nil
}

// Snapshot returns a deep copy of the table.
func (r *Registry) Snapshot() model.Table {
	t := make(model.Table, len(r.rooms))
	for id, room := range r.rooms {
		t[id] = room.Clone()
	}
	return t
}

// Restore replaces the table. Rosters are always emptied: players are bound
// to connections that did not survive the restart.
func (r *Registry) Restore(t model.Table) {
	r.rooms = make(map[string]*model.Room, len(t))
	for id, room := range t {
		if room == nil {
			room = &model.Room{CreatedAt: r.now().UTC()}
		}
		c := room.Clone()
		c.ID = id
		c.Players = []model.Player{}
		r.rooms[id] = c
	}
}
