package service

import (
	"math/rand"
	"sort"

	"tabletop/internal/config"
	"tabletop/internal/model"
)

// Palette is the fixed colour order; its length is the room capacity.
var Palette = []string{"red", "blue", "green", "yellow", "purple"}

// Canonical start positions, tried in order on join.
var (
	PixelStarts = []model.Position{
		{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 100},
		{X: 400, Y: 100}, {X: 500, Y: 100},
	}
	PercentStarts = []model.Position{
		{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 10},
		{X: 40, Y: 10}, {X: 50, Y: 10},
	}
)

// Placement decides where a joining player lands.
type Placement struct {
	Starts []model.Position
	Width  float64 // extent of the X axis; 100 in percent space
	Height float64
	rng    *rand.Rand
}

// NewPlacement builds the placement rules for a deployment's coordinate space.
func NewPlacement(cfg *config.Config, rng *rand.Rand) Placement {
	if cfg.CoordinateSpace == config.SpacePercent {
		return Placement{Starts: PercentStarts, Width: 100, Height: 100, rng: rng}
	}
	return Placement{Starts: PixelStarts, Width: cfg.BoardWidth, Height: cfg.BoardHeight, rng: rng}
}

// next returns the first free canonical start, or a random interior point
// (10%..90% of each axis) when every canonical start is taken.
func (p Placement) next(players []model.Player) model.Position {
	for _, start := range p.Starts {
		taken := false
		for _, pl := range players {
			if pl.Position == start {
				taken = true
				break
			}
		}
		if !taken {
			return start
		}
	}
	return model.Position{
		X: p.Width * (0.1 + 0.8*p.rng.Float64()),
		Y: p.Height * (0.1 + 0.8*p.rng.Float64()),
	}
}

// Binder tracks which connection is bound to which room and performs the
// membership half of join, move and disconnect. Like Registry it relies on
// the Engine for serialisation.
type Binder struct {
	registry  *Registry
	placement Placement

	roomsOf map[string]map[string]struct{} // connID -> roomIDs
	members map[string]map[string]struct{} // roomID -> connIDs
}

func NewBinder(registry *Registry, placement Placement) *Binder {
	return &Binder{
		registry:  registry,
		placement: placement,
		roomsOf:   make(map[string]map[string]struct{}),
		members:   make(map[string]map[string]struct{}),
	}
}

// Join adds connID to roomID. Joining a room the connection is already in
// returns the existing player unchanged.
func (b *Binder) Join(connID, roomID string) (model.Player, error) {
	room, err := b.registry.Get(roomID)
	if err != nil {
		return model.Player{}, err
	}
	if i := room.PlayerIndex(connID); i >= 0 {
		b.bind(connID, roomID)
		return room.Players[i], nil
	}
	if len(room.Players) >= len(Palette) {
		return model.Player{}, ErrRoomFull
	}

	// Colour follows the roster size, position follows free slots. The two
	// can disagree after a fallback placement; that pairing is kept as is.
	p := model.Player{
		ID:       connID,
		Color:    Palette[len(room.Players)%len(Palette)],
		Position: b.placement.next(room.Players),
	}
	if err := b.registry.AddPlayer(roomID, p); err != nil {
		return model.Player{}, err
	}
	b.bind(connID, roomID)
	return p, nil
}

// Move overwrites the connection's position in roomID. It reports false when
// the connection has no player in that room.
func (b *Binder) Move(connID, roomID string, pos model.Position) (bool, error) {
	err := b.registry.SetPosition(roomID, connID, pos)
	switch err {
	case nil:
		return true, nil
	case ErrPlayerNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Unbind removes connID from every room roster and every binding. It returns
// the rooms whose membership changed.
func (b *Binder) Unbind(connID string) []string {
	affected := map[string]struct{}{}
	for _, id := range b.registry.RemovePlayer(connID) {
		affected[id] = struct{}{}
	}
	for roomID := range b.roomsOf[connID] {
		affected[roomID] = struct{}{}
		b.unbindFrom(connID, roomID)
	}
	delete(b.roomsOf, connID)
	return sortedKeys(affected)
}

// Evict drops every binding to roomID and returns the evicted connections.
func (b *Binder) Evict(roomID string) []string {
	conns := sortedKeys(b.members[roomID])
	for _, connID := range conns {
		b.unbindFrom(connID, roomID)
	}
	delete(b.members, roomID)
	return conns
}

// Connections lists the connections bound to roomID.
func (b *Binder) Connections(roomID string) []string {
	return sortedKeys(b.members[roomID])
}

// RoomsOf lists the rooms connID is bound to.
func (b *Binder) RoomsOf(connID string) []string {
	return sortedKeys(b.roomsOf[connID])
}

func (b *Binder) bind(connID, roomID string) {
	if b.roomsOf[connID] == nil {
		b.roomsOf[connID] = make(map[string]struct{})
	}
	b.roomsOf[connID][roomID] = struct{}{}
	if b.members[roomID] == nil {
		b.members[roomID] = make(map[string]struct{})
	}
	b.members[roomID][connID] = struct{}{}
}

func (b *Binder) unbindFrom(connID, roomID string) {
	if rooms := b.roomsOf[connID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(b.roomsOf, connID)
		}
	}
	if conns := b.members[roomID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(b.members, roomID)
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
