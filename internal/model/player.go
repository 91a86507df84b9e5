package model

// Position is a board coordinate. Whether X/Y are pixels or percentages is a
// deployment-wide setting (see config.CoordinateSpace).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one participant inside a single room. ID is the connection id.
type Player struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Position Position `json:"position"`
}
