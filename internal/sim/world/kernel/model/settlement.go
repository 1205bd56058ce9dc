package model

// Settlement is a faction base on the world map. Tiles are host world-map
// tile IDs; distance semantics belong to the host's path model.
type Settlement struct {
	ID        string
	FactionID string
	Tile      int
}
