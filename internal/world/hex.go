// Package world provides the hex grid the province map is generated on.
// Uses axial coordinates (q, r) for the hex grid.
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Farmland, the densest population
	TerrainForest                  // Sparse villages
	TerrainMountain                // Mining towns
	TerrainCoast                   // Ports
	TerrainDesert                  // Nearly empty
	TerrainOcean                   // Not part of any province
)

// Hex represents a single tile on the map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	Elevation float64 `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)
	Rainfall  float64 `json:"rainfall"`  // 0.0 (arid) to 1.0 (tropical)

	// Political fields sampled from noise.
	Opinion float64 `json:"opinion"` // -1 (hostile) to 1 (supportive)
	Leaning float64 `json:"leaning"` // -1 (left) to 1 (right)

	Province string `json:"province,omitempty"` // owning province id; empty for ocean
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// Less orders coordinates by q, then r. Used wherever map iteration order would
// otherwise leak into generation.
func (h HexCoord) Less(o HexCoord) bool {
	if h.Q != o.Q {
		return h.Q < o.Q
	}
	return h.R < o.R
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
