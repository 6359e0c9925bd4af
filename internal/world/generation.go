// Map generation using layered simplex noise.
// Generates elevation and rainfall for terrain, plus opinion and leaning fields that
// seed the provinces' politics.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Radius      int     // Hex grid radius
	Seed        int64   // Random seed (0 = random)
	SeaLevel    float64 // Elevation threshold for ocean (0.0–1.0)
	MountainLvl float64 // Elevation threshold for mountains (0.0–1.0)
	Provinces   int     // Number of provinces to carve out of the land
	HexPeople   uint32  // Population of one fully habitable hex
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      12,
		SeaLevel:    0.25,
		MountainLvl: 0.72,
		Provinces:   12,
		HexPeople:   25000,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:      6,
		Seed:        42,
		SeaLevel:    0.20,
		MountainLvl: 0.75,
		Provinces:   5,
		HexPeople:   10000,
	}
}

// Generate creates a hex map with terrain and political fields.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	opinionNoise := opensimplex.NewNormalized(seed + 2)
	leanNoise := opensimplex.NewNormalized(seed + 3)

	m := NewMap(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)

			// Continental shaping: reduce elevation near edges to create an ocean border.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(max(cfg.Radius, 1))
			elev *= math.Max(0, 1.0-math.Pow(distFromCenter, 3.5))

			m.Set(&Hex{
				Coord:     coord,
				Terrain:   deriveTerrain(elev, rain, cfg),
				Elevation: elev,
				Rainfall:  rain,
				Opinion:   spread(octaveNoise(opinionNoise, x, y, 2, 0.05, 0.5)),
				Leaning:   spread(octaveNoise(leanNoise, x, y, 2, 0.04, 0.5)),
			})
		}
	}

	markCoastalHexes(m)
	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain float64, cfg GenConfig) Terrain {
	switch {
	case elev < cfg.SeaLevel:
		return TerrainOcean
	case elev > cfg.MountainLvl:
		return TerrainMountain
	case rain < 0.3:
		return TerrainDesert
	case rain > 0.55:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

// markCoastalHexes converts low land hexes adjacent to ocean into coast terrain.
func markCoastalHexes(m *Map) {
	var toMark []HexCoord
	for coord, hex := range m.Hexes {
		if hex.Terrain != TerrainPlains && hex.Terrain != TerrainForest {
			continue
		}
		if hex.Elevation >= 0.5 {
			continue
		}
		for _, neighbor := range coord.Neighbors() {
			if nh := m.Get(neighbor); nh != nil && nh.Terrain == TerrainOcean {
				toMark = append(toMark, coord)
				break
			}
		}
	}
	for _, coord := range toMark {
		m.Get(coord).Terrain = TerrainCoast
	}
}

// Habitability is the share of HexPeople a terrain supports.
func Habitability(t Terrain) float64 {
	switch t {
	case TerrainCoast:
		return 1.2
	case TerrainPlains:
		return 1.0
	case TerrainForest:
		return 0.6
	case TerrainMountain:
		return 0.3
	case TerrainDesert:
		return 0.2
	default:
		return 0
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// spread maps normalized noise, which clusters around 0.5, onto [-1, 1].
func spread(n float64) float64 {
	return math.Max(-1, math.Min(1, (n-0.5)*3))
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainCoast:
		return "Coast"
	case TerrainDesert:
		return "Desert"
	case TerrainOcean:
		return "Ocean"
	default:
		return "Unknown"
	}
}
