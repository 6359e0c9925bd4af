// Province placement: picks capitals, grows provinces around them and links bordering ones.
package world

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"

	"github.com/talgya/statecraft/internal/social"
)

// Site is a province carved out of the map, before it becomes a ledger province.
type Site struct {
	ID         string
	Name       string
	Capital    HexCoord
	Hexes      []HexCoord
	Population uint32
	Opinion    float64 // mean hex opinion, -1..1
	Leaning    float64 // mean hex leaning, -1..1
	Neighbors  []string
}

// GenerateProvinces builds a map and turns it into seed provinces for the ledger.
func GenerateProvinces(cfg GenConfig) ([]*social.Province, *Map) {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	m := Generate(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed + 200))

	sites := Partition(m, PlaceCapitals(m, cfg.Provinces))
	names := generateNames(rng, len(sites))

	out := make([]*social.Province, 0, len(sites))
	for i, s := range sites {
		s.Name = names[i]
		jitter := 0.9 + rng.Float64()*0.2
		pop := float64(s.Population) * float64(cfg.HexPeople) * jitter
		out = append(out, &social.Province{
			ID:            s.ID,
			Name:          s.Name,
			Population:    uint32(math.Max(1, pop)),
			Ideology:      social.IdeologyFromLeaning(s.Leaning),
			Perception:    s.Opinion * 40,
			Loyalty:       50 + s.Opinion*20,
			Discontent:    30 - s.Opinion*15,
			EconomicLevel: 50,
			Neighbors:     s.Neighbors,
		})
	}
	return out, m
}

// PlaceCapitals picks up to n well-separated capitals on the best land. The minimum
// spacing shrinks until n capitals fit or the land runs out.
func PlaceCapitals(m *Map, n int) []HexCoord {
	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for _, c := range m.Land() {
		candidates = append(candidates, scored{c, capitalScore(m, c)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	n = min(n, len(candidates))

	for minDist := max(m.Radius/2, 1); ; minDist-- {
		var capitals []HexCoord
		for _, c := range candidates {
			if len(capitals) >= n {
				break
			}
			if minDist > 0 && tooClose(c.coord, capitals, minDist) {
				continue
			}
			capitals = append(capitals, c.coord)
		}
		if len(capitals) >= n || minDist <= 0 {
			return capitals
		}
	}
}

// capitalScore prefers habitable hexes with varied, habitable surroundings.
func capitalScore(m *Map, coord HexCoord) float64 {
	hex := m.Get(coord)
	score := Habitability(hex.Terrain) * 3

	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh == nil || nh.Terrain == TerrainOcean {
			continue
		}
		terrainTypes[nh.Terrain] = true
		score += Habitability(nh.Terrain) * 0.3
	}
	return score + float64(len(terrainTypes))*0.3
}

func tooClose(coord HexCoord, existing []HexCoord, minDist int) bool {
	for _, c := range existing {
		if Distance(coord, c) < minDist {
			return true
		}
	}
	return false
}

// Partition assigns every land hex to its nearest capital (ties go to the earlier
// capital) and links provinces that share a border. Habitability is summed into
// Population; scale it by the per-hex population afterwards.
func Partition(m *Map, capitals []HexCoord) []*Site {
	sites := make([]*Site, len(capitals))
	for i, c := range capitals {
		sites[i] = &Site{ID: fmt.Sprintf("prov-%02d", i+1), Capital: c}
	}
	if len(sites) == 0 {
		return nil
	}

	habit := make([]float64, len(sites))
	for _, c := range m.Land() {
		best := 0
		for i, capital := range capitals {
			if Distance(c, capital) < Distance(c, capitals[best]) {
				best = i
			}
		}
		s := sites[best]
		hex := m.Get(c)
		hex.Province = s.ID
		s.Hexes = append(s.Hexes, c)
		s.Opinion += hex.Opinion
		s.Leaning += hex.Leaning
		habit[best] += Habitability(hex.Terrain)
	}

	index := make(map[string]*Site, len(sites))
	for i, s := range sites {
		index[s.ID] = s
		if n := float64(len(s.Hexes)); n > 0 {
			s.Opinion /= n
			s.Leaning /= n
		}
		s.Population = uint32(math.Ceil(habit[i]))
	}

	for _, s := range sites {
		for _, c := range s.Hexes {
			for _, nc := range c.Neighbors() {
				nh := m.Get(nc)
				if nh == nil || nh.Province == "" || nh.Province == s.ID {
					continue
				}
				if !slices.Contains(s.Neighbors, nh.Province) {
					s.Neighbors = append(s.Neighbors, nh.Province)
				}
			}
		}
		slices.Sort(s.Neighbors)
	}
	return sites
}

// generateNames produces procedural province names by combining two words.
func generateNames(rng *rand.Rand, count int) []string {
	first := []string{
		"Alto", "Bajo", "Nuevo", "Gran", "Sierra", "Costa", "Llano",
		"Puerto", "Monte", "Villa", "Campo", "Valle", "Cerro", "Lago",
	}
	second := []string{
		"Verde", "Norte", "Sur", "Real", "Hondo", "Claro", "Seco",
		"Blanco", "Dorado", "Bravo", "Azul", "Largo", "Rojo", "Viejo",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := first[rng.Intn(len(first))] + " " + second[rng.Intn(len(second))]
		if used[name] {
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		used[name] = true
		names = append(names, name)
	}
	return names
}
