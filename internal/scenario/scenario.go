// Package scenario loads the YAML file a simulation is seeded from.
package scenario

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Scenario is the seed configuration of one simulation.
type Scenario struct {
	Name          string             `yaml:"name"`
	Character     string             `yaml:"character"`
	Seed          int64              `yaml:"seed"`
	DaySeconds    float64            `yaml:"day_seconds"`
	Catalog       string             `yaml:"catalog"`
	DefaultMetric float64            `yaml:"default_metric"`
	Metrics       map[string]float64 `yaml:"metrics"`
	Provinces     []ProvinceSpec     `yaml:"provinces,omitempty"`
	Map           MapSpec            `yaml:"map"`
}

// ProvinceSpec declares one province. Unset scalars take the defaults below.
type ProvinceSpec struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Population uint32   `yaml:"population"`
	Ideology   string   `yaml:"ideology"`
	Perception float64  `yaml:"perception"`
	Loyalty    *float64 `yaml:"loyalty"`
	Discontent *float64 `yaml:"discontent"`
	Rebellion  float64  `yaml:"rebellion"`
	Economic   *float64 `yaml:"economic"`
	Neighbors  []string `yaml:"neighbors"`
}

// MapSpec configures the generated map used when no provinces are declared.
type MapSpec struct {
	Radius    int     `yaml:"radius"`
	Provinces int     `yaml:"provinces"`
	SeaLevel  float64 `yaml:"sea_level"`
}

const (
	defaultLoyalty    = 50.0
	defaultDiscontent = 30.0
	defaultEconomic   = 50.0
)

// Load reads a scenario file. An empty path returns the defaults.
func Load(path string) (Scenario, error) {
	sc := defaults()
	if strings.TrimSpace(path) == "" {
		sc.Normalize()
		return sc, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func defaults() Scenario {
	gen := world.DefaultGenConfig()
	return Scenario{
		Name:          "default",
		Character:     "presidente",
		DaySeconds:    60,
		DefaultMetric: 60,
		Map: MapSpec{
			Radius:    gen.Radius,
			Provinces: gen.Provinces,
			SeaLevel:  gen.SeaLevel,
		},
	}
}

// Normalize trims identifiers, clamps values into their bounds and drops unknown keys
// and self or duplicate neighbor links.
func (s *Scenario) Normalize() {
	if s == nil {
		return
	}
	s.Character = strings.TrimSpace(s.Character)
	s.Catalog = strings.TrimSpace(s.Catalog)
	if s.DaySeconds <= 0 {
		s.DaySeconds = 60
	}
	s.DefaultMetric = nation.Clamp(s.DefaultMetric)
	for k, v := range s.Metrics {
		if _, ok := nation.ParseMetric(k); !ok {
			slog.Warn("scenario: unknown metric ignored", "metric", k)
			delete(s.Metrics, k)
			continue
		}
		s.Metrics[k] = nation.Clamp(v)
	}

	def := world.DefaultGenConfig()
	if s.Map.Radius <= 0 {
		s.Map.Radius = def.Radius
	}
	if s.Map.Provinces <= 0 {
		s.Map.Provinces = def.Provinces
	}
	if s.Map.SeaLevel <= 0 || s.Map.SeaLevel >= 1 {
		s.Map.SeaLevel = def.SeaLevel
	}

	for i := range s.Provinces {
		p := &s.Provinces[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.Name == "" {
			p.Name = p.ID
		}
		var links []string
		for _, n := range p.Neighbors {
			n = strings.TrimSpace(n)
			if n == "" || n == p.ID || slices.Contains(links, n) {
				continue
			}
			links = append(links, n)
		}
		p.Neighbors = links
	}
}

// Validate reports declarations that cannot be repaired.
func (s Scenario) Validate() error {
	seen := make(map[string]bool, len(s.Provinces))
	for i, p := range s.Provinces {
		if p.ID == "" {
			return fmt.Errorf("province %d: missing id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("province %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if _, ok := social.ParseIdeology(p.Ideology); !ok {
			return fmt.Errorf("province %q: unknown ideology %q", p.ID, p.Ideology)
		}
	}
	for _, p := range s.Provinces {
		for _, n := range p.Neighbors {
			if !seen[n] {
				return fmt.Errorf("province %q: unknown neighbor %q", p.ID, n)
			}
		}
	}
	return nil
}

// NationMetrics returns the seed metrics; undeclared indicators take DefaultMetric.
func (s Scenario) NationMetrics() nation.Metrics {
	m, _ := nation.FromMap(s.Metrics, s.DefaultMetric)
	return m
}

// DayLength is the simulated duration of one day.
func (s Scenario) DayLength() time.Duration {
	return time.Duration(s.DaySeconds * float64(time.Second))
}

// BuildProvinces returns the seed provinces: the declared ones, or a generated map when
// none are declared.
func (s Scenario) BuildProvinces() []*social.Province {
	if len(s.Provinces) == 0 {
		cfg := world.DefaultGenConfig()
		cfg.Seed = s.Seed
		cfg.Radius = s.Map.Radius
		cfg.Provinces = s.Map.Provinces
		cfg.SeaLevel = s.Map.SeaLevel
		provs, m := world.GenerateProvinces(cfg)
		slog.Info("province map generated", "map", m.String(), "provinces", len(provs))
		return provs
	}

	out := make([]*social.Province, 0, len(s.Provinces))
	for _, p := range s.Provinces {
		ideo, _ := social.ParseIdeology(p.Ideology)
		out = append(out, &social.Province{
			ID:             p.ID,
			Name:           p.Name,
			Population:     p.Population,
			Ideology:       ideo,
			Perception:     p.Perception,
			Loyalty:        valueOr(p.Loyalty, defaultLoyalty),
			Discontent:     valueOr(p.Discontent, defaultDiscontent),
			RebellionLevel: p.Rebellion,
			EconomicLevel:  valueOr(p.Economic, defaultEconomic),
			Neighbors:      slices.Clone(p.Neighbors),
		})
	}
	return out
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
