// Package social provides provinces, their unrest state machine, and the ledger that
// applies and propagates regional effects across the province adjacency graph.
package social

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/statecraft/internal/policy"
)

// ProvinceID is a unique identifier for a province.
type ProvinceID = string

// Ideology classifies a province's political leaning.
type Ideology uint8

const (
	IdeologyProgressive  Ideology = iota // Left-leaning urban electorate
	IdeologyPopulist                     // Working-class, leader-centered
	IdeologyModerate                     // Swing provinces
	IdeologyLiberal                      // Market-oriented
	IdeologyConservative                 // Traditional, rural

	IdeologyCount = 5
)

// String returns the catalog tag of the ideology.
func (i Ideology) String() string {
	switch i {
	case IdeologyProgressive:
		return "PROGRESSIVE"
	case IdeologyPopulist:
		return "POPULIST"
	case IdeologyModerate:
		return "MODERATE"
	case IdeologyLiberal:
		return "LIBERAL"
	case IdeologyConservative:
		return "CONSERVATIVE"
	default:
		return fmt.Sprintf("IDEOLOGY(%d)", uint8(i))
	}
}

// ParseIdeology resolves a catalog tag to an Ideology.
func ParseIdeology(tag string) (Ideology, bool) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "PROGRESSIVE":
		return IdeologyProgressive, true
	case "POPULIST":
		return IdeologyPopulist, true
	case "MODERATE":
		return IdeologyModerate, true
	case "LIBERAL":
		return IdeologyLiberal, true
	case "CONSERVATIVE":
		return IdeologyConservative, true
	default:
		return 0, false
	}
}

// IdeologyFromLeaning maps a left(-1)..right(+1) leaning onto the closed tag set.
func IdeologyFromLeaning(leaning float64) Ideology {
	switch {
	case leaning < -0.45:
		return IdeologyProgressive
	case leaning < -0.15:
		return IdeologyPopulist
	case leaning <= 0.15:
		return IdeologyModerate
	case leaning <= 0.45:
		return IdeologyLiberal
	default:
		return IdeologyConservative
	}
}

// ActiveEvent is an entry in a province's recent-events log.
type ActiveEvent struct {
	Description string `json:"description"`
	Day         int    `json:"day"`
	ExpiresDay  int    `json:"expires_day,omitempty"` // 0 = until displaced
}

// Province is a region with its own opinion of the government.
type Province struct {
	ID         ProvinceID `json:"id"`
	Name       string     `json:"name"`
	Population uint32     `json:"population"`
	Ideology   Ideology   `json:"ideology"`

	Perception     float64 `json:"perception"`      // -100..100
	Loyalty        float64 `json:"loyalty"`         // 0..100
	Discontent     float64 `json:"discontent"`      // 0..100
	RebellionLevel float64 `json:"rebellion_level"` // 0..100
	EconomicLevel  float64 `json:"economic_level"`  // 0..100

	State     SocialState  `json:"state"`
	Neighbors []ProvinceID `json:"neighbors"`

	ActiveEvents  []ActiveEvent `json:"active_events"`
	SocialHistory []Transition  `json:"social_history"`
}

// Clone returns a deep copy of the province.
func (p *Province) Clone() *Province {
	c := *p
	c.Neighbors = append([]ProvinceID(nil), p.Neighbors...)
	c.ActiveEvents = append([]ActiveEvent(nil), p.ActiveEvents...)
	c.SocialHistory = append([]Transition(nil), p.SocialHistory...)
	return &c
}

// IsCritical reports whether the province strongly rejects the government.
func (p *Province) IsCritical() bool {
	return p.Perception < policy.CriticalPerception
}

// IsLoyal reports whether the province clearly supports the government.
func (p *Province) IsLoyal() bool {
	return p.Perception > policy.LoyalPerception
}

// clampScalars restores every bounded scalar into range.
func (p *Province) clampScalars() {
	p.Perception = clamp(p.Perception, policy.PerceptionMin, policy.PerceptionMax)
	p.Loyalty = clamp(p.Loyalty, policy.ScalarMin, policy.ScalarMax)
	p.Discontent = clamp(p.Discontent, policy.ScalarMin, policy.ScalarMax)
	p.RebellionLevel = clamp(p.RebellionLevel, policy.ScalarMin, policy.ScalarMax)
	p.EconomicLevel = clamp(p.EconomicLevel, policy.ScalarMin, policy.ScalarMax)
}

// pushActiveEvent records a description, keeping only the newest entries.
func (p *Province) pushActiveEvent(ev ActiveEvent) {
	p.ActiveEvents = append(p.ActiveEvents, ev)
	if over := len(p.ActiveEvents) - policy.MaxActiveEvents; over > 0 {
		p.ActiveEvents = append([]ActiveEvent(nil), p.ActiveEvents[over:]...)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// MarshalText implements encoding.TextMarshaler.
func (i Ideology) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Ideology) UnmarshalText(b []byte) error {
	v, ok := ParseIdeology(string(b))
	if !ok {
		return fmt.Errorf("unknown ideology %q", string(b))
	}
	*i = v
	return nil
}
