// Province ledger: per-province state, the adjacency graph, and regional effect propagation.
package social

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
)

// RegionalEffect is a perception change aimed at one province.
type RegionalEffect struct {
	ProvinceID       ProvinceID `json:"province_id"`
	PerceptionChange float64    `json:"perception_change"`
	Description      string     `json:"description"`
	Duration         int        `json:"duration,omitempty"` // days; 0 = no expiry
}

// AppliedEffect is one application of a regional effect, direct or propagated.
type AppliedEffect struct {
	RegionalEffect
	Depth   int     `json:"depth"`   // 1 = direct
	Applied float64 `json:"applied"` // perception change after clamping
}

// ShouldPropagate reports whether an effect is significant enough to spread.
func ShouldPropagate(delta float64) bool {
	return math.Abs(delta) > policy.PropagationThreshold
}

// Ledger owns every province of one simulation and the seed values they reset to.
type Ledger struct {
	provinces map[ProvinceID]*Province
	order     []ProvinceID
	seeds     []*Province
	day       int
}

// NewLedger builds a ledger from seed provinces. Adjacency is made undirected; self
// links, duplicate links and links to unknown provinces are dropped. Scalars are clamped.
func NewLedger(seed []*Province) *Ledger {
	l := &Ledger{}
	l.seeds = normalizeSeeds(seed)
	l.load(l.seeds)
	return l
}

func normalizeSeeds(seed []*Province) []*Province {
	known := make(map[ProvinceID]*Province, len(seed))
	var out []*Province
	for _, p := range seed {
		if p == nil || p.ID == "" {
			continue
		}
		if _, dup := known[p.ID]; dup {
			slog.Debug("duplicate province ignored", "province", p.ID)
			continue
		}
		c := p.Clone()
		c.Neighbors = nil
		c.ActiveEvents = nil
		c.SocialHistory = nil
		c.clampScalars()
		known[c.ID] = c
		out = append(out, c)
	}

	link := func(a, b *Province) {
		if !slices.Contains(a.Neighbors, b.ID) {
			a.Neighbors = append(a.Neighbors, b.ID)
		}
	}
	for _, p := range seed {
		if p == nil {
			continue
		}
		self, ok := known[p.ID]
		if !ok {
			continue
		}
		for _, nid := range p.Neighbors {
			other, ok := known[nid]
			if !ok || other == self {
				continue
			}
			link(self, other)
			link(other, self)
		}
	}
	return out
}

func (l *Ledger) load(src []*Province) {
	l.provinces = make(map[ProvinceID]*Province, len(src))
	l.order = l.order[:0]
	for _, p := range src {
		c := p.Clone()
		l.provinces[c.ID] = c
		l.order = append(l.order, c.ID)
	}
}

// SetDay sets the simulated day stamped on new log entries.
func (l *Ledger) SetDay(day int) {
	l.day = day
}

// Len returns the number of provinces.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Province looks a province up by id.
func (l *Ledger) Province(id ProvinceID) (*Province, bool) {
	p, ok := l.provinces[id]
	return p, ok
}

// Provinces returns every province in seed order.
func (l *Ledger) Provinces() []*Province {
	out := make([]*Province, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.provinces[id])
	}
	return out
}

// ApplyRegionalEffect changes the target province's perception and, when propagate is set,
// spreads a halved copy to every neighbor, recursing until the depth cap. Cycles in the
// graph are bounded by depth alone, so a province may be reached by several paths.
// Unknown provinces are ignored. Returns every application made, in order.
func (l *Ledger) ApplyRegionalEffect(e RegionalEffect, propagate bool) []AppliedEffect {
	var out []AppliedEffect
	l.apply(e, propagate, 1, &out)
	return out
}

func (l *Ledger) apply(e RegionalEffect, propagate bool, depth int, out *[]AppliedEffect) {
	if depth > policy.MaxPropagationDepth {
		return
	}
	p, ok := l.provinces[e.ProvinceID]
	if !ok {
		slog.Debug("regional effect for unknown province", "province", e.ProvinceID)
		return
	}

	before := p.Perception
	p.Perception = clamp(before+e.PerceptionChange, policy.PerceptionMin, policy.PerceptionMax)
	applied := p.Perception - before
	couple(p, applied)

	ae := ActiveEvent{Description: e.Description, Day: l.day}
	if e.Duration > 0 {
		ae.ExpiresDay = l.day + e.Duration
	}
	p.pushActiveEvent(ae)

	*out = append(*out, AppliedEffect{RegionalEffect: e, Depth: depth, Applied: applied})

	if !propagate || depth >= policy.MaxPropagationDepth {
		return
	}
	for _, nid := range p.Neighbors {
		child := RegionalEffect{
			ProvinceID:       nid,
			PerceptionChange: e.PerceptionChange * policy.PropagationDecay,
			Description:      fmt.Sprintf("%s (via %s)", e.Description, provinceLabel(p)),
			Duration:         e.Duration,
		}
		l.apply(child, propagate, depth+1, out)
	}
}

// couple moves discontent, loyalty and rebellion in response to a perception change.
func couple(p *Province, delta float64) {
	p.Discontent -= delta * policy.DiscontentPerPerception
	p.Loyalty += delta * policy.LoyaltyPerPerception
	switch {
	case delta < 0 && p.Discontent >= policy.RebellionFloor:
		p.RebellionLevel += -delta * policy.RebellionGainPerPerception
	case delta > 0:
		p.RebellionLevel -= delta * policy.RebellionReliefPerPerception
	}
	p.clampScalars()
}

func provinceLabel(p *Province) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// ApplyIdeologyEffect applies delta to every province of the given ideology. Each
// application stands alone and propagates on its own when significant.
func (l *Ledger) ApplyIdeologyEffect(target Ideology, delta float64, description string) []AppliedEffect {
	return l.ApplyGeneralEffect(delta, description, target)
}

// ApplyGeneralEffect applies delta to every province, or only to those whose ideology is
// listed when ideologies is non-empty.
func (l *Ledger) ApplyGeneralEffect(delta float64, description string, ideologies ...Ideology) []AppliedEffect {
	return l.ApplyEach(RegionalEffect{PerceptionChange: delta, Description: description}, ideologies...)
}

// ApplyEach applies a copy of template to every matching province, ignoring its
// ProvinceID. Each copy propagates on its own when significant.
func (l *Ledger) ApplyEach(template RegionalEffect, ideologies ...Ideology) []AppliedEffect {
	var out []AppliedEffect
	propagate := ShouldPropagate(template.PerceptionChange)
	for _, id := range l.order {
		p := l.provinces[id]
		if len(ideologies) > 0 && !slices.Contains(ideologies, p.Ideology) {
			continue
		}
		e := template
		e.ProvinceID = id
		l.apply(e, propagate, 1, &out)
	}
	return out
}

// Critical returns provinces whose perception is below the critical mark.
func (l *Ledger) Critical() []*Province {
	var out []*Province
	for _, p := range l.Provinces() {
		if p.IsCritical() {
			out = append(out, p)
		}
	}
	return out
}

// Loyal returns provinces whose perception is above the loyal mark.
func (l *Ledger) Loyal() []*Province {
	var out []*Province
	for _, p := range l.Provinces() {
		if p.IsLoyal() {
			out = append(out, p)
		}
	}
	return out
}

// Impact summarizes national opinion across provinces.
type Impact struct {
	AveragePerception  float64 `json:"average_perception"`
	WeightedPerception float64 `json:"weighted_perception"` // population-weighted
	CriticalProvinces  int     `json:"critical_provinces"`
	LoyalProvinces     int     `json:"loyal_provinces"`
}

// NationalImpact aggregates perception with a simple and a population-weighted mean.
func (l *Ledger) NationalImpact() Impact {
	var im Impact
	if len(l.order) == 0 {
		return im
	}
	total := 0.0
	weighted := 0.0
	population := 0.0
	for _, p := range l.Provinces() {
		total += p.Perception
		weighted += p.Perception * float64(p.Population)
		population += float64(p.Population)
		if p.IsCritical() {
			im.CriticalProvinces++
		}
		if p.IsLoyal() {
			im.LoyalProvinces++
		}
	}
	im.AveragePerception = total / float64(len(l.order))
	if population > 0 {
		im.WeightedPerception = weighted / population
	} else {
		im.WeightedPerception = im.AveragePerception
	}
	return im
}

// States returns the current social state of every province.
func (l *Ledger) States() map[ProvinceID]SocialState {
	out := make(map[ProvinceID]SocialState, len(l.order))
	for id, p := range l.provinces {
		out[id] = p.State
	}
	return out
}

// RecomputeState advances a province at most one step through the state machine. On a
// transition the target state's province-local effects are applied and the declared
// national deltas are returned for the caller to apply to the metrics.
func (l *Ledger) RecomputeState(id ProvinceID) (Transition, map[nation.Metric]float64, bool) {
	p, ok := l.provinces[id]
	if !ok {
		return Transition{}, nil, false
	}
	next, moved := NextState(p.State, p.Discontent, p.Loyalty, p.RebellionLevel)
	if !moved {
		return Transition{}, nil, false
	}

	fx := EffectsOf(next)
	t := Transition{ProvinceID: id, From: p.State, To: next, Day: l.day}
	p.State = next
	p.Loyalty += fx.Loyalty
	p.Discontent += fx.Discontent
	p.EconomicLevel += fx.Economic
	p.clampScalars()
	p.SocialHistory = append(p.SocialHistory, t)

	slog.Debug("social transition", "province", id, "from", t.From, "to", t.To, "day", l.day)
	return t, fx.National, true
}

// PruneExpired drops active events whose duration has run out.
func (l *Ledger) PruneExpired(day int) {
	for _, p := range l.provinces {
		kept := p.ActiveEvents[:0]
		for _, ae := range p.ActiveEvents {
			if ae.ExpiresDay > 0 && ae.ExpiresDay <= day {
				continue
			}
			kept = append(kept, ae)
		}
		p.ActiveEvents = kept
	}
}

// Reset restores every province to its seed values and clears the logs.
func (l *Ledger) Reset() {
	l.load(l.seeds)
	l.day = 0
}

// Snapshot returns deep copies of the current provinces in seed order.
func (l *Ledger) Snapshot() []*Province {
	out := make([]*Province, 0, len(l.order))
	for _, p := range l.Provinces() {
		out = append(out, p.Clone())
	}
	return out
}

// Restore replaces the current provinces' mutable values with saved ones. Provinces not
// in the ledger and nil entries are ignored; the seed graph is kept.
func (l *Ledger) Restore(saved []*Province) {
	for _, s := range saved {
		if s == nil {
			continue
		}
		p, ok := l.provinces[s.ID]
		if !ok {
			continue
		}
		neighbors := p.Neighbors
		*p = *s.Clone()
		p.Neighbors = neighbors
		p.clampScalars()
	}
}
