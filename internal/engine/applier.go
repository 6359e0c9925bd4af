package engine

import (
	"slices"

	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
)

// EffectApplier turns a chosen answer into metric changes, regional effects and social
// state transitions. It is the only writer of the metrics during a decision.
type EffectApplier struct {
	Metrics *nation.Metrics
	Ledger  *social.Ledger
}

// Apply runs a choice. The returned result holds the changes actually made after clamping.
func (a *EffectApplier) Apply(ev *events.Event, c *events.Choice, day int) events.DecisionResult {
	res := events.DecisionResult{
		EventID:  ev.ID,
		ChoiceID: c.ID,
		Day:      day,
		Metrics:  nation.Keyed(a.Metrics.Apply(c.Effects)),
	}
	for _, spec := range c.Regional {
		res.Regional = append(res.Regional, a.regional(spec)...)
	}
	res.Transitions = a.recompute(touched(res.Regional))
	return res
}

// regional applies one spec. A single province propagates when the change is significant;
// bulk targets leave that decision to each application.
func (a *EffectApplier) regional(spec events.RegionalSpec) []social.AppliedEffect {
	e := social.RegionalEffect{
		ProvinceID:       spec.Province,
		PerceptionChange: spec.Delta,
		Description:      spec.Description,
		Duration:         spec.Duration,
	}
	switch {
	case spec.Province != "":
		return a.Ledger.ApplyRegionalEffect(e, social.ShouldPropagate(spec.Delta))
	case len(spec.Ideologies) > 0:
		return a.Ledger.ApplyEach(e, spec.Ideologies...)
	case spec.All:
		return a.Ledger.ApplyEach(e)
	default:
		return nil
	}
}

// recompute steps every touched province through the state machine once and feeds the
// national part of each transition bundle back into the metrics.
func (a *EffectApplier) recompute(ids []social.ProvinceID) []social.Transition {
	var out []social.Transition
	for _, id := range ids {
		t, national, ok := a.Ledger.RecomputeState(id)
		if !ok {
			continue
		}
		t.National = nation.Keyed(a.Metrics.Apply(national))
		out = append(out, t)
	}
	return out
}

// touched lists the provinces reached by a set of applications, in first-touch order.
func touched(applied []social.AppliedEffect) []social.ProvinceID {
	var ids []social.ProvinceID
	for _, ae := range applied {
		if !slices.Contains(ids, ae.ProvinceID) {
			ids = append(ids, ae.ProvinceID)
		}
	}
	return ids
}
