package events

import (
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
)

// Selector picks one event among the eligible ones. Recency and cooldown exclusions are
// applied before the selector runs (see Candidates).
type Selector struct {
	src entropy.Source
}

// NewSelector creates a selector drawing from src.
func NewSelector(src entropy.Source) *Selector {
	return &Selector{src: src}
}

// Select applies crisis and category bias, then an urgency-weighted draw. Returns nil when
// nothing is eligible.
func (s *Selector) Select(eligible []*Event, m nation.Metrics, crisisLevel int) *Event {
	if len(eligible) == 0 {
		return nil
	}

	if crisisLevel >= policy.CrisisUrgencyLevel {
		urgent := filter(eligible, func(e *Event) bool { return e.Urgency >= policy.MinCrisisUrgency })
		if len(urgent) > 0 {
			return WeightedPick(s.src, urgent)
		}
	}

	switch {
	case m[nation.Economy] <= policy.EconomicBiasThreshold:
		if entropy.Chance(s.src, policy.EconomicBiasChance) {
			if sub := byCategory(eligible, CategoryEconomic); len(sub) > 0 {
				return WeightedPick(s.src, sub)
			}
		}
	case m[nation.Popularity] <= policy.SocialBiasThreshold:
		if entropy.Chance(s.src, policy.SocialBiasChance) {
			if sub := byCategory(eligible, CategorySocial); len(sub) > 0 {
				return WeightedPick(s.src, sub)
			}
		}
	}

	return WeightedPick(s.src, eligible)
}

// WeightedPick draws an event with probability proportional to its urgency, as if each
// event appeared urgency times in a pool.
func WeightedPick(src entropy.Source, events []*Event) *Event {
	total := 0
	for _, e := range events {
		total += e.Weight()
	}
	if total == 0 {
		return nil
	}
	slot := entropy.Index(src, total)
	for _, e := range events {
		slot -= e.Weight()
		if slot < 0 {
			return e
		}
	}
	return events[len(events)-1]
}

func byCategory(events []*Event, c Category) []*Event {
	return filter(events, func(e *Event) bool { return e.Category == c })
}

func filter(events []*Event, keep func(*Event) bool) []*Event {
	var out []*Event
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
