package engine

import (
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
)

// ChoicePolicy answers fired events on behalf of a player.
type ChoicePolicy interface {
	Choose(ev *events.Event, s *Simulation) string
}

// ChoiceFunc adapts a function to ChoicePolicy.
type ChoiceFunc func(ev *events.Event, s *Simulation) string

// Choose implements ChoicePolicy.
func (f ChoiceFunc) Choose(ev *events.Event, s *Simulation) string {
	return f(ev, s)
}

// FirstChoice always takes the first declared answer.
var FirstChoice = ChoiceFunc(func(ev *events.Event, _ *Simulation) string {
	if len(ev.Choices) == 0 {
		return ""
	}
	return ev.Choices[0].ID
})

// RandomChoice picks uniformly among the declared answers using the simulation's source.
var RandomChoice = ChoiceFunc(func(ev *events.Event, s *Simulation) string {
	if len(ev.Choices) == 0 {
		return ""
	}
	return ev.Choices[entropy.Index(s.Source(), len(ev.Choices))].ID
})

// ScoredChoice picks the answer whose metric effects add the most to the weakest
// indicators: each delta is weighted by how far the metric sits below the maximum.
var ScoredChoice = ChoiceFunc(func(ev *events.Event, s *Simulation) string {
	best, bestScore := "", 0.0
	for i, c := range ev.Choices {
		score := 0.0
		for m, d := range c.Effects {
			score += d * (100 - s.Metrics.Get(m)) / 100
		}
		if i == 0 || score > bestScore {
			best, bestScore = c.ID, score
		}
	}
	return best
})
