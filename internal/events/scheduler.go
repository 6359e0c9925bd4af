package events

import (
	"math"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
)

// Scheduler is the daily gate deciding whether an event selection is attempted at all.
type Scheduler struct {
	src entropy.Source
}

// NewScheduler creates a scheduler drawing from src.
func NewScheduler(src entropy.Source) *Scheduler {
	return &Scheduler{src: src}
}

// GateProbability grows with instability: a base rate, scaled in general crisis, plus a
// bonus per critical metric, capped below certainty.
func GateProbability(m nation.Metrics) float64 {
	p := policy.BaseEventRate
	if nation.IsGeneralCrisis(m) {
		p *= policy.GeneralCrisisMultiplier
	}
	p += float64(len(m.Critical())) * policy.CriticalMetricBonus
	return math.Min(p, policy.MaxEventRate)
}

// ShouldAttempt draws once against the gate probability.
func (s *Scheduler) ShouldAttempt(m nation.Metrics) bool {
	return s.src.Float64() < GateProbability(m)
}
