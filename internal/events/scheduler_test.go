package events

import (
	"math"
	"testing"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
)

func TestGateProbability(t *testing.T) {
	oneCritical := nation.Uniform(85)
	oneCritical[nation.Economy] = 20

	tests := []struct {
		name    string
		metrics nation.Metrics
		want    float64
	}{
		{"calm", nation.Uniform(85), policy.BaseEventRate},
		{"one critical", oneCritical, policy.BaseEventRate + policy.CriticalMetricBonus},
		{"general crisis", nation.Uniform(20), policy.BaseEventRate*policy.GeneralCrisisMultiplier + 8*policy.CriticalMetricBonus},
		{"low mean without critical", nation.Uniform(30), policy.BaseEventRate * policy.GeneralCrisisMultiplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GateProbability(tt.metrics)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected %.4f, got %.4f", tt.want, got)
			}
			if got > policy.MaxEventRate {
				t.Fatalf("gate %.4f above cap", got)
			}
		})
	}
}

func TestGateGrowsWithInstability(t *testing.T) {
	prev := 0.0
	for v := 100.0; v >= 0; v -= 5 {
		p := GateProbability(nation.Uniform(v))
		if p < prev {
			t.Fatalf("gate decreased at %.0f: %.4f < %.4f", v, p, prev)
		}
		prev = p
	}
}

func TestShouldAttempt(t *testing.T) {
	calm := nation.Uniform(85)
	if !NewScheduler(entropy.NewSequence(0.06)).ShouldAttempt(calm) {
		t.Fatal("expected draw 0.06 to pass the calm gate")
	}
	if NewScheduler(entropy.NewSequence(0.08)).ShouldAttempt(calm) {
		t.Fatal("expected draw 0.08 to miss the calm gate")
	}
}
