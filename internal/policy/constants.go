// Package policy holds the tuning constants of the political simulation.
// Every probability, threshold and decay factor used by the engine is named here
// so that a product change touches one file.
package policy

// Event scheduler gate.
const (
	// BaseEventRate is the daily probability of attempting an event in calm times.
	BaseEventRate = 0.07

	// GeneralCrisisMultiplier scales the gate when the nation is in general crisis.
	GeneralCrisisMultiplier = 1.5

	// CriticalMetricBonus is added to the gate for every metric at or below CriticalThreshold.
	CriticalMetricBonus = 0.05

	// MaxEventRate caps the gate so no day is ever guaranteed an event.
	MaxEventRate = 0.95
)

// Event selector bias.
const (
	// CrisisUrgencyLevel is the crisis tier from which only urgent events are considered.
	CrisisUrgencyLevel = 3

	// MinCrisisUrgency is the urgency an event needs to be picked during a deep crisis.
	MinCrisisUrgency = 4

	// EconomicBiasThreshold: economy at or below this biases toward economic events.
	EconomicBiasThreshold = 30.0

	// EconomicBiasChance is the probability of restricting to economic events.
	EconomicBiasChance = 0.7

	// SocialBiasThreshold: popularity at or below this biases toward social events.
	SocialBiasThreshold = 25.0

	// SocialBiasChance is the probability of restricting to social events.
	SocialBiasChance = 0.6

	// RecentHistoryWindow is how many of the latest fired events are excluded from selection.
	RecentHistoryWindow = 5
)

// Metric bands.
const (
	MetricMin = 0.0
	MetricMax = 100.0

	// CriticalThreshold marks a metric as critical (inclusive).
	CriticalThreshold = 25.0

	// SevereThreshold marks a critical metric as severe (inclusive).
	SevereThreshold = 10.0

	// GeneralCrisisCount is how many critical metrics put the nation in general crisis.
	GeneralCrisisCount = 3

	// GeneralCrisisMean is the mean metric value below which the nation is in general crisis.
	GeneralCrisisMean = 35.0

	// MaxCrisisLevel is the top of the documented crisis tier range.
	MaxCrisisLevel = 5
)

// Province scalars and regional propagation.
const (
	PerceptionMin = -100.0
	PerceptionMax = 100.0

	ScalarMin = 0.0
	ScalarMax = 100.0

	// PropagationThreshold: effects with a larger magnitude spread to neighbors.
	PropagationThreshold = 10.0

	// PropagationDecay is the factor applied at every adjacency hop.
	PropagationDecay = 0.5

	// MaxPropagationDepth counts the direct application as depth 1.
	MaxPropagationDepth = 3

	// MaxActiveEvents caps the per-province log of active event descriptions.
	MaxActiveEvents = 3

	// CriticalPerception and LoyalPerception classify provinces.
	CriticalPerception = -50.0
	LoyalPerception    = 30.0
)

// Perception coupling: how a regional perception change moves the other province scalars.
const (
	DiscontentPerPerception = 0.4
	LoyaltyPerPerception    = 0.3

	// RebellionFloor is the discontent at which negative news feeds rebellion.
	RebellionFloor = 50.0

	RebellionGainPerPerception   = 0.25
	RebellionReliefPerPerception = 0.15
)
