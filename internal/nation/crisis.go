package nation

import (
	"math"

	"github.com/talgya/statecraft/internal/policy"
)

// CrisisPolicy maps the national indicators to a crisis tier in [0, policy.MaxCrisisLevel].
type CrisisPolicy func(Metrics) int

// IsGeneralCrisis reports whether the nation as a whole is in crisis: enough critical
// indicators, or a low mean across all of them.
func IsGeneralCrisis(m Metrics) bool {
	if len(m.Critical()) >= policy.GeneralCrisisCount {
		return true
	}
	return m.Mean() < policy.GeneralCrisisMean
}

// DefaultCrisisLevel scores one point per critical metric and one more per severe metric,
// halves the score (rounding up) and adds a tier for general crisis.
func DefaultCrisisLevel(m Metrics) int {
	points := 0
	for _, v := range m {
		if v <= policy.CriticalThreshold {
			points++
		}
		if v <= policy.SevereThreshold {
			points++
		}
	}

	level := int(math.Ceil(float64(points) / 2))
	if IsGeneralCrisis(m) {
		level++
	}
	return ClampLevel(level)
}

// ClampLevel bounds a tier produced by any policy.
func ClampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > policy.MaxCrisisLevel {
		return policy.MaxCrisisLevel
	}
	return level
}

// Estimate runs p (or the default when p is nil) and clamps its result.
func (p CrisisPolicy) Estimate(m Metrics) int {
	if p == nil {
		return DefaultCrisisLevel(m)
	}
	return ClampLevel(p(m))
}
