// Package nation provides the national indicators and the crisis level derived from them.
package nation

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/statecraft/internal/policy"
)

// Metric identifies one of the national indicators.
type Metric uint8

const (
	Economy          Metric = iota // economia
	Popularity                     // popularidad
	Stability                      // estabilidad
	Security                       // seguridad
	Health                         // salud
	Education                      // educacion
	ForeignRelations               // relaciones_internacionales
	Institutions                   // institucionalidad

	MetricCount = 8
)

var metricKeys = [MetricCount]string{
	Economy:          "economia",
	Popularity:       "popularidad",
	Stability:        "estabilidad",
	Security:         "seguridad",
	Health:           "salud",
	Education:        "educacion",
	ForeignRelations: "relaciones_internacionales",
	Institutions:     "institucionalidad",
}

// AllMetrics lists every metric in declaration order.
func AllMetrics() []Metric {
	out := make([]Metric, MetricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// String returns the catalog key of the metric.
func (m Metric) String() string {
	if int(m) < MetricCount {
		return metricKeys[m]
	}
	return fmt.Sprintf("metric(%d)", uint8(m))
}

// Valid reports whether m is one of the declared metrics.
func (m Metric) Valid() bool {
	return int(m) < MetricCount
}

// ParseMetric resolves a catalog key ("economia", "popularidad", ...) to a Metric.
func ParseMetric(key string) (Metric, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i, name := range metricKeys {
		if name == k {
			return Metric(i), true
		}
	}
	return 0, false
}

// Metrics is the full set of national indicators. It is an array so it is always
// fully populated and copies by value.
type Metrics [MetricCount]float64

// Uniform returns Metrics with every indicator set to v (clamped).
func Uniform(v float64) Metrics {
	var m Metrics
	for i := range m {
		m[i] = Clamp(v)
	}
	return m
}

// FromMap builds Metrics from catalog keys. Missing keys take fallback; unknown keys are
// returned so the caller can report them.
func FromMap(values map[string]float64, fallback float64) (Metrics, []string) {
	m := Uniform(fallback)
	var unknown []string
	for k, v := range values {
		metric, ok := ParseMetric(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		m[metric] = Clamp(v)
	}
	return m, unknown
}

// Get returns the value of a metric, or 0 for an invalid metric.
func (m *Metrics) Get(metric Metric) float64 {
	if !metric.Valid() {
		return 0
	}
	return m[metric]
}

// Set assigns a metric, clamping into bounds. Invalid metrics are ignored.
func (m *Metrics) Set(metric Metric, v float64) {
	if !metric.Valid() {
		return
	}
	m[metric] = Clamp(v)
}

// Add shifts a metric by delta and returns the change actually applied after clamping.
func (m *Metrics) Add(metric Metric, delta float64) float64 {
	if !metric.Valid() {
		return 0
	}
	before := m[metric]
	m[metric] = Clamp(before + delta)
	return m[metric] - before
}

// Apply shifts every metric named in deltas and returns the applied (post-clamp) changes.
func (m *Metrics) Apply(deltas map[Metric]float64) map[Metric]float64 {
	applied := make(map[Metric]float64, len(deltas))
	for metric, d := range deltas {
		if !metric.Valid() {
			continue
		}
		applied[metric] = m.Add(metric, d)
	}
	return applied
}

// Critical returns the metrics at or below the critical threshold.
func (m Metrics) Critical() []Metric {
	var out []Metric
	for i, v := range m {
		if v <= policy.CriticalThreshold {
			out = append(out, Metric(i))
		}
	}
	return out
}

// Mean returns the average over all indicators.
func (m Metrics) Mean() float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total / MetricCount
}

// ToMap converts to catalog keys, used for reports and persistence.
func (m Metrics) ToMap() map[string]float64 {
	out := make(map[string]float64, MetricCount)
	for i, v := range m {
		out[metricKeys[i]] = v
	}
	return out
}

// Clamp bounds a metric value to [0,100]. NaN collapses to the lower bound.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return policy.MetricMin
	}
	return math.Max(policy.MetricMin, math.Min(policy.MetricMax, v))
}

// Keyed converts metric deltas to catalog keys for reports.
func Keyed(deltas map[Metric]float64) map[string]float64 {
	out := make(map[string]float64, len(deltas))
	for m, v := range deltas {
		out[m.String()] = v
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(b []byte) error {
	v, ok := ParseMetric(string(b))
	if !ok {
		return fmt.Errorf("unknown metric %q", b)
	}
	*m = v
	return nil
}
