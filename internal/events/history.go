package events

import (
	"time"

	"github.com/talgya/statecraft/internal/social"
)

// History is the append-only log of fired events plus their cooldown expiries.
// One History belongs to one simulation.
type History struct {
	fired     []string
	count     map[string]int
	cooldowns map[string]time.Time
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		count:     make(map[string]int),
		cooldowns: make(map[string]time.Time),
	}
}

// RestoreHistory rebuilds a history from saved state.
func RestoreHistory(fired []string, cooldowns map[string]time.Time) *History {
	h := NewHistory()
	for _, id := range fired {
		h.append(id)
	}
	for id, until := range cooldowns {
		h.cooldowns[id] = until
	}
	return h
}

func (h *History) append(id string) {
	h.fired = append(h.fired, id)
	h.count[id]++
}

// Record appends a fired event and, when cooldown is positive, sets its expiry.
func (h *History) Record(id string, at time.Time, cooldown time.Duration) {
	h.append(id)
	if cooldown > 0 {
		h.cooldowns[id] = at.Add(cooldown)
	}
}

// Has reports whether id has fired at any point in the session.
func (h *History) Has(id string) bool {
	return h.count[id] > 0
}

// Len returns the number of fired events.
func (h *History) Len() int {
	return len(h.fired)
}

// Fired returns a copy of the fired-event log in insertion order.
func (h *History) Fired() []string {
	return append([]string(nil), h.fired...)
}

// Recent returns the last n fired ids, oldest first.
func (h *History) Recent(n int) []string {
	if n <= 0 {
		return nil
	}
	start := len(h.fired) - n
	if start < 0 {
		start = 0
	}
	return append([]string(nil), h.fired[start:]...)
}

// InRecent reports whether id is among the last n fired events.
func (h *History) InRecent(id string, n int) bool {
	for i := len(h.fired) - 1; i >= 0 && i >= len(h.fired)-n; i-- {
		if h.fired[i] == id {
			return true
		}
	}
	return false
}

// InCooldown reports whether id's cooldown is still running at now. An expired entry is
// removed on the way.
func (h *History) InCooldown(id string, now time.Time) bool {
	until, ok := h.cooldowns[id]
	if !ok {
		return false
	}
	if now.Before(until) {
		return true
	}
	delete(h.cooldowns, id)
	return false
}

// Prune drops every cooldown that has expired at now.
func (h *History) Prune(now time.Time) {
	for id, until := range h.cooldowns {
		if !now.Before(until) {
			delete(h.cooldowns, id)
		}
	}
}

// Cooldowns returns a copy of the pending cooldown expiries.
func (h *History) Cooldowns() map[string]time.Time {
	out := make(map[string]time.Time, len(h.cooldowns))
	for id, until := range h.cooldowns {
		out[id] = until
	}
	return out
}

// Reset clears the log and every cooldown.
func (h *History) Reset() {
	h.fired = nil
	h.count = make(map[string]int)
	h.cooldowns = make(map[string]time.Time)
}

// DecisionResult records a fired event, the choice taken, and what it changed.
type DecisionResult struct {
	EventID     string                 `json:"event_id"`
	ChoiceID    string                 `json:"choice_id"`
	Day         int                    `json:"day"`
	Metrics     map[string]float64     `json:"metrics"` // applied deltas by metric key
	Regional    []social.AppliedEffect `json:"regional,omitempty"`
	Transitions []social.Transition    `json:"transitions,omitempty"`
}

// HasDecision reports whether the log contains the given event/choice pair.
func HasDecision(log []DecisionResult, ref ChoiceRef) bool {
	for _, d := range log {
		if d.EventID == ref.EventID && d.ChoiceID == ref.ChoiceID {
			return true
		}
	}
	return false
}
