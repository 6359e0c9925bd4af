package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
)

// State is the serializable session state of a simulation. The catalog and the seed
// values are not part of it; they come from the scenario.
type State struct {
	SessionID   string                  `json:"session_id"`
	Character   string                  `json:"character"`
	Day         int                     `json:"day"`
	Metrics     map[string]float64      `json:"metrics"`
	CrisisLevel int                     `json:"crisis_level"`
	Fired       []string                `json:"fired"`
	Cooldowns   map[string]time.Time    `json:"cooldowns"`
	Decisions   []events.DecisionResult `json:"decisions"`
	Unlocked    []string                `json:"unlocked"`
	Pending     string                  `json:"pending,omitempty"`
	Provinces   []*social.Province      `json:"provinces"`
}

// Snapshot captures the current session state.
func (s *Simulation) Snapshot() State {
	st := State{
		SessionID:   s.SessionID,
		Character:   s.Character,
		Day:         s.Day,
		Metrics:     s.Metrics.ToMap(),
		CrisisLevel: s.CrisisLevel,
		Fired:       s.History.Fired(),
		Cooldowns:   s.History.Cooldowns(),
		Decisions:   slices.Clone(s.Decisions),
		Unlocked:    slices.Sorted(maps.Keys(s.Unlocked)),
		Provinces:   s.Ledger.Snapshot(),
	}
	if s.Pending != nil {
		st.Pending = s.Pending.ID
	}
	return st
}

// Restore replaces the session state with a saved one. Metric keys the simulation does
// not know are skipped; a pending event missing from the catalog is an error.
func (s *Simulation) Restore(st State) error {
	var pending *events.Event
	if st.Pending != "" {
		ev, ok := s.Catalog.Get(st.Pending)
		if !ok {
			return fmt.Errorf("restore pending %q: %w", st.Pending, ErrUnknownEvent)
		}
		pending = ev
	}

	metrics, unknown := nation.FromMap(st.Metrics, 0)
	for _, k := range unknown {
		slog.Warn("restore: unknown metric skipped", "metric", k)
	}
	for _, m := range nation.AllMetrics() {
		if _, ok := st.Metrics[m.String()]; !ok {
			metrics[m] = s.seedMetrics[m]
		}
	}

	if st.SessionID != "" {
		s.SessionID = st.SessionID
	}
	if st.Character != "" {
		s.Character = st.Character
	}
	s.Day = max(st.Day, 0)
	s.Metrics = metrics
	s.History = events.RestoreHistory(st.Fired, st.Cooldowns)
	s.Decisions = slices.Clone(st.Decisions)
	s.Unlocked = make(map[string]bool, len(st.Unlocked))
	for _, id := range st.Unlocked {
		s.Unlocked[id] = true
	}
	s.Pending = pending
	s.Ledger.Reset()
	s.Ledger.Restore(st.Provinces)
	s.Ledger.SetDay(s.Day)
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)
	return nil
}
