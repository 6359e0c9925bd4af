package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
)

// ForceEvent makes an event pending regardless of its trigger, as a scripted beat would.
// It is recorded in the history and starts its cooldown like any fired event.
func (s *Simulation) ForceEvent(id string) (*events.Event, error) {
	ev, ok := s.Catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("force %q: %w", id, ErrUnknownEvent)
	}
	if s.Pending != nil {
		return nil, fmt.Errorf("force %q: event %q is still pending", id, s.Pending.ID)
	}
	s.fire(ev)
	slog.Info("event forced", "event", id, "day", s.Day)
	return ev, nil
}

// NudgeProvince applies a one-off regional effect outside any event and steps the
// touched provinces through the state machine.
func (s *Simulation) NudgeProvince(e social.RegionalEffect) ([]social.AppliedEffect, []social.Transition, error) {
	if _, ok := s.Ledger.Province(e.ProvinceID); !ok {
		return nil, nil, fmt.Errorf("nudge %q: %w", e.ProvinceID, ErrUnknownProvince)
	}
	applied := s.Ledger.ApplyRegionalEffect(e, social.ShouldPropagate(e.PerceptionChange))
	transitions := s.applier.recompute(touched(applied))
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)

	s.emit(Entry{
		Day:         s.Day,
		Category:    "intervention",
		Description: fmt.Sprintf("%s: %+.1f perception (%s)", e.ProvinceID, e.PerceptionChange, e.Description),
	})
	slog.Info("province nudged", "province", e.ProvinceID, "delta", e.PerceptionChange, "applications", len(applied))
	return applied, transitions, nil
}

// Province looks a province up by id.
func (s *Simulation) Province(id social.ProvinceID) (*social.Province, error) {
	p, ok := s.Ledger.Province(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvince, id)
	}
	return p, nil
}
