package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
	"github.com/talgya/statecraft/internal/social"
)

func provinces() []*social.Province {
	mk := func(id string, ideo social.Ideology, perception float64, neighbors ...string) *social.Province {
		return &social.Province{
			ID:         id,
			Name:       id,
			Population: 1000,
			Ideology:   ideo,
			Perception: perception,
			Loyalty:    50,
			Discontent: 30,
			Neighbors:  neighbors,
		}
	}
	return []*social.Province{
		mk("p", social.IdeologyModerate, 0, "n1"),
		mk("n1", social.IdeologyPopulist, 10, "n2"),
		mk("n2", social.IdeologyPopulist, -10, "n3"),
		mk("n3", social.IdeologyConservative, 20),
	}
}

func testCatalog(t *testing.T) *events.Catalog {
	t.Helper()
	evs := []*events.Event{
		{
			ID: "budget", Title: "Budget", Category: events.CategoryEconomic, Urgency: 3,
			Choices: []events.Choice{
				{
					ID: "austerity", Text: "Cut spending",
					Effects: map[nation.Metric]float64{nation.Economy: 10, nation.Popularity: -15},
					Regional: []events.RegionalSpec{
						{Province: "p", Delta: -30, Description: "Cuts"},
					},
					Unlocks: []string{"strike"},
				},
				{
					ID: "stimulus", Text: "Spend",
					Effects: map[nation.Metric]float64{nation.Economy: -5, nation.Popularity: 10},
					Regional: []events.RegionalSpec{
						{Ideologies: []social.Ideology{social.IdeologyPopulist}, Delta: 5, Description: "Subsidies", Duration: 2},
					},
				},
			},
		},
		{
			ID: "strike", Title: "Strike", Category: events.CategorySocial, Urgency: 4, Locked: true,
			Choices: []events.Choice{
				{ID: "negotiate", Text: "Negotiate", Effects: map[nation.Metric]float64{nation.Economy: -5}},
				{ID: "repress", Text: "Repress", Effects: map[nation.Metric]float64{nation.Security: 5, nation.Popularity: -10},
					Regional: []events.RegionalSpec{{All: true, Delta: -12, Description: "Repression"}}},
			},
		},
		{
			ID: "scandal", Title: "Scandal", Category: events.CategoryPolitical, Urgency: 2,
			Trigger: events.TriggerSpec{Cooldown: 3 * time.Minute},
			Choices: []events.Choice{
				{ID: "deny", Text: "Deny", Effects: map[nation.Metric]float64{nation.Institutions: -8}},
			},
		},
		{
			ID: "summit", Title: "Summit", Category: events.CategoryInternational, Urgency: 1,
			Choices: []events.Choice{
				{ID: "attend", Text: "Attend", Effects: map[nation.Metric]float64{nation.ForeignRelations: 6}},
			},
		},
		{
			ID: "outbreak", Title: "Outbreak", Category: events.CategoryHealth, Urgency: 5,
			Trigger: events.TriggerSpec{Metrics: map[nation.Metric]events.Bound{nation.Health: {Max: ptr(40)}}},
			Choices: []events.Choice{
				{ID: "lockdown", Text: "Lockdown", Effects: map[nation.Metric]float64{nation.Health: 15, nation.Economy: -10}},
			},
		},
	}
	// Routine events keep the catalog larger than the recent-history window.
	ids := []string{"p", "n1", "n2", "n3"}
	for i := range 8 {
		sign := float64(i%2*2 - 1)
		evs = append(evs, &events.Event{
			ID: fmt.Sprintf("routine-%d", i), Title: "Routine", Category: events.CategoryPolitical, Urgency: i%5 + 1,
			Choices: []events.Choice{
				{
					ID: "act", Text: "Act",
					Effects:  map[nation.Metric]float64{nation.Metric(i): 7 * sign, nation.Stability: -3},
					Regional: []events.RegionalSpec{{Province: ids[i%len(ids)], Delta: 14 * sign, Description: "Routine"}},
				},
				{ID: "wait", Text: "Wait", Effects: map[nation.Metric]float64{nation.Popularity: -2}},
			},
		})
	}

	cat, err := events.NewCatalog(evs)
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func ptr(v float64) *float64 { return &v }

func newSim(t *testing.T, src entropy.Source, choices ChoicePolicy) *Simulation {
	t.Helper()
	s, err := NewSimulation(Config{
		Character: "presidente",
		Metrics:   nation.Uniform(60),
		Provinces: provinces(),
		Catalog:   testCatalog(t),
		Source:    src,
		Choices:   choices,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSimulationRequiresCatalog(t *testing.T) {
	if _, err := NewSimulation(Config{}); err == nil {
		t.Fatal("expected error without a catalog")
	}
}

func TestResolveErrors(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	if _, err := s.Resolve("austerity"); !errors.Is(err, ErrNoPendingEvent) {
		t.Fatalf("expected ErrNoPendingEvent, got %v", err)
	}
	if _, err := s.ForceEvent("budget"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Resolve("nope"); !errors.Is(err, ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
	if s.Pending == nil {
		t.Fatal("a failed resolve must keep the event pending")
	}
	if _, err := s.ForceEvent("summit"); err == nil {
		t.Fatal("expected error forcing while pending")
	}
	if _, err := s.ForceEvent("ghost"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestResolveAppliesChoice(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	if _, err := s.ForceEvent("budget"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Resolve("austerity")
	if err != nil {
		t.Fatal(err)
	}

	if s.Metrics[nation.Economy] != 70 {
		t.Fatalf("expected economia 70, got %.1f", s.Metrics[nation.Economy])
	}
	if res.Metrics["popularidad"] != -15 {
		t.Fatalf("expected applied popularity delta -15, got %v", res.Metrics)
	}

	// p takes -30, n1 -15, then p again (-7.5) and n2 (-7.5) at depth 3.
	want := map[string]float64{"p": -37.5, "n1": -5, "n2": -17.5, "n3": 20}
	for id, v := range want {
		p, err := s.Province(id)
		if err != nil {
			t.Fatal(err)
		}
		if p.Perception != v {
			t.Fatalf("%s: expected perception %.1f, got %.1f", id, v, p.Perception)
		}
	}
	if len(res.Regional) != 4 {
		t.Fatalf("expected 4 applications, got %d", len(res.Regional))
	}

	// p crossed into TENSE; its bundle costs one point of stability.
	if len(res.Transitions) != 1 || res.Transitions[0].ProvinceID != "p" || res.Transitions[0].To != social.StateTense {
		t.Fatalf("expected p -> TENSE, got %+v", res.Transitions)
	}
	if s.Metrics[nation.Stability] != 59 {
		t.Fatalf("expected estabilidad 59, got %.1f", s.Metrics[nation.Stability])
	}

	if !s.Unlocked["strike"] {
		t.Fatal("expected strike unlocked")
	}
	if s.Pending != nil || len(s.Decisions) != 1 {
		t.Fatal("expected decision logged and nothing pending")
	}
}

func TestIdeologyAndAllTargets(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	s.ForceEvent("budget")
	res, err := s.Resolve("stimulus")
	if err != nil {
		t.Fatal(err)
	}
	// Two populist provinces, each below the propagation threshold.
	if len(res.Regional) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(res.Regional))
	}
	n1, _ := s.Province("n1")
	if n1.Perception != 15 || len(n1.ActiveEvents) != 1 || n1.ActiveEvents[0].ExpiresDay != 2 {
		t.Fatalf("unexpected n1 %+v", n1)
	}

	s.Unlocked["strike"] = true
	s.ForceEvent("strike")
	res, err = s.Resolve("repress")
	if err != nil {
		t.Fatal(err)
	}
	// Four direct applications, each propagating.
	direct := 0
	for _, ae := range res.Regional {
		if ae.Depth == 1 {
			direct++
		}
	}
	if direct != 4 {
		t.Fatalf("expected 4 direct applications, got %d", direct)
	}
}

func TestPendingBlocksNewAttempts(t *testing.T) {
	s := newSim(t, entropy.NewSequence(0), nil)
	rep := s.TickDay()
	if rep.EventID == "" || rep.Pending != rep.EventID {
		t.Fatalf("expected an event fired and pending, got %+v", rep)
	}
	fired := rep.EventID

	rep = s.TickDay()
	if rep.Attempted || rep.EventID != "" || rep.Pending != fired {
		t.Fatalf("expected no attempt while %s is pending, got %+v", fired, rep)
	}
	if s.History.Len() != 1 {
		t.Fatalf("expected one fired event, got %d", s.History.Len())
	}
}

func TestRecentEventsNotRepeated(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(5), FirstChoice)
	s.Unlocked["strike"] = true
	for range 300 {
		rep := s.TickDay()
		if rep.EventID == "" {
			continue
		}
		fired := s.History.Fired()
		prev := fired[:len(fired)-1]
		start := max(len(prev)-policy.RecentHistoryWindow, 0)
		for _, id := range prev[start:] {
			if id == rep.EventID {
				t.Fatalf("day %d: %s fired again within the recent window %v", rep.Day, id, prev[start:])
			}
		}
	}
}

func TestInvariantsHoldOverManyDays(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(11), RandomChoice)
	for range 1000 {
		rep := s.TickDay()
		for _, m := range nation.AllMetrics() {
			if v := s.Metrics[m]; v < 0 || v > 100 {
				t.Fatalf("day %d: %s out of bounds: %.2f", rep.Day, m, v)
			}
		}
		for _, p := range s.Ledger.Provinces() {
			if p.Perception < -100 || p.Perception > 100 {
				t.Fatalf("day %d: %s perception %.2f", rep.Day, p.ID, p.Perception)
			}
			for _, v := range []float64{p.Loyalty, p.Discontent, p.RebellionLevel, p.EconomicLevel} {
				if v < 0 || v > 100 {
					t.Fatalf("day %d: %s scalar out of bounds: %+v", rep.Day, p.ID, p)
				}
			}
			if len(p.ActiveEvents) > policy.MaxActiveEvents {
				t.Fatalf("day %d: %s holds %d active events", rep.Day, p.ID, len(p.ActiveEvents))
			}
		}
		for _, ae := range lastRegional(s) {
			if ae.Depth > policy.MaxPropagationDepth {
				t.Fatalf("day %d: propagation depth %d", rep.Day, ae.Depth)
			}
		}
		if rep.CrisisLevel < 0 || rep.CrisisLevel > policy.MaxCrisisLevel {
			t.Fatalf("day %d: crisis level %d", rep.Day, rep.CrisisLevel)
		}
	}
}

func lastRegional(s *Simulation) []social.AppliedEffect {
	if len(s.Decisions) == 0 {
		return nil
	}
	return s.Decisions[len(s.Decisions)-1].Regional
}

func TestCrisisFeedback(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	calmGate := events.GateProbability(s.Metrics)
	if s.CrisisLevel != 0 {
		t.Fatalf("expected no crisis at 60, got %d", s.CrisisLevel)
	}

	for _, m := range nation.AllMetrics() {
		s.Metrics.Set(m, 15)
	}
	s.TickDay()
	if s.CrisisLevel < policy.CrisisUrgencyLevel {
		t.Fatalf("expected deep crisis, got %d", s.CrisisLevel)
	}
	if events.GateProbability(s.Metrics) <= calmGate {
		t.Fatal("expected the gate to widen in crisis")
	}
}

func TestReset(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(3), RandomChoice)
	seedMetrics := s.Metrics
	seedPerception := map[string]float64{}
	for _, p := range s.Ledger.Provinces() {
		seedPerception[p.ID] = p.Perception
	}

	s.ForceEvent("budget")
	s.Resolve("austerity")
	for range 200 {
		s.TickDay()
	}
	if s.History.Len() == 0 {
		t.Fatal("expected some history before reset")
	}

	s.Reset()
	if s.Metrics != seedMetrics {
		t.Fatalf("expected seed metrics, got %v", s.Metrics)
	}
	for _, p := range s.Ledger.Provinces() {
		if p.Perception != seedPerception[p.ID] {
			t.Fatalf("%s: expected perception %.1f, got %.1f", p.ID, seedPerception[p.ID], p.Perception)
		}
		if len(p.ActiveEvents) != 0 || len(p.SocialHistory) != 0 || p.State != social.StateCalm {
			t.Fatalf("%s: expected clean province, got %+v", p.ID, p)
		}
	}
	if s.History.Len() != 0 || len(s.History.Cooldowns()) != 0 {
		t.Fatal("expected empty history and cooldowns")
	}
	if s.Day != 0 || s.Pending != nil || len(s.Decisions) != 0 || len(s.Unlocked) != 0 {
		t.Fatal("expected session state cleared")
	}

	// A second reset changes nothing.
	before := s.Snapshot()
	s.Reset()
	after := s.Snapshot()
	if before.Day != after.Day || len(after.Fired) != 0 || after.Metrics["economia"] != before.Metrics["economia"] {
		t.Fatal("reset is not idempotent")
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() *Simulation {
		s := newSim(t, entropy.NewSeeded(99), RandomChoice)
		for range 300 {
			s.TickDay()
		}
		return s
	}
	a, b := run(), run()
	if a.Metrics != b.Metrics {
		t.Fatalf("metrics diverged: %v vs %v", a.Metrics, b.Metrics)
	}
	fa, fb := a.History.Fired(), b.History.Fired()
	if len(fa) != len(fb) {
		t.Fatalf("history length diverged: %d vs %d", len(fa), len(fb))
	}
	for i := range fa {
		if fa[i] != fb[i] {
			t.Fatalf("history diverged at %d: %s vs %s", i, fa[i], fb[i])
		}
	}
}

func TestCooldownUsesSimulatedClock(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	s.ForceEvent("scandal")
	s.Resolve("deny")
	if !s.History.InCooldown("scandal", s.Now()) {
		t.Fatal("expected scandal cooling down")
	}
	// Three minutes is three simulated days at the default day length.
	s.Day += 3
	if s.History.InCooldown("scandal", s.Now()) {
		t.Fatal("expected cooldown over after three days")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(21), RandomChoice)
	s.ForceEvent("budget")
	s.Resolve("austerity")
	for range 60 {
		s.TickDay()
	}
	s.ForceEvent("summit")
	st := s.Snapshot()

	r := newSim(t, entropy.NewSeeded(22), nil)
	if err := r.Restore(st); err != nil {
		t.Fatal(err)
	}
	if r.SessionID != s.SessionID || r.Day != s.Day || r.Metrics != s.Metrics {
		t.Fatal("expected identical session, day and metrics")
	}
	if r.Pending == nil || r.Pending.ID != "summit" {
		t.Fatalf("expected summit pending, got %v", r.Pending)
	}
	if !r.Unlocked["strike"] {
		t.Fatal("expected unlocks restored")
	}
	if r.History.Len() != s.History.Len() || len(r.Decisions) != len(s.Decisions) {
		t.Fatal("expected history and decisions restored")
	}
	for _, p := range s.Ledger.Provinces() {
		q, err := r.Province(p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if q.Perception != p.Perception || q.State != p.State || len(q.Neighbors) != len(p.Neighbors) {
			t.Fatalf("%s: province not restored: %+v vs %+v", p.ID, q, p)
		}
	}

	st.Pending = "ghost"
	if err := r.Restore(st); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestRestoreIgnoresNullProvinces(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(5), RandomChoice)
	s.ForceEvent("budget")
	s.Resolve("austerity")
	st := s.Snapshot()
	st.Provinces = append([]*social.Province{nil}, st.Provinces...)

	r := newSim(t, entropy.NewSeeded(6), nil)
	if err := r.Restore(st); err != nil {
		t.Fatal(err)
	}
	p, _ := s.Province("p")
	q, err := r.Province("p")
	if err != nil {
		t.Fatal(err)
	}
	if q.Perception != p.Perception {
		t.Fatalf("expected perception %v, got %v", p.Perception, q.Perception)
	}
}

func TestNudgeProvince(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	if _, _, err := s.NudgeProvince(social.RegionalEffect{ProvinceID: "ghost", PerceptionChange: 5}); !errors.Is(err, ErrUnknownProvince) {
		t.Fatalf("expected ErrUnknownProvince, got %v", err)
	}
	applied, _, err := s.NudgeProvince(social.RegionalEffect{ProvinceID: "n3", PerceptionChange: 8, Description: "visit"})
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected a single application below the threshold, got %d", len(applied))
	}
	if len(s.Log) == 0 || s.Log[len(s.Log)-1].Category != "intervention" {
		t.Fatal("expected intervention logged")
	}
}

func TestChoicePolicies(t *testing.T) {
	s := newSim(t, entropy.NewSequence(0.99), nil)
	cat := testCatalog(t)
	budget, _ := cat.Get("budget")

	if got := FirstChoice.Choose(budget, s); got != "austerity" {
		t.Fatalf("expected austerity, got %s", got)
	}
	if got := RandomChoice.Choose(budget, s); got != "stimulus" {
		t.Fatalf("expected stimulus for a high draw, got %s", got)
	}

	s.Metrics.Set(nation.Popularity, 10)
	if got := ScoredChoice.Choose(budget, s); got != "stimulus" {
		t.Fatalf("expected the choice helping the weakest metric, got %s", got)
	}
}

func TestExplainReportsLocked(t *testing.T) {
	s := newSim(t, entropy.NewSeeded(1), nil)
	for _, x := range s.Explain() {
		if x.EventID == "strike" && x.Verdict.Failed != events.CheckLocked {
			t.Fatalf("expected strike locked, got %s", x.Verdict.Failed)
		}
		if x.EventID == "outbreak" && x.Verdict.Failed != events.CheckMetrics {
			t.Fatalf("expected outbreak blocked by metrics, got %s", x.Verdict.Failed)
		}
	}
}
