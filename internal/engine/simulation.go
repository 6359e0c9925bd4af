// Simulation ties together the national metrics, the event system and the province ledger.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
)

// DefaultDayLength is the simulated wall time of one day, used for cooldown timestamps.
const DefaultDayLength = 60 * time.Second

// maxLog bounds the notable-occurrence log.
const maxLog = 1000

// Clock maps simulated days onto timestamps.
type Clock struct {
	Epoch     time.Time
	DayLength time.Duration
}

// At returns the timestamp of the start of a simulated day.
func (c Clock) At(day int) time.Time {
	return c.Epoch.Add(time.Duration(day) * c.DayLength)
}

// Config holds everything a simulation is seeded with.
type Config struct {
	Character string
	Metrics   nation.Metrics
	Provinces []*social.Province
	Catalog   *events.Catalog

	Source  entropy.Source      // nil = crypto source
	Crisis  nation.CrisisPolicy // nil = nation.DefaultCrisisLevel
	Clock   Clock               // zero fields take defaults
	Choices ChoicePolicy        // nil = events wait for Resolve
}

// Entry is a notable occurrence kept for reports.
type Entry struct {
	Day         int    `json:"day"`
	Description string `json:"description"`
	Category    string `json:"category"` // "event", "decision", "transition", "intervention"
}

// Simulation is one independent run. It owns every piece of mutable state; two
// simulations never share a history, a cooldown map or a ledger.
type Simulation struct {
	SessionID string
	Character string

	Metrics     nation.Metrics
	CrisisLevel int
	Day         int

	Catalog   *events.Catalog
	History   *events.History
	Decisions []events.DecisionResult
	Ledger    *social.Ledger
	Unlocked  map[string]bool
	Pending   *events.Event

	Log []Entry

	seedMetrics nation.Metrics
	src         entropy.Source
	scheduler   *events.Scheduler
	selector    *events.Selector
	applier     *EffectApplier
	crisis      nation.CrisisPolicy
	clock       Clock
	choices     ChoicePolicy
}

// NewSimulation creates a simulation from its seed configuration.
func NewSimulation(cfg Config) (*Simulation, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("simulation needs an event catalog")
	}
	src := cfg.Source
	if src == nil {
		src = entropy.Crypto{}
	}
	clock := cfg.Clock
	if clock.DayLength <= 0 {
		clock.DayLength = DefaultDayLength
	}
	if clock.Epoch.IsZero() {
		clock.Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	seed := cfg.Metrics
	for i := range seed {
		seed[i] = nation.Clamp(seed[i])
	}

	s := &Simulation{
		SessionID:   uuid.NewString(),
		Character:   cfg.Character,
		Metrics:     seed,
		Catalog:     cfg.Catalog,
		History:     events.NewHistory(),
		Ledger:      social.NewLedger(cfg.Provinces),
		Unlocked:    make(map[string]bool),
		seedMetrics: seed,
		src:         src,
		scheduler:   events.NewScheduler(src),
		selector:    events.NewSelector(src),
		crisis:      cfg.Crisis,
		clock:       clock,
		choices:     cfg.Choices,
	}
	s.applier = &EffectApplier{Metrics: &s.Metrics, Ledger: s.Ledger}
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)
	return s, nil
}

// Now returns the simulated timestamp of the current day.
func (s *Simulation) Now() time.Time {
	return s.clock.At(s.Day)
}

// Source returns the random source shared by every draw of this simulation.
func (s *Simulation) Source() entropy.Source {
	return s.src
}

// Context builds the trigger context for the current state.
func (s *Simulation) Context() *events.Context {
	return &events.Context{
		Character:   s.Character,
		Metrics:     s.Metrics,
		DaysInPower: s.Day,
		History:     s.History,
		Decisions:   s.Decisions,
		Provinces:   s.Ledger.States(),
	}
}

func (s *Simulation) gate() events.Gate {
	return events.Gate{Now: s.Now(), Unlocked: s.Unlocked}
}

// Explain reports why each catalog event is or is not eligible right now.
func (s *Simulation) Explain() []events.Explanation {
	return s.Catalog.Explain(s.Context(), s.gate())
}

// DayReport summarizes one simulated day.
type DayReport struct {
	Day           int                    `json:"day"`
	Gate          float64                `json:"gate"`
	Attempted     bool                   `json:"attempted"`
	Candidates    int                    `json:"candidates"`
	EventID       string                 `json:"event_id,omitempty"`
	Pending       string                 `json:"pending,omitempty"`
	Decision      *events.DecisionResult `json:"decision,omitempty"`
	CrisisLevel   int                    `json:"crisis_level"`
	GeneralCrisis bool                   `json:"general_crisis"`
	Metrics       nation.Metrics         `json:"metrics"`
	Impact        social.Impact          `json:"impact"`
}

// TickDay advances one simulated day: expire old state, roll the scheduler gate, pick at
// most one event and, with a choice policy, resolve it. While an event is pending no new
// one is attempted.
func (s *Simulation) TickDay() (rep DayReport) {
	s.Day++
	s.Ledger.SetDay(s.Day)
	now := s.Now()
	s.History.Prune(now)
	s.Ledger.PruneExpired(s.Day)

	rep = DayReport{Day: s.Day, Gate: events.GateProbability(s.Metrics)}
	defer s.finishDay(&rep)

	if s.Pending != nil {
		rep.Pending = s.Pending.ID
		return rep
	}
	if !s.scheduler.ShouldAttempt(s.Metrics) {
		return rep
	}
	rep.Attempted = true

	cands := s.Catalog.Candidates(s.Context(), s.gate(), s.src)
	rep.Candidates = len(cands)
	ev := s.selector.Select(cands, s.Metrics, s.CrisisLevel)
	if ev == nil {
		return rep
	}
	s.fire(ev)
	rep.EventID = ev.ID

	if s.choices == nil {
		rep.Pending = ev.ID
		return rep
	}
	choiceID := s.choices.Choose(ev, s)
	res, err := s.Resolve(choiceID)
	if err != nil {
		slog.Warn("choice policy failed", "event", ev.ID, "choice", choiceID, "error", err)
		rep.Pending = ev.ID
		return rep
	}
	rep.Decision = &res
	return rep
}

func (s *Simulation) finishDay(rep *DayReport) {
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)
	rep.CrisisLevel = s.CrisisLevel
	rep.GeneralCrisis = nation.IsGeneralCrisis(s.Metrics)
	rep.Metrics = s.Metrics
	rep.Impact = s.Ledger.NationalImpact()
}

// fire records ev in the history, starts its cooldown and holds it pending.
func (s *Simulation) fire(ev *events.Event) {
	s.History.Record(ev.ID, s.Now(), ev.Trigger.Cooldown)
	s.Pending = ev
	s.emit(Entry{Day: s.Day, Category: "event", Description: ev.Title})
	slog.Debug("event fired", "day", s.Day, "event", ev.ID, "urgency", ev.Urgency, "category", ev.Category)
}

// Resolve applies the chosen answer to the pending event.
func (s *Simulation) Resolve(choiceID string) (events.DecisionResult, error) {
	ev := s.Pending
	if ev == nil {
		return events.DecisionResult{}, ErrNoPendingEvent
	}
	choice, ok := ev.Choice(choiceID)
	if !ok {
		return events.DecisionResult{}, fmt.Errorf("%w: %s/%s", ErrUnknownChoice, ev.ID, choiceID)
	}

	res := s.applier.Apply(ev, choice, s.Day)
	s.Decisions = append(s.Decisions, res)
	for _, id := range choice.Unlocks {
		s.Unlocked[id] = true
	}
	s.Pending = nil
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)

	s.emit(Entry{Day: s.Day, Category: "decision", Description: fmt.Sprintf("%s: %s", ev.Title, choice.Text)})
	for _, t := range res.Transitions {
		s.emit(Entry{Day: s.Day, Category: "transition", Description: fmt.Sprintf("%s %s -> %s", t.ProvinceID, t.From, t.To)})
	}
	slog.Debug("decision applied",
		"day", s.Day,
		"event", ev.ID,
		"choice", choice.ID,
		"regional", len(res.Regional),
		"transitions", len(res.Transitions),
		"crisis_level", s.CrisisLevel,
	)
	return res, nil
}

// Reset restores the seed metrics and provinces and clears the history, cooldowns,
// decisions, unlocks and any pending event.
func (s *Simulation) Reset() {
	s.Metrics = s.seedMetrics
	s.History.Reset()
	s.Ledger.Reset()
	s.Decisions = nil
	s.Unlocked = make(map[string]bool)
	s.Pending = nil
	s.Day = 0
	s.Log = nil
	s.CrisisLevel = s.crisis.Estimate(s.Metrics)
}

func (s *Simulation) emit(e Entry) {
	s.Log = append(s.Log, e)
	if len(s.Log) > maxLog {
		s.Log = s.Log[len(s.Log)-maxLog:]
	}
}

// TickWeek logs a weekly summary of the provinces and the crisis.
func (s *Simulation) TickWeek() {
	byState := make(map[social.SocialState]int)
	for _, st := range s.Ledger.States() {
		byState[st]++
	}
	im := s.Ledger.NationalImpact()

	slog.Info("weekly summary",
		"day", s.Day,
		"time", SimDate(uint64(s.Day)),
		"crisis_level", s.CrisisLevel,
		"events_fired", s.History.Len(),
		"decisions", len(s.Decisions),
		"avg_perception", fmt.Sprintf("%.1f", im.AveragePerception),
		"weighted_perception", fmt.Sprintf("%.1f", im.WeightedPerception),
		"critical", im.CriticalProvinces,
		"loyal", im.LoyalProvinces,
		"calm", byState[social.StateCalm],
		"tense", byState[social.StateTense],
		"agitated", byState[social.StateAgitated],
		"rebellious", byState[social.StateRebellious],
		"revolutionary", byState[social.StateRevolutionary],
	)
}
