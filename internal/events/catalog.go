// Event catalog: loading from YAML and filtering down to today's candidates.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/policy"
	"github.com/talgya/statecraft/internal/social"
)

// Catalog is the ordered, read-only collection of event definitions.
type Catalog struct {
	events []*Event
	index  map[string]*Event
}

// NewCatalog indexes events. Ids must be unique and non-empty.
func NewCatalog(evs []*Event) (*Catalog, error) {
	c := &Catalog{index: make(map[string]*Event, len(evs))}
	for i, e := range evs {
		if e == nil || strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("event %d: missing id", i)
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("event %q: duplicate id", e.ID)
		}
		c.index[e.ID] = e
		c.events = append(c.events, e)
	}
	return c, nil
}

// Events returns the events in catalog order. Callers must not mutate them.
func (c *Catalog) Events() []*Event {
	return c.events
}

// Get looks an event up by id.
func (c *Catalog) Get(id string) (*Event, bool) {
	e, ok := c.index[id]
	return e, ok
}

// Len returns the number of events.
func (c *Catalog) Len() int {
	return len(c.events)
}

// Gate holds the session state that excludes events before their trigger is evaluated.
type Gate struct {
	Now      time.Time
	Unlocked map[string]bool
}

// Explanation pairs an event with the reason it is or is not a candidate.
type Explanation struct {
	EventID string
	Verdict Verdict
}

func (c *Catalog) screen(e *Event, ctx *Context, g Gate) Verdict {
	if e.Locked && !g.Unlocked[e.ID] {
		return fail(CheckLocked, "not unlocked")
	}
	if ctx.History != nil {
		if ctx.History.InRecent(e.ID, policy.RecentHistoryWindow) {
			return fail(CheckRecent, "fired within the last %d events", policy.RecentHistoryWindow)
		}
		if ctx.History.InCooldown(e.ID, g.Now) {
			return fail(CheckCooldown, "cooling down")
		}
	}
	return Evaluate(&e.Trigger, ctx)
}

// Candidates returns the events eligible today: unlocked, not recently fired, not cooling
// down, passing their trigger, and winning their probability roll.
func (c *Catalog) Candidates(ctx *Context, g Gate, src entropy.Source) []*Event {
	var out []*Event
	for _, e := range c.events {
		if !passes(&e.Trigger, c.screen(e, ctx, g), src) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Explain reports the deterministic verdict for every event without rolling probabilities.
func (c *Catalog) Explain(ctx *Context, g Gate) []Explanation {
	out := make([]Explanation, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, Explanation{EventID: e.ID, Verdict: c.screen(e, ctx, g)})
	}
	return out
}

// ── YAML documents ───────────────────────────────────────────────────

type catalogDoc struct {
	Events []eventDoc `yaml:"events"`
}

type eventDoc struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Category    string      `yaml:"category"`
	Urgency     int         `yaml:"urgency"`
	Locked      bool        `yaml:"locked"`
	Trigger     triggerDoc  `yaml:"trigger"`
	Choices     []choiceDoc `yaml:"choices"`
}

// Trigger scalars decode as any so a malformed value can be dropped instead of failing
// the whole catalog.
type triggerDoc struct {
	Character       any              `yaml:"character"`
	MinDays         any              `yaml:"min_days"`
	MaxDays         any              `yaml:"max_days"`
	Metrics         map[string]any   `yaml:"metrics"`
	Probability     any              `yaml:"probability"`
	CooldownSeconds any              `yaml:"cooldown_seconds"`
	BlockedBy       []string         `yaml:"blocked_by"`
	Requires        []string         `yaml:"requires"`
	RequiredChoices []choiceRefDoc   `yaml:"required_choices"`
	Provinces       *provinceCondDoc `yaml:"provinces"`
}

type choiceRefDoc struct {
	Event  any `yaml:"event"`
	Choice any `yaml:"choice"`
}

type provinceCondDoc struct {
	State    any `yaml:"state"`
	MinCount any `yaml:"min_count"`
}

type choiceDoc struct {
	ID       string             `yaml:"id"`
	Text     string             `yaml:"text"`
	Effects  map[string]float64 `yaml:"effects"`
	Regional []regionalDoc      `yaml:"regional"`
	Unlocks  []string           `yaml:"unlocks"`
}

type regionalDoc struct {
	Province    string   `yaml:"province"`
	Ideology    string   `yaml:"ideology"`
	Ideologies  []string `yaml:"ideologies"`
	All         bool     `yaml:"all"`
	Delta       float64  `yaml:"delta"`
	Description string   `yaml:"description"`
	Duration    int      `yaml:"duration"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog validates the document shape against the catalog schema, then decodes it.
// Unknown metric keys, ideologies and states inside triggers and effects are dropped, so
// the constraint they named is treated as absent.
func ParseCatalog(raw []byte) (*Catalog, error) {
	if err := validateCatalog(raw); err != nil {
		return nil, err
	}

	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	evs := make([]*Event, 0, len(doc.Events))
	for _, d := range doc.Events {
		evs = append(evs, d.toEvent())
	}
	return NewCatalog(evs)
}

func validateCatalog(raw []byte) error {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	js, err := json.Marshal(finite(tree))
	if err != nil {
		return fmt.Errorf("catalog is not JSON-compatible: %w", err)
	}
	var doc any
	if err := json.Unmarshal(js, &doc); err != nil {
		return err
	}
	if err := catalogSchema().Validate(doc); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	return nil
}

// finite replaces NaN and infinite scalars with null so they reach the decoder, which
// drops them, instead of failing JSON encoding.
func finite(v any) any {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
	case map[string]any:
		for k, e := range n {
			n[k] = finite(e)
		}
	case []any:
		for i, e := range n {
			n[i] = finite(e)
		}
	}
	return v
}

func (d eventDoc) toEvent() *Event {
	e := &Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    Category(strings.ToUpper(strings.TrimSpace(d.Category))),
		Urgency:     d.Urgency,
		Locked:      d.Locked,
		Trigger:     d.Trigger.toSpec(d.ID),
	}
	for _, cd := range d.Choices {
		e.Choices = append(e.Choices, cd.toChoice(d.ID))
	}
	return e
}

func (d triggerDoc) toSpec(eventID string) TriggerSpec {
	drop := func(field string, v any) {
		slog.Debug("catalog: malformed trigger field ignored", "event", eventID, "field", field, "value", v)
	}

	t := TriggerSpec{
		BlockedBy: d.BlockedBy,
		Requires:  d.Requires,
	}
	if d.Character != nil {
		if s, ok := d.Character.(string); ok {
			t.Character = strings.TrimSpace(s)
		} else {
			drop("character", d.Character)
		}
	}
	if d.MinDays != nil {
		if n, ok := days(d.MinDays); ok {
			t.MinDays = n
		} else {
			drop("min_days", d.MinDays)
		}
	}
	if d.MaxDays != nil {
		if n, ok := days(d.MaxDays); ok {
			t.MaxDays = n
		} else {
			drop("max_days", d.MaxDays)
		}
	}

	for key, raw := range d.Metrics {
		m, ok := nation.ParseMetric(key)
		if !ok {
			slog.Debug("catalog: unknown trigger metric ignored", "event", eventID, "metric", key)
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			drop("metrics."+key, raw)
			continue
		}
		var b Bound
		for side, dst := range map[string]**float64{"min": &b.Min, "max": &b.Max} {
			v, present := fields[side]
			if !present {
				continue
			}
			if n, ok := number(v); ok {
				*dst = &n
			} else {
				drop("metrics."+key+"."+side, v)
			}
		}
		if b.Min == nil && b.Max == nil {
			continue
		}
		if t.Metrics == nil {
			t.Metrics = make(map[nation.Metric]Bound, len(d.Metrics))
		}
		t.Metrics[m] = b
	}

	if d.Probability != nil {
		if p, ok := number(d.Probability); ok && p >= 0 && p <= 1 {
			t.Probability = &p
		} else {
			drop("probability", d.Probability)
		}
	}
	if d.CooldownSeconds != nil {
		if secs, ok := number(d.CooldownSeconds); ok && secs >= 0 {
			t.Cooldown = time.Duration(secs * float64(time.Second))
		} else {
			drop("cooldown_seconds", d.CooldownSeconds)
		}
	}

	for _, rc := range d.RequiredChoices {
		ev, _ := rc.Event.(string)
		ch, _ := rc.Choice.(string)
		if ev == "" || ch == "" {
			drop("required_choices", rc)
			continue
		}
		t.RequiredChoices = append(t.RequiredChoices, ChoiceRef{EventID: ev, ChoiceID: ch})
	}

	if pc := d.Provinces; pc != nil {
		tag, _ := pc.State.(string)
		s, okState := social.ParseSocialState(tag)
		n, okCount := number(pc.MinCount)
		if okState && okCount && n >= 1 && n == math.Trunc(n) {
			t.Provinces = &ProvinceCondition{State: s, MinCount: int(n)}
		} else {
			drop("provinces", *pc)
		}
	}
	return t
}

// number reads a YAML scalar as a finite float.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// days reads a non-negative whole number of days.
func days(v any) (int, bool) {
	n, ok := number(v)
	if !ok || n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func (d choiceDoc) toChoice(eventID string) Choice {
	c := Choice{ID: d.ID, Text: d.Text, Unlocks: d.Unlocks}
	if len(d.Effects) > 0 {
		c.Effects = make(map[nation.Metric]float64, len(d.Effects))
		for key, v := range d.Effects {
			m, ok := nation.ParseMetric(key)
			if !ok {
				slog.Debug("catalog: unknown effect metric ignored", "event", eventID, "choice", d.ID, "metric", key)
				continue
			}
			c.Effects[m] = v
		}
	}
	for _, rd := range d.Regional {
		spec := RegionalSpec{
			Province:    strings.TrimSpace(rd.Province),
			All:         rd.All,
			Delta:       rd.Delta,
			Description: rd.Description,
			Duration:    max(rd.Duration, 0),
		}
		tags := rd.Ideologies
		if rd.Ideology != "" {
			tags = append([]string{rd.Ideology}, tags...)
		}
		for _, tag := range tags {
			if ideo, ok := social.ParseIdeology(tag); ok {
				spec.Ideologies = append(spec.Ideologies, ideo)
			}
		}
		if spec.Description == "" {
			spec.Description = eventID
		}
		c.Regional = append(c.Regional, spec)
	}
	return c
}
