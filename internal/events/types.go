// Package events provides political events, the trigger evaluator, and the scheduler and
// selector that decide which event, if any, fires on a given day.
package events

import (
	"time"

	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
)

// Category tags an event for selection bias.
type Category string

const (
	CategoryEconomic      Category = "ECONOMIC"
	CategorySocial        Category = "SOCIAL"
	CategoryPolitical     Category = "POLITICAL"
	CategorySecurity      Category = "SECURITY"
	CategoryInternational Category = "INTERNATIONAL"
	CategoryHealth        Category = "HEALTH"
	CategoryEnvironmental Category = "ENVIRONMENTAL"
)

// Urgency bounds.
const (
	MinUrgency = 1
	MaxUrgency = 5
)

// Event is a political event definition from the catalog. Events are read-only once loaded.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    Category    `json:"category"`
	Urgency     int         `json:"urgency"`
	Locked      bool        `json:"locked,omitempty"` // eligible only after a choice unlocks it
	Trigger     TriggerSpec `json:"trigger"`
	Choices     []Choice    `json:"choices"`
}

// Weight is the urgency clamped to [MinUrgency, MaxUrgency].
func (e *Event) Weight() int {
	switch {
	case e.Urgency < MinUrgency:
		return MinUrgency
	case e.Urgency > MaxUrgency:
		return MaxUrgency
	default:
		return e.Urgency
	}
}

// Choice looks up a choice by id.
func (e *Event) Choice(id string) (*Choice, bool) {
	for i := range e.Choices {
		if e.Choices[i].ID == id {
			return &e.Choices[i], true
		}
	}
	return nil, false
}

// Choice is one answer to an event.
type Choice struct {
	ID       string                    `json:"id"`
	Text     string                    `json:"text"`
	Effects  map[nation.Metric]float64 `json:"effects"`
	Regional []RegionalSpec            `json:"regional,omitempty"`
	Unlocks  []string                  `json:"unlocks,omitempty"`
}

// RegionalSpec describes which provinces a choice touches. Province wins over Ideologies,
// which win over All; a spec with no target is ignored.
type RegionalSpec struct {
	Province    social.ProvinceID `json:"province,omitempty"`
	Ideologies  []social.Ideology `json:"ideologies,omitempty"`
	All         bool              `json:"all,omitempty"`
	Delta       float64           `json:"delta"`
	Description string            `json:"description"`
	Duration    int               `json:"duration,omitempty"`
}

// Bound is an optional inclusive range on one metric.
type Bound struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v satisfies the declared sides of the bound.
func (b Bound) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// ChoiceRef names a choice made on an earlier event.
type ChoiceRef struct {
	EventID  string `json:"event"`
	ChoiceID string `json:"choice"`
}

// ProvinceCondition requires at least MinCount provinces at or above State.
type ProvinceCondition struct {
	State    social.SocialState `json:"state"`
	MinCount int                `json:"min_count"`
}

// TriggerSpec holds the optional eligibility constraints of an event. A zero value
// constrains nothing.
type TriggerSpec struct {
	Character       string                  `json:"character,omitempty"`
	MinDays         int                     `json:"min_days,omitempty"`
	MaxDays         int                     `json:"max_days,omitempty"`
	Metrics         map[nation.Metric]Bound `json:"metrics,omitempty"`
	Probability     *float64                `json:"probability,omitempty"`
	Cooldown        time.Duration           `json:"cooldown,omitempty"`
	BlockedBy       []string                `json:"blocked_by,omitempty"`
	Requires        []string                `json:"requires,omitempty"`
	RequiredChoices []ChoiceRef             `json:"required_choices,omitempty"`
	Provinces       *ProvinceCondition      `json:"provinces,omitempty"`
}
