// Social unrest: the per-province state machine escalating from calm to revolution.
package social

import (
	"fmt"
	"strings"

	"github.com/talgya/statecraft/internal/nation"
)

// SocialState is an ordered unrest tier.
type SocialState uint8

const (
	StateCalm SocialState = iota
	StateTense
	StateAgitated
	StateRebellious
	StateRevolutionary

	StateCount = 5
)

// String returns the tag of the state.
func (s SocialState) String() string {
	switch s {
	case StateCalm:
		return "CALM"
	case StateTense:
		return "TENSE"
	case StateAgitated:
		return "AGITATED"
	case StateRebellious:
		return "REBELLIOUS"
	case StateRevolutionary:
		return "REVOLUTIONARY"
	default:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}
}

// ParseSocialState resolves a tag to a SocialState.
func ParseSocialState(tag string) (SocialState, bool) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "CALM":
		return StateCalm, true
	case "TENSE":
		return StateTense, true
	case "AGITATED":
		return StateAgitated, true
	case "REBELLIOUS":
		return StateRebellious, true
	case "REVOLUTIONARY":
		return StateRevolutionary, true
	default:
		return 0, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SocialState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SocialState) UnmarshalText(b []byte) error {
	v, ok := ParseSocialState(string(b))
	if !ok {
		return fmt.Errorf("unknown social state %q", string(b))
	}
	*s = v
	return nil
}

// Range is an inclusive bound on a province scalar.
type Range struct {
	Min float64
	Max float64
}

// Any is the unconstrained scalar range.
var Any = Range{Min: 0, Max: 100}

func atLeast(v float64) Range { return Range{Min: v, Max: 100} }
func atMost(v float64) Range  { return Range{Min: 0, Max: v} }

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Condition must hold on all three scalars for a transition to occur.
type Condition struct {
	Discontent Range
	Loyalty    Range
	Rebellion  Range
}

// Holds evaluates the condition.
func (c Condition) Holds(discontent, loyalty, rebellion float64) bool {
	return c.Discontent.Contains(discontent) &&
		c.Loyalty.Contains(loyalty) &&
		c.Rebellion.Contains(rebellion)
}

// Rule is one legal next state of a state, with the condition for reaching it.
type Rule struct {
	To   SocialState
	When Condition
}

// Rules returns the legal next states of s in evaluation order.
func Rules(s SocialState) []Rule {
	switch s {
	case StateCalm:
		return []Rule{
			{To: StateTense, When: Condition{Discontent: atLeast(40), Loyalty: atMost(60), Rebellion: Any}},
		}
	case StateTense:
		return []Rule{
			{To: StateAgitated, When: Condition{Discontent: atLeast(60), Loyalty: atMost(50), Rebellion: Any}},
			{To: StateCalm, When: Condition{Discontent: atMost(30), Loyalty: atLeast(40), Rebellion: Any}},
		}
	case StateAgitated:
		return []Rule{
			{To: StateRebellious, When: Condition{Discontent: atLeast(75), Loyalty: atMost(35), Rebellion: atLeast(40)}},
			{To: StateTense, When: Condition{Discontent: atMost(50), Loyalty: Any, Rebellion: Any}},
		}
	case StateRebellious:
		return []Rule{
			{To: StateRevolutionary, When: Condition{Discontent: atLeast(90), Loyalty: atMost(20), Rebellion: atLeast(70)}},
			{To: StateAgitated, When: Condition{Discontent: atMost(65), Loyalty: Any, Rebellion: atMost(50)}},
		}
	case StateRevolutionary:
		// De-escalation only.
		return []Rule{
			{To: StateRebellious, When: Condition{Discontent: atMost(80), Loyalty: Any, Rebellion: atMost(60)}},
		}
	default:
		return nil
	}
}

// NextState returns the first legal next state whose condition holds, or false when the
// province stays where it is this tick.
func NextState(current SocialState, discontent, loyalty, rebellion float64) (SocialState, bool) {
	for _, r := range Rules(current) {
		if r.When.Holds(discontent, loyalty, rebellion) {
			return r.To, true
		}
	}
	return current, false
}

// Effects is the bundle applied when a province enters a state.
type Effects struct {
	National   map[nation.Metric]float64
	Loyalty    float64
	Discontent float64
	Economic   float64
}

// EffectsOf returns the bundle declared on the target state.
func EffectsOf(s SocialState) Effects {
	switch s {
	case StateCalm:
		return Effects{
			National:   map[nation.Metric]float64{nation.Stability: 2, nation.Popularity: 1},
			Loyalty:    3,
			Discontent: -3,
			Economic:   1,
		}
	case StateTense:
		return Effects{
			National:   map[nation.Metric]float64{nation.Stability: -1, nation.Popularity: -1},
			Loyalty:    -2,
			Discontent: 2,
			Economic:   -1,
		}
	case StateAgitated:
		return Effects{
			National:   map[nation.Metric]float64{nation.Stability: -3, nation.Popularity: -2, nation.Security: -2},
			Loyalty:    -4,
			Discontent: 3,
			Economic:   -2,
		}
	case StateRebellious:
		return Effects{
			National: map[nation.Metric]float64{
				nation.Stability: -5, nation.Popularity: -3, nation.Security: -4, nation.Economy: -2,
			},
			Loyalty:    -6,
			Discontent: 4,
			Economic:   -4,
		}
	case StateRevolutionary:
		return Effects{
			National: map[nation.Metric]float64{
				nation.Stability: -8, nation.Popularity: -5, nation.Security: -6,
				nation.Economy: -4, nation.Institutions: -4,
			},
			Loyalty:    -10,
			Discontent: 5,
			Economic:   -6,
		}
	default:
		return Effects{}
	}
}

// Transition records a state change of one province.
type Transition struct {
	ProvinceID ProvinceID  `json:"province_id"`
	From       SocialState `json:"from"`
	To         SocialState `json:"to"`
	Day        int         `json:"day"`

	// National deltas actually applied by the engine; filled in by the caller.
	National map[string]float64 `json:"national,omitempty"`
}

// Escalation reports whether the transition moved up the unrest order.
func (t Transition) Escalation() bool {
	return t.To > t.From
}
