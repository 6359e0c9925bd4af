// Trigger evaluation: is an event eligible right now?
package events

import (
	"fmt"

	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/nation"
	"github.com/talgya/statecraft/internal/social"
)

// Context is the state a trigger is evaluated against.
type Context struct {
	Character   string
	Metrics     nation.Metrics
	DaysInPower int
	History     *History
	Decisions   []DecisionResult
	Provinces   map[social.ProvinceID]social.SocialState
}

// Check names the constraint a verdict failed on.
type Check uint8

const (
	CheckNone Check = iota
	CheckCharacter
	CheckDays
	CheckMetrics
	CheckBlocked
	CheckRequired
	CheckChoices
	CheckProvinces
	CheckProbability
	CheckLocked
	CheckRecent
	CheckCooldown
)

func (c Check) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckCharacter:
		return "character"
	case CheckDays:
		return "days_in_power"
	case CheckMetrics:
		return "metrics"
	case CheckBlocked:
		return "blocked_by"
	case CheckRequired:
		return "requires"
	case CheckChoices:
		return "required_choices"
	case CheckProvinces:
		return "provinces"
	case CheckProbability:
		return "probability"
	case CheckLocked:
		return "locked"
	case CheckRecent:
		return "recent"
	case CheckCooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("check(%d)", uint8(c))
	}
}

// Verdict is the outcome of evaluating the deterministic part of a trigger. When Eligible
// is true the event still has to pass a probability roll of Probability (1 = none declared).
type Verdict struct {
	Eligible    bool
	Failed      Check
	Detail      string
	Probability float64
}

func fail(c Check, format string, args ...any) Verdict {
	return Verdict{Failed: c, Detail: fmt.Sprintf(format, args...)}
}

// Evaluate runs every deterministic check in order, stopping at the first failure. It has
// no side effects and draws no randomness.
func Evaluate(t *TriggerSpec, ctx *Context) Verdict {
	if t == nil {
		return Verdict{Eligible: true, Probability: 1}
	}

	if t.Character != "" && t.Character != ctx.Character {
		return fail(CheckCharacter, "requires character %q", t.Character)
	}

	if t.MinDays > 0 && ctx.DaysInPower < t.MinDays {
		return fail(CheckDays, "requires %d days in power", t.MinDays)
	}
	if t.MaxDays > 0 && ctx.DaysInPower > t.MaxDays {
		return fail(CheckDays, "only within the first %d days", t.MaxDays)
	}

	// Iterate in metric order so the reported failure is stable.
	for _, m := range nation.AllMetrics() {
		b, ok := t.Metrics[m]
		if !ok {
			continue
		}
		if v := ctx.Metrics[m]; !b.Contains(v) {
			return fail(CheckMetrics, "%s=%.1f out of range", m, v)
		}
	}

	for _, id := range t.BlockedBy {
		if ctx.History != nil && ctx.History.Has(id) {
			return fail(CheckBlocked, "blocked by %s", id)
		}
	}

	for _, id := range t.Requires {
		if ctx.History == nil || !ctx.History.Has(id) {
			return fail(CheckRequired, "requires %s", id)
		}
	}

	for _, ref := range t.RequiredChoices {
		if !HasDecision(ctx.Decisions, ref) {
			return fail(CheckChoices, "requires choice %s/%s", ref.EventID, ref.ChoiceID)
		}
	}

	if pc := t.Provinces; pc != nil && pc.MinCount > 0 {
		n := 0
		for _, s := range ctx.Provinces {
			if s >= pc.State {
				n++
			}
		}
		if n < pc.MinCount {
			return fail(CheckProvinces, "requires %d provinces at %s or worse, have %d", pc.MinCount, pc.State, n)
		}
	}

	p := 1.0
	if t.Probability != nil {
		p = *t.Probability
	}
	return Verdict{Eligible: true, Probability: p}
}

// IsEligible evaluates the trigger and, when a probability is declared, rolls it with src.
func IsEligible(t *TriggerSpec, ctx *Context, src entropy.Source) bool {
	return passes(t, Evaluate(t, ctx), src)
}

// passes rolls the probability of an eligible verdict. Nothing is drawn when the trigger
// declares no probability; a nil src falls back to crypto randomness.
func passes(t *TriggerSpec, v Verdict, src entropy.Source) bool {
	if !v.Eligible {
		return false
	}
	if t == nil || t.Probability == nil {
		return true
	}
	if src == nil {
		src = entropy.Crypto{}
	}
	return src.Float64() < v.Probability
}
