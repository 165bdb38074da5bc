// Propensity policies — how much a person works and consumes next period.
package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/memory"
	"github.com/talgya/polis/internal/reasoning"
)

// Propensities are per-person behavioral fractions in [0, 1].
type Propensities struct {
	Work        float64
	Consumption float64
}

// Policy yields a person's propensities for the coming period. Invoked by
// the clearing engine at period boundaries, when no agent cycle is in
// flight, so implementations may read agent memory.
type Policy interface {
	Propensities(ctx context.Context, personID ledger.ActorID) Propensities
}

// MemoryPolicy derives the work propensity from the hours the agent actually
// worked this period, and the consumption propensity from the agent's
// declared attribute. Both clamp to [0, 1].
type MemoryPolicy struct {
	LaborHours float64
	Stores     map[ledger.ActorID]*memory.Store
}

func (p *MemoryPolicy) Propensities(ctx context.Context, personID ledger.ActorID) Propensities {
	out := Propensities{Work: 0.5, Consumption: 0.3}
	store, ok := p.Stores[personID]
	if !ok {
		return out
	}

	if hours, err := store.Number("work_hours"); err == nil && p.LaborHours > 0 {
		out.Work = clamp01(hours / p.LaborHours)
		// Hours reset with the period, like the ledger accumulators.
		_ = store.Set("work_hours", 0.0)
	}
	if cp, err := store.Number("consume_propensity"); err == nil {
		out.Consumption = clamp01(cp)
	}
	return out
}

// ReasoningPolicy asks the reasoning backend for the two fractions and falls
// back to the wrapped policy on any failure or malformed answer.
type ReasoningPolicy struct {
	Completer reasoning.Completer
	Fallback  Policy
}

func (p *ReasoningPolicy) Propensities(ctx context.Context, personID ledger.ActorID) Propensities {
	system := "You decide how a person splits effort next month. " +
		"Respond with exactly two numbers between 0 and 1 separated by a space: " +
		"work propensity, then consumption propensity."
	user := fmt.Sprintf("Person %d. How hard do they work, and what share of wealth do they spend?", personID)

	text, err := p.Completer.Complete(ctx, system, user, 30)
	if err == nil {
		if props, ok := parsePropensities(text); ok {
			return props
		}
	}
	return p.Fallback.Propensities(ctx, personID)
}

func parsePropensities(text string) (Propensities, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 {
		return Propensities{}, false
	}
	work, err1 := strconv.ParseFloat(strings.Trim(fields[0], ","), 64)
	cons, err2 := strconv.ParseFloat(strings.Trim(fields[1], ","), 64)
	if err1 != nil || err2 != nil {
		return Propensities{}, false
	}
	return Propensities{Work: clamp01(work), Consumption: clamp01(cons)}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
