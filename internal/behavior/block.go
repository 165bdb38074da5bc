// Package behavior provides the pluggable behavior blocks agents execute and
// the dispatcher that selects exactly one block per orchestration cycle.
package behavior

import (
	"context"
	"math/rand"
	"time"

	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/memory"
)

// ActionSpec names one action a block can satisfy, with the description the
// dispatcher shows the reasoning backend for matching.
type ActionSpec struct {
	Name        string
	Description string
}

// Outcome is the single record every dispatch cycle produces, success or
// failure. RecordID references the episodic stream entry written by the
// block, when it wrote one.
type Outcome struct {
	Success      bool
	Evaluation   string
	TimeConsumed time.Duration
	RecordID     string
	Extra        map[string]any
}

// DispatchContext is the ephemeral per-call view a block executes against:
// the agent's identity, intent, memory, and a ledger snapshot cached for the
// duration of one cycle. It is never persisted.
type DispatchContext struct {
	AgentID ledger.ActorID
	Name    string
	Intent  string

	// Plan position: step PlanStep of PlanLen.
	PlanStep int
	PlanLen  int

	Tick   uint64
	Memory *memory.Store
	Rand   *rand.Rand

	// Snapshot caches ledger reads taken at cycle start. Valid only for this
	// dispatch cycle; blocks needing authoritative values go to the ledger.
	Snapshot map[ledger.ActorID]map[ledger.Field]float64
}

// Block is one pluggable capability. Execute must always return an Outcome:
// behavioral failures (reasoning timeouts, malformed output, infeasible
// requests) become a fallback Outcome with Success=false, never an error.
type Block interface {
	Name() string
	Description() string
	Actions() []ActionSpec
	Execute(ctx context.Context, dc *DispatchContext) *Outcome
}

// failureOutcome builds the deterministic fallback Outcome for a block whose
// internal step failed.
func failureOutcome(evaluation string, consumed time.Duration) *Outcome {
	return &Outcome{
		Success:      false,
		Evaluation:   evaluation,
		TimeConsumed: consumed,
	}
}
