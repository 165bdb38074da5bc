// Work block — a shift at the agent's employer.
package behavior

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/reasoning"
)

const shiftHours = 8

// WorkBlock logs a work shift. Hours accumulate in memory and feed the
// clearing engine's work propensity; income itself is settled at clearing,
// so the block touches no ledger fields.
type WorkBlock struct {
	led       *ledger.Ledger
	completer reasoning.Completer
}

// NewWorkBlock creates the work block.
func NewWorkBlock(led *ledger.Ledger, completer reasoning.Completer) *WorkBlock {
	return &WorkBlock{led: led, completer: completer}
}

func (b *WorkBlock) Name() string { return "work" }

func (b *WorkBlock) Description() string {
	return "spend a shift working at the employer for wages"
}

func (b *WorkBlock) Actions() []ActionSpec {
	return []ActionSpec{
		{Name: "shift", Description: "work a regular shift"},
		{Name: "overtime", Description: "work extra hours for more pay"},
	}
}

func (b *WorkBlock) Execute(ctx context.Context, dc *DispatchContext) *Outcome {
	consumed := time.Duration(shiftHours) * time.Hour

	firmID, employed := b.led.EmployerOf(dc.AgentID)
	if !employed {
		eval := "looked for work but has no employer this period"
		recordID, _ := dc.Memory.StreamAppend("work", eval)
		out := failureOutcome(eval, time.Hour)
		out.RecordID = recordID
		return out
	}

	if err := accumulateHours(dc, shiftHours); err != nil {
		// Missing work_hours attribute is a programming error in the agent's
		// schema, not a behavioral failure.
		return failureOutcome(fmt.Sprintf("work bookkeeping failed: %v", err), 0)
	}

	eval, reflected := b.reflect(ctx, dc, firmID)
	recordID, _ := dc.Memory.StreamAppend("work", eval)
	return &Outcome{
		Success:      reflected,
		Evaluation:   eval,
		TimeConsumed: consumed,
		RecordID:     recordID,
		Extra:        map[string]any{"hours": float64(shiftHours)},
	}
}

// reflect asks the reasoning backend for a one-line shift summary; a failed
// call falls back to a deterministic evaluation with Success=false.
func (b *WorkBlock) reflect(ctx context.Context, dc *DispatchContext, firmID ledger.ActorID) (string, bool) {
	system := fmt.Sprintf(
		"You are %s, an employee at firm %d. Summarize your work shift in one short sentence, first person.",
		dc.Name, firmID)
	user := fmt.Sprintf("Intention: %s. You worked %d hours today.", dc.Intent, shiftHours)

	text, err := b.completer.Complete(ctx, system, user, 60)
	if err != nil || strings.TrimSpace(text) == "" {
		return fmt.Sprintf("worked an %d-hour shift at firm %d", shiftHours, firmID), false
	}
	return strings.TrimSpace(text), true
}

func accumulateHours(dc *DispatchContext, hours float64) error {
	cur, err := dc.Memory.Number("work_hours")
	if err != nil {
		return err
	}
	return dc.Memory.Set("work_hours", cur+hours)
}
