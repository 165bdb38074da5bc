// Consumption block — spends a person's remaining period budget across firms.
package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/polis/internal/ledger"
)

// ConsumeBlock allocates a person's consumption budget over firms by the
// price softmax and commits every related mutation as one atomic batch.
type ConsumeBlock struct {
	led   *ledger.Ledger
	gamma float64
}

// NewConsumeBlock creates the consumption block. gamma is the softmax
// temperature over prices (> 0).
func NewConsumeBlock(led *ledger.Ledger, gamma float64) *ConsumeBlock {
	return &ConsumeBlock{led: led, gamma: gamma}
}

// budgetState reads the person's budget and period consumption from the
// cycle snapshot, sparing a ledger round trip; within one cycle only the
// person's own actions touch these fields, so the snapshot is current. A
// context without a snapshot falls back to the ledger.
func (b *ConsumeBlock) budgetState(dc *DispatchContext) (budget, spent float64, err error) {
	if fields, ok := dc.Snapshot[dc.AgentID]; ok {
		bgt, okB := fields[ledger.FieldBudget]
		sp, okS := fields[ledger.FieldConsumption]
		if okB && okS {
			return bgt, sp, nil
		}
	}
	budget, err = b.led.Get(dc.AgentID, ledger.FieldBudget)
	if err != nil {
		return 0, 0, err
	}
	spent, err = b.led.Get(dc.AgentID, ledger.FieldConsumption)
	return budget, spent, err
}

func (b *ConsumeBlock) Name() string { return "consume" }

func (b *ConsumeBlock) Description() string {
	return "buy goods from firms to satisfy daily needs"
}

func (b *ConsumeBlock) Actions() []ActionSpec {
	return []ActionSpec{
		{Name: "shop", Description: "purchase goods within the monthly budget"},
		{Name: "eat", Description: "buy and consume food"},
	}
}

// Execute spends min(remaining budget, nothing more) across all firms.
// Realized transactions are capped by each firm's inventory at commit time;
// unmet demand is dropped, and only the realized spend is recorded.
func (b *ConsumeBlock) Execute(ctx context.Context, dc *DispatchContext) *Outcome {
	person := dc.AgentID

	budget, spent, err := b.budgetState(dc)
	if err != nil {
		return failureOutcome(fmt.Sprintf("consumption aborted: %v", err), 0)
	}
	remaining := budget - spent
	if remaining <= 0 {
		return failureOutcome("consumption budget exhausted for this period", 10*time.Minute)
	}

	firms := b.led.Actors(ledger.KindFirm)
	if len(firms) == 0 {
		return failureOutcome("no firms available to buy from", 10*time.Minute)
	}

	var (
		totalSpend float64
		totalUnits int
	)
	err = b.led.Apply(func(tx *ledger.Tx) error {
		prices := make([]float64, len(firms))
		for i, f := range firms {
			p, err := tx.Get(f, ledger.FieldPrice)
			if err != nil {
				return err
			}
			prices[i] = p
		}

		weights := AllocationWeights(prices, b.gamma)
		units := AllocationUnits(remaining, prices, weights)

		for i, f := range firms {
			if units[i] == 0 {
				continue
			}
			// Demand records what was requested, before the inventory cap.
			if _, err := tx.Delta(f, ledger.FieldDemand, float64(units[i])); err != nil {
				return err
			}
			realizedDelta, err := tx.DeltaClamped(f, ledger.FieldInventory, -float64(units[i]))
			if err != nil {
				return err
			}
			realized := int(-realizedDelta + 0.5)
			if realized == 0 {
				continue
			}
			spend := float64(realized) * prices[i]
			if _, err := tx.Delta(f, ledger.FieldSales, float64(realized)); err != nil {
				return err
			}
			if _, err := tx.Delta(f, ledger.FieldCurrency, spend); err != nil {
				return err
			}
			if _, err := tx.Delta(person, ledger.FieldCurrency, -spend); err != nil {
				return err
			}
			// Consumption accumulates realized spend only, never requested.
			if _, err := tx.Delta(person, ledger.FieldConsumption, spend); err != nil {
				return err
			}
			totalSpend += spend
			totalUnits += realized
		}
		return nil
	})
	if err != nil {
		return failureOutcome(fmt.Sprintf("consumption batch rejected: %v", err), 10*time.Minute)
	}

	eval := fmt.Sprintf("bought %d units across %d firms for %.2f (budget %.2f)",
		totalUnits, len(firms), totalSpend, remaining)
	if totalUnits == 0 {
		eval = "went shopping but found nothing in stock"
	}

	recordID, _ := dc.Memory.StreamAppend("consume", eval)
	return &Outcome{
		Success:      totalUnits > 0,
		Evaluation:   eval,
		TimeConsumed: time.Hour,
		RecordID:     recordID,
		Extra: map[string]any{
			"spend": totalSpend,
			"units": totalUnits,
		},
	}
}
