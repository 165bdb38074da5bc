// Catch-all block — the dispatcher's designated default. Handles any intent
// no specialized block claims, so it never fails hard.
package behavior

import (
	"context"
	"fmt"
	"time"
)

var idleActivities = []string{
	"rested at home",
	"took a slow walk around the block",
	"tidied up and sorted out personal affairs",
	"read for a while",
	"watched the street from the window",
}

// OtherBlock satisfies unmatched intents with a low-stakes idle activity.
type OtherBlock struct{}

// NewOtherBlock creates the catch-all block.
func NewOtherBlock() *OtherBlock { return &OtherBlock{} }

func (b *OtherBlock) Name() string { return "other" }

func (b *OtherBlock) Description() string {
	return "anything not covered by another capability: rest, errands, downtime"
}

func (b *OtherBlock) Actions() []ActionSpec {
	return []ActionSpec{
		{Name: "rest", Description: "take a break and recover"},
		{Name: "idle", Description: "pass the time"},
	}
}

func (b *OtherBlock) Execute(ctx context.Context, dc *DispatchContext) *Outcome {
	activity := idleActivities[dc.Rand.Intn(len(idleActivities))]
	eval := fmt.Sprintf("%s (intention was: %s)", activity, dc.Intent)
	recordID, _ := dc.Memory.StreamAppend("other", eval)
	return &Outcome{
		Success:      true,
		Evaluation:   eval,
		TimeConsumed: 30 * time.Minute,
		RecordID:     recordID,
	}
}
