// Social block — conversations and relationship upkeep.
package behavior

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talgya/polis/internal/memory"
	"github.com/talgya/polis/internal/reasoning"
)

// SocialBlock holds a short reasoning-generated exchange and records it in
// the episodic stream. Past social memories give the conversation context.
type SocialBlock struct {
	completer reasoning.Completer
}

// NewSocialBlock creates the social block.
func NewSocialBlock(completer reasoning.Completer) *SocialBlock {
	return &SocialBlock{completer: completer}
}

func (b *SocialBlock) Name() string { return "socialize" }

func (b *SocialBlock) Description() string {
	return "talk with neighbors, friends or colleagues"
}

func (b *SocialBlock) Actions() []ActionSpec {
	return []ActionSpec{
		{Name: "chat", Description: "have a casual conversation"},
		{Name: "visit", Description: "spend time with someone"},
	}
}

func (b *SocialBlock) Execute(ctx context.Context, dc *DispatchContext) *Outcome {
	// Pull a few past social moments as conversation context.
	var past []string
	for r := range dc.Memory.StreamQuery(memory.Query{Topic: "social", Limit: 3}) {
		past = append(past, r.Description)
	}

	eval, ok := b.converse(ctx, dc, past)
	recordID, _ := dc.Memory.StreamAppend("social", eval)
	return &Outcome{
		Success:      ok,
		Evaluation:   eval,
		TimeConsumed: time.Hour,
		RecordID:     recordID,
	}
}

func (b *SocialBlock) converse(ctx context.Context, dc *DispatchContext, past []string) (string, bool) {
	system := fmt.Sprintf(
		"You are %s. Describe in one short first-person sentence a social moment you just had.", dc.Name)
	var user strings.Builder
	fmt.Fprintf(&user, "Intention: %s\n", dc.Intent)
	if len(past) > 0 {
		user.WriteString("Recent social memories:\n")
		for _, p := range past {
			fmt.Fprintf(&user, "- %s\n", p)
		}
	}

	text, err := b.completer.Complete(ctx, system, user.String(), 60)
	if err != nil || strings.TrimSpace(text) == "" {
		return "spent an hour catching up with a neighbor", false
	}
	return strings.TrimSpace(text), true
}
