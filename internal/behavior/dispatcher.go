// Block selection. The dispatcher asks the reasoning backend to name the
// block matching the agent's free-text intent, validates the answer against
// the registered set, and falls back to the designated catch-all on any
// failure. Pure selection: no memory mutation happens here.
package behavior

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/polis/internal/reasoning"
)

// Dispatcher routes one intent to one registered block per call.
type Dispatcher struct {
	completer    reasoning.Completer
	fallbackName string

	blocks  []Block
	byName  map[string]Block // first-registered wins on name ties
	byLabel map[string]Block // action label -> block
}

// NewDispatcher creates a dispatcher. fallbackName designates the catch-all
// block, which must be registered before the first Dispatch call.
func NewDispatcher(completer reasoning.Completer, fallbackName string) *Dispatcher {
	return &Dispatcher{
		completer:    completer,
		fallbackName: normalizeLabel(fallbackName),
		byName:       make(map[string]Block),
		byLabel:      make(map[string]Block),
	}
}

// Register adds a block to the candidate set. Registration order is the tie
// break: a later block never displaces an earlier one with the same name or
// action label.
func (d *Dispatcher) Register(b Block) {
	d.blocks = append(d.blocks, b)
	name := normalizeLabel(b.Name())
	if _, taken := d.byName[name]; !taken {
		d.byName[name] = b
	}
	for _, a := range b.Actions() {
		label := normalizeLabel(a.Name)
		if _, taken := d.byLabel[label]; !taken {
			d.byLabel[label] = b
		}
	}
}

// Blocks returns the registered blocks in registration order.
func (d *Dispatcher) Blocks() []Block {
	return d.blocks
}

// Dispatch selects and executes exactly one block for the context's intent.
// It returns an error only for usage faults (empty registry, missing
// catch-all); every behavioral failure still yields exactly one Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, dc *DispatchContext) (*Outcome, error) {
	if len(d.blocks) == 0 {
		return nil, fmt.Errorf("behavior: dispatch with empty block registry")
	}
	fallback, ok := d.byName[d.fallbackName]
	if !ok {
		return nil, fmt.Errorf("behavior: catch-all block %q not registered", d.fallbackName)
	}

	block := d.selectBlock(ctx, dc, fallback)

	outcome := block.Execute(ctx, dc)
	if outcome == nil {
		// A block returning nil is a bug in the block; the causal link
		// between intent and outcome still has to hold.
		slog.Warn("block returned nil outcome", "block", block.Name(), "agent", dc.AgentID)
		outcome = failureOutcome(fmt.Sprintf("%s produced no outcome", block.Name()), 0)
	}
	return outcome, nil
}

// selectBlock resolves the intent to a registered block, falling back to the
// catch-all on reasoning failure or an unrecognized answer.
func (d *Dispatcher) selectBlock(ctx context.Context, dc *DispatchContext, fallback Block) Block {
	if len(d.blocks) == 1 {
		return d.blocks[0]
	}

	answer, err := d.completer.Complete(ctx, d.selectionSystemPrompt(), d.selectionUserPrompt(dc), 50)
	if err != nil {
		slog.Debug("block selection fell back", "agent", dc.AgentID, "error", err)
		return fallback
	}

	if b, ok := d.resolve(answer); ok {
		return b
	}
	slog.Debug("block selection answer not in registry",
		"agent", dc.AgentID, "answer", strings.TrimSpace(answer))
	return fallback
}

// resolve matches a reasoning answer against block names, then action labels.
// A verbose answer ("the work block") resolves through its individual words.
func (d *Dispatcher) resolve(answer string) (Block, bool) {
	label := normalizeLabel(answer)
	if label == "" {
		return nil, false
	}
	if b, ok := d.lookup(label); ok {
		return b, true
	}
	for _, word := range strings.Fields(strings.ToLower(answer)) {
		if b, ok := d.lookup(normalizeLabel(word)); ok {
			return b, true
		}
	}
	return nil, false
}

func (d *Dispatcher) lookup(label string) (Block, bool) {
	if label == "" {
		return nil, false
	}
	if b, ok := d.byName[label]; ok {
		return b, true
	}
	if b, ok := d.byLabel[label]; ok {
		return b, true
	}
	return nil, false
}

func (d *Dispatcher) selectionSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You route a person's intention to one capability. Available capabilities:\n")
	for _, blk := range d.blocks {
		fmt.Fprintf(&b, "- %s: %s\n", blk.Name(), blk.Description())
		for _, a := range blk.Actions() {
			fmt.Fprintf(&b, "    %s: %s\n", a.Name, a.Description)
		}
	}
	b.WriteString("\nRespond with ONLY the capability name, nothing else.")
	return b.String()
}

func (d *Dispatcher) selectionUserPrompt(dc *DispatchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intention: %s\n", dc.Intent)
	if dc.PlanLen > 0 {
		fmt.Fprintf(&b, "This is step %d of a %d-step plan.\n", dc.PlanStep+1, dc.PlanLen)
	}
	b.WriteString("Which capability handles this intention?")
	return b.String()
}

// normalizeLabel lowercases an answer and strips everything but word
// characters, so "The Work block." still matches "work".
func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
