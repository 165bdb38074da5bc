// Plans — ordered intents with a cursor.
package agent

import (
	"context"
	"fmt"
	"strings"
)

// Plan is an ordered list of free-text intents and a cursor into it.
type Plan struct {
	Intents []string
	Cursor  int
}

// Current returns the pending intent, if any.
func (p *Plan) Current() (string, bool) {
	if p.Cursor >= len(p.Intents) {
		return "", false
	}
	return p.Intents[p.Cursor], true
}

// Advance moves the cursor past the current intent.
func (p *Plan) Advance() {
	if p.Cursor < len(p.Intents) {
		p.Cursor++
	}
}

// Exhausted reports whether every intent has been executed.
func (p *Plan) Exhausted() bool {
	return p.Cursor >= len(p.Intents)
}

// defaultIntents is the deterministic plan used when the reasoning backend
// is unavailable or returns nothing usable.
var defaultIntents = []string{
	"go to work and put in a full shift",
	"buy food and daily necessities",
	"catch up with friends and neighbors",
	"go for a walk around the city",
	"rest and take care of things at home",
}

// generatePlan asks the reasoning backend for a fresh batch of intents,
// falling back to the default rotation on any failure.
func (c *Controller) generatePlan(ctx context.Context) Plan {
	text, err := c.completer.Complete(ctx, c.planSystemPrompt(), c.planUserPrompt(), 300)
	if err == nil {
		if intents := parsePlanLines(text); len(intents) > 0 {
			return Plan{Intents: intents}
		}
	}

	// Rotate the default plan so agents don't all act in lockstep.
	start := c.rng.Intn(len(defaultIntents))
	intents := make([]string, 0, len(defaultIntents))
	for i := range defaultIntents {
		intents = append(intents, defaultIntents[(start+i)%len(defaultIntents)])
	}
	return Plan{Intents: intents}
}

func (c *Controller) planSystemPrompt() string {
	return fmt.Sprintf(
		`You are %s, a resident of a simulated city. Plan your next activities.
Respond with one intention per line, 3 to 6 lines, no numbering, each a short
first-person phrase like "go to work and put in a full shift".`, c.name)
}

func (c *Controller) planUserPrompt() string {
	var b strings.Builder
	b.WriteString("What do you intend to do next?\n")
	if snap, ok := c.snapshot[c.id]; ok {
		fmt.Fprintf(&b, "You have %.0f in currency; this period you have spent %.0f of a %.0f budget.\n",
			snap["currency"], snap["consumption"], snap["budget"])
	}
	return b.String()
}

// parsePlanLines extracts intents from a line-per-intent completion.
func parsePlanLines(text string) []string {
	var intents []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		intents = append(intents, line)
		if len(intents) == 6 {
			break
		}
	}
	return intents
}
