// Package agent drives one agent's per-tick orchestration cycle:
// PreHook -> Dispatching -> Executing -> PostHook, returning to Idle.
// The controller owns the agent's memory store exclusively; the ledger is the
// only state it shares with anyone else.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/polis/internal/behavior"
	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/memory"
	"github.com/talgya/polis/internal/reasoning"
)

// Phase is the cycle state. Terminal state per tick is Idle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePreHook
	PhaseDispatching
	PhaseExecuting
	PhasePostHook
)

// Recorder receives outcome records for observability. Implementations must
// never block the caller.
type Recorder interface {
	Record(agentID int64, topic, description string, timestamp uint64)
}

// Controller runs one agent.
type Controller struct {
	id        ledger.ActorID
	name      string
	mem       *memory.Store
	led       *ledger.Ledger
	dispatcher *behavior.Dispatcher
	completer reasoning.Completer
	recorder  Recorder
	rng       *rand.Rand

	plan           Plan
	phase          Phase
	tick           uint64
	lastActiveTick uint64
	acted          bool
	snapshot       map[ledger.ActorID]map[ledger.Field]float64
}

// planCooldownTicks is how long an agent idles after finishing a plan before
// drawing up the next one.
const planCooldownTicks = 2

// DefaultSchema declares the state attributes every agent's memory carries.
func DefaultSchema() []memory.AttributeSpec {
	return []memory.AttributeSpec{
		{Name: "work_hours", Kind: memory.KindNumber},
		{Name: "work_propensity", Kind: memory.KindNumber, Default: 0.5},
		{Name: "consume_propensity", Kind: memory.KindNumber, Default: 0.3},
		{Name: "goals", Kind: memory.KindList},
	}
}

// New creates a controller and its memory store. The seed makes the agent's
// private randomness reproducible.
func New(id ledger.ActorID, name string, led *ledger.Ledger, d *behavior.Dispatcher,
	completer reasoning.Completer, recorder Recorder, seed int64) (*Controller, error) {

	c := &Controller{
		id:         id,
		name:       name,
		led:        led,
		dispatcher: d,
		completer:  completer,
		recorder:   recorder,
		rng:        rand.New(rand.NewSource(seed)),
	}
	mem, err := memory.NewStore(DefaultSchema(), func() uint64 { return c.tick })
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	c.mem = mem
	return c, nil
}

// ID returns the agent's ledger identity.
func (c *Controller) ID() ledger.ActorID { return c.id }

// Memory exposes the agent's store to the clearing engine's propensity
// policy; nothing else outside the agent should touch it.
func (c *Controller) Memory() *memory.Store { return c.mem }

// Phase returns the current cycle phase (Idle between ticks).
func (c *Controller) Phase() Phase { return c.phase }

// Step runs one orchestration cycle. It returns (nil, nil) when the agent
// has no pending intent and the tick is skipped. Exactly one Outcome is
// produced otherwise, even when every fallible collaborator fails.
func (c *Controller) Step(ctx context.Context, tick uint64) (*behavior.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.tick = tick

	// PreHook: periodic bookkeeping before dispatch — refresh the cycle's
	// ledger snapshot and replace an exhausted plan.
	c.phase = PhasePreHook
	c.refreshSnapshot()
	if c.plan.Exhausted() {
		if c.acted && tick < c.lastActiveTick+planCooldownTicks {
			// No pending intent: the tick is skipped without consuming a turn.
			c.phase = PhaseIdle
			return nil, nil
		}
		c.plan = c.generatePlan(ctx)
	}
	intent, ok := c.plan.Current()
	if !ok {
		c.phase = PhaseIdle
		return nil, nil
	}

	c.phase = PhaseDispatching
	dc := &behavior.DispatchContext{
		AgentID:  c.id,
		Name:     c.name,
		Intent:   intent,
		PlanStep: c.plan.Cursor,
		PlanLen:  len(c.plan.Intents),
		Tick:     tick,
		Memory:   c.mem,
		Rand:     c.rng,
		Snapshot: c.snapshot,
	}

	c.phase = PhaseExecuting
	outcome, err := c.dispatcher.Dispatch(ctx, dc)
	if err != nil {
		// Usage error: abort the cycle and surface to the scheduler.
		c.phase = PhaseIdle
		return nil, fmt.Errorf("agent %d: %w", c.id, err)
	}

	// PostHook: advance the plan and hand the outcome to observability.
	c.phase = PhasePostHook
	c.plan.Advance()
	c.lastActiveTick = tick
	c.acted = true
	if c.recorder != nil {
		c.recorder.Record(int64(c.id), "outcome",
			fmt.Sprintf("intent=%q success=%t eval=%q", intent, outcome.Success, outcome.Evaluation),
			tick)
	}
	slog.Debug("agent cycle complete",
		"agent", c.id, "tick", tick, "intent", intent, "success", outcome.Success)

	c.phase = PhaseIdle
	return outcome, nil
}

// refreshSnapshot caches the agent's own record plus every firm's price and
// inventory. The snapshot is valid for this cycle only.
func (c *Controller) refreshSnapshot() {
	ids := append([]ledger.ActorID{c.id}, c.led.Actors(ledger.KindFirm)...)
	snap, err := c.led.BatchGet(ids, []ledger.Field{
		ledger.FieldCurrency, ledger.FieldBudget, ledger.FieldConsumption,
		ledger.FieldPrice, ledger.FieldInventory,
	})
	if err != nil {
		slog.Warn("snapshot refresh failed", "agent", c.id, "error", err)
		return
	}
	c.snapshot = snap
}
