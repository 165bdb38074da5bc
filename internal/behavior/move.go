// Move block — relocation via the routing capability.
package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/polis/internal/route"
)

// MoveBlock walks an agent to a new grid location. The only external
// collaborator is the route planner; no reasoning call is needed, so the
// block is fully deterministic given the agent's RNG.
type MoveBlock struct {
	planner  route.Planner
	gridSize int
}

// NewMoveBlock creates the movement block.
func NewMoveBlock(planner route.Planner, gridSize int) *MoveBlock {
	return &MoveBlock{planner: planner, gridSize: gridSize}
}

func (b *MoveBlock) Name() string { return "move" }

func (b *MoveBlock) Description() string {
	return "travel to another place in the city"
}

func (b *MoveBlock) Actions() []ActionSpec {
	return []ActionSpec{
		{Name: "commute", Description: "travel between home and workplace"},
		{Name: "wander", Description: "go somewhere new"},
	}
}

func (b *MoveBlock) Execute(ctx context.Context, dc *DispatchContext) *Outcome {
	from, err := b.planner.Position(int64(dc.AgentID))
	if err != nil {
		return failureOutcome(fmt.Sprintf("position unavailable: %v", err), 10*time.Minute)
	}

	to := route.Point{X: dc.Rand.Intn(b.gridSize), Y: dc.Rand.Intn(b.gridSize)}
	path, err := b.planner.Route(from, to)
	if err != nil {
		eval := fmt.Sprintf("could not find a route to (%d,%d)", to.X, to.Y)
		recordID, _ := dc.Memory.StreamAppend("move", eval)
		out := failureOutcome(eval, 10*time.Minute)
		out.RecordID = recordID
		return out
	}

	b.planner.SetPosition(int64(dc.AgentID), to)
	cost := b.planner.TravelCost(path)
	consumed := time.Duration(cost*6) * time.Minute

	eval := fmt.Sprintf("traveled %d cells to (%d,%d)", len(path), to.X, to.Y)
	recordID, _ := dc.Memory.StreamAppend("move", eval)
	return &Outcome{
		Success:      true,
		Evaluation:   eval,
		TimeConsumed: consumed,
		RecordID:     recordID,
		Extra:        map[string]any{"distance": len(path)},
	}
}
