// Package route provides the positioning and routing capability consumed by
// movement behavior blocks. The grid planner is a self-contained stand-in for
// an external geospatial service: agent positions on an integer grid with a
// procedural travel-cost field.
package route

import (
	"errors"
	"fmt"
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// ErrUnknownAgent is returned when an agent has no recorded position.
var ErrUnknownAgent = errors.New("route: unknown agent")

// Point is a grid location.
type Point struct {
	X int
	Y int
}

// Planner is the routing/positioning capability.
type Planner interface {
	// Position returns an agent's current location.
	Position(agentID int64) (Point, error)
	// SetPosition records an agent's location.
	SetPosition(agentID int64, p Point)
	// Route returns the step sequence from one point to another, including
	// the destination and excluding the origin.
	Route(from, to Point) ([]Point, error)
	// TravelCost returns the summed traversal cost of a path.
	TravelCost(path []Point) float64
}

// GridPlanner routes on a bounded square grid. Per-cell traversal cost comes
// from a normalized simplex noise field, deterministic from the seed.
type GridPlanner struct {
	size  int
	noise opensimplex.Noise

	mu        sync.RWMutex
	positions map[int64]Point
}

// NewGridPlanner creates a size×size planner.
func NewGridPlanner(size int, seed int64) *GridPlanner {
	if size < 1 {
		size = 1
	}
	return &GridPlanner{
		size:      size,
		noise:     opensimplex.NewNormalized(seed),
		positions: make(map[int64]Point),
	}
}

// Position returns an agent's location, assigning a deterministic home cell
// on first use so every agent always has a position.
func (g *GridPlanner) Position(agentID int64) (Point, error) {
	g.mu.RLock()
	p, ok := g.positions[agentID]
	g.mu.RUnlock()
	if ok {
		return p, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.positions[agentID]; ok {
		return p, nil
	}
	home := Point{
		X: int(agentID*7919) % g.size,
		Y: int(agentID*104729) % g.size,
	}
	if home.X < 0 {
		home.X += g.size
	}
	if home.Y < 0 {
		home.Y += g.size
	}
	g.positions[agentID] = home
	return home, nil
}

// SetPosition records an agent's location, clamped to the grid.
func (g *GridPlanner) SetPosition(agentID int64, p Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[agentID] = g.clamp(p)
}

// Route walks a straight staircase line from one point to another.
func (g *GridPlanner) Route(from, to Point) ([]Point, error) {
	from, to = g.clamp(from), g.clamp(to)
	if from == to {
		return nil, nil
	}

	var path []Point
	cur := from
	for cur != to {
		if cur.X != to.X {
			cur.X += sign(to.X - cur.X)
		}
		if cur.Y != to.Y {
			cur.Y += sign(to.Y - cur.Y)
		}
		path = append(path, cur)
		if len(path) > 2*g.size {
			return nil, fmt.Errorf("route: no path from %v to %v", from, to)
		}
	}
	return path, nil
}

// TravelCost sums per-cell traversal costs along a path. Cost per cell is
// 1 plus the noise field value, so rough terrain slows travel.
func (g *GridPlanner) TravelCost(path []Point) float64 {
	total := 0.0
	for _, p := range path {
		total += 1 + g.noise.Eval2(float64(p.X)*0.1, float64(p.Y)*0.1)
	}
	return total
}

// Distance is the Chebyshev distance between two points, matching the
// staircase routes the planner produces.
func Distance(a, b Point) int {
	return int(math.Max(math.Abs(float64(a.X-b.X)), math.Abs(float64(a.Y-b.Y))))
}

func (g *GridPlanner) clamp(p Point) Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X >= g.size {
		p.X = g.size - 1
	}
	if p.Y >= g.size {
		p.Y = g.size - 1
	}
	return p
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
