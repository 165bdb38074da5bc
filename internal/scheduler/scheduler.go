// Package scheduler drives the simulation: each tick fans agent cycles out
// over a worker pool, waits for every cycle to finish, and only then runs
// market clearing at period boundaries. The barrier guarantees no agent
// mutates the ledger while the clearing engine holds it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/polis/internal/behavior"
	"github.com/talgya/polis/internal/ledger"
)

// Agent is one schedulable agent cycle.
type Agent interface {
	ID() ledger.ActorID
	Step(ctx context.Context, tick uint64) (*behavior.Outcome, error)
}

// Clearer runs the periodic market clearing pass.
type Clearer interface {
	RunClearing(ctx context.Context, period uint64) error
}

// SnapshotSaver receives periodic ledger snapshots. Optional.
type SnapshotSaver interface {
	SaveSnapshot(period uint64, snaps []ledger.ActorSnapshot) error
}

// Config holds the loop parameters.
type Config struct {
	Workers         int           // Goroutine pool size (0 = NumCPU)
	TicksPerPeriod  uint64        // Ticks per clearing period
	MaxTicks        uint64        // 0 = run until the context is cancelled
	TickInterval    time.Duration // Wall-clock pacing, 0 = flat out
	SnapshotPeriods int           // Snapshot every N periods (0 = never)
}

// Scheduler owns the tick loop.
type Scheduler struct {
	agents  []Agent
	clearer Clearer
	led     *ledger.Ledger
	sink    SnapshotSaver
	cfg     Config

	tick uint64
}

// New creates a scheduler. sink may be nil.
func New(agents []Agent, clearer Clearer, led *ledger.Ledger, sink SnapshotSaver, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.TicksPerPeriod == 0 {
		cfg.TicksPerPeriod = 1
	}
	return &Scheduler{agents: agents, clearer: clearer, led: led, sink: sink, cfg: cfg}
}

// Tick returns the last completed tick.
func (s *Scheduler) Tick() uint64 { return s.tick }

// Run executes the loop until MaxTicks or cancellation. It returns the first
// usage error any agent cycle surfaces; reasoning failures never reach here
// because the dispatch layer absorbs them.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler started",
		"agents", len(s.agents),
		"workers", s.cfg.Workers,
		"ticks_per_period", s.cfg.TicksPerPeriod,
	)

	for tick := uint64(1); s.cfg.MaxTicks == 0 || tick <= s.cfg.MaxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			slog.Info("scheduler stopped", "tick", s.tick)
			return err
		}
		start := time.Now()

		if err := s.runTick(ctx, tick); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		s.tick = tick

		// All agent cycles are idle past this point; clearing owns the ledger.
		if tick%s.cfg.TicksPerPeriod == 0 {
			period := tick / s.cfg.TicksPerPeriod
			if err := s.clearer.RunClearing(ctx, period); err != nil {
				return fmt.Errorf("clearing period %d: %w", period, err)
			}
			s.snapshot(period)
			s.logPeriod(period)
		}

		if s.cfg.TickInterval > 0 {
			if elapsed := time.Since(start); elapsed < s.cfg.TickInterval {
				select {
				case <-time.After(s.cfg.TickInterval - elapsed):
				case <-ctx.Done():
				}
			}
		}
	}

	slog.Info("scheduler finished", "tick", s.tick)
	return nil
}

// runTick fans one tick out over the worker pool and waits for the barrier.
func (s *Scheduler) runTick(ctx context.Context, tick uint64) error {
	jobs := make(chan Agent, len(s.agents))
	for _, a := range s.agents {
		jobs <- a
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		acted    int
	)
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				out, err := a.Step(ctx, tick)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("agent %d: %w", a.ID(), err)
				}
				if out != nil {
					acted++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	slog.Debug("tick complete", "tick", tick, "acted", acted, "skipped", len(s.agents)-acted)
	return nil
}

func (s *Scheduler) snapshot(period uint64) {
	if s.sink == nil || s.cfg.SnapshotPeriods <= 0 || period%uint64(s.cfg.SnapshotPeriods) != 0 {
		return
	}
	if err := s.sink.SaveSnapshot(period, s.led.Snapshot()); err != nil {
		slog.Warn("snapshot save failed", "period", period, "error", err)
	}
}

// logPeriod emits the period's economy summary.
func (s *Scheduler) logPeriod(period uint64) {
	var money, prices float64
	firms := 0
	for _, snap := range s.led.Snapshot() {
		money += snap.Fields[ledger.FieldCurrency]
		if snap.Kind == ledger.KindFirm {
			prices += snap.Fields[ledger.FieldPrice]
			firms++
		}
	}
	avgPrice := 0.0
	if firms > 0 {
		avgPrice = prices / float64(firms)
	}
	slog.Info("period complete",
		"period", period,
		"tick", s.tick,
		"money_supply", humanize.Commaf(money),
		"avg_price", fmt.Sprintf("%.2f", avgPrice),
	)
}
