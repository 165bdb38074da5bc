// Command polisim runs the Polis agent society simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/polis/internal/agent"
	"github.com/talgya/polis/internal/behavior"
	"github.com/talgya/polis/internal/config"
	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/market"
	"github.com/talgya/polis/internal/memory"
	"github.com/talgya/polis/internal/persistence"
	"github.com/talgya/polis/internal/reasoning"
	"github.com/talgya/polis/internal/route"
	"github.com/talgya/polis/internal/scheduler"
)

// firmIDBase keeps firm IDs disjoint from person IDs.
const firmIDBase = 10_000

var residentNames = []string{
	"Ada", "Bela", "Cass", "Dara", "Eli", "Fern", "Gus", "Hana",
	"Iris", "Jun", "Kai", "Lena", "Milo", "Nora", "Otis", "Pia",
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (empty = defaults)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Polis — Agent Society Simulation",
		"persons", cfg.Persons,
		"firms", cfg.Firms,
		"seed", cfg.Seed,
	)

	// ── Observability sink ────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	sink, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer sink.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Reasoning backend ─────────────────────────────────────────────
	apiKey := cfg.Reasoning.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	client := reasoning.NewClient(apiKey, cfg.Reasoning.Model, cfg.Reasoning.Timeout, cfg.Reasoning.MaxPerMin)
	if client.Enabled() {
		slog.Info("reasoning backend enabled", "model", cfg.Reasoning.Model)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — agents use deterministic fallbacks")
	}

	// ── Economy ───────────────────────────────────────────────────────
	led := ledger.New()
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < cfg.Firms; i++ {
		id := ledger.ActorID(firmIDBase + i)
		err := led.AddActor(id, ledger.KindFirm, map[ledger.Field]float64{
			ledger.FieldPrice:     8 + rng.Float64()*4,
			ledger.FieldInventory: 100,
			ledger.FieldCurrency:  10_000,
		})
		if err != nil {
			slog.Error("failed to seed firm", "id", id, "error", err)
			os.Exit(1)
		}
	}
	for i := 0; i < cfg.Persons; i++ {
		id := ledger.ActorID(i + 1)
		err := led.AddActor(id, ledger.KindPerson, map[ledger.Field]float64{
			ledger.FieldCurrency: 800 + rng.Float64()*400,
			ledger.FieldSkill:    8 + rng.Float64()*4,
		})
		if err != nil {
			slog.Error("failed to seed person", "id", id, "error", err)
			os.Exit(1)
		}
		if err := led.Hire(ledger.ActorID(firmIDBase+i%cfg.Firms), id); err != nil {
			slog.Error("failed to hire person", "id", id, "error", err)
			os.Exit(1)
		}
	}

	// ── City grid and behavior blocks ─────────────────────────────────
	planner := route.NewGridPlanner(cfg.GridSize, cfg.Seed)

	dispatcher := behavior.NewDispatcher(client, "other")
	dispatcher.Register(behavior.NewWorkBlock(led, client))
	dispatcher.Register(behavior.NewConsumeBlock(led, cfg.ConsumptionGamma))
	dispatcher.Register(behavior.NewMoveBlock(planner, cfg.GridSize))
	dispatcher.Register(behavior.NewSocialBlock(client))
	dispatcher.Register(behavior.NewOtherBlock())

	// ── Agents ────────────────────────────────────────────────────────
	agents := make([]scheduler.Agent, 0, cfg.Persons)
	stores := make(map[ledger.ActorID]*memory.Store, cfg.Persons)
	for _, id := range led.Actors(ledger.KindPerson) {
		name := fmt.Sprintf("%s %d", residentNames[int(id)%len(residentNames)], id)
		ctrl, err := agent.New(id, name, led, dispatcher, client, sink, cfg.Seed+int64(id))
		if err != nil {
			slog.Error("failed to create agent", "id", id, "error", err)
			os.Exit(1)
		}
		planner.Position(int64(id))
		agents = append(agents, ctrl)
		stores[id] = ctrl.Memory()
	}

	// ── Market clearing ───────────────────────────────────────────────
	var policy market.Policy = &market.MemoryPolicy{
		LaborHours: cfg.LaborHours,
		Stores:     stores,
	}
	if client.Enabled() {
		policy = &market.ReasoningPolicy{Completer: client, Fallback: policy}
	}
	engine := market.New(led, market.Config{
		MaxInflationBound:    cfg.MaxInflationBound,
		LaborHours:           cfg.LaborHours,
		ProductivityPerLabor: cfg.ProductivityPerLabor,
		UBIAmount:            cfg.UBIAmount,
		UBIWarmupPeriods:     cfg.UBIWarmupPeriods,
	}, policy, cfg.Seed+1)

	// ── Scheduler ─────────────────────────────────────────────────────
	sched := scheduler.New(agents, engine, led, sink, scheduler.Config{
		Workers:         cfg.Workers,
		TicksPerPeriod:  cfg.TicksPerPeriod,
		MaxTicks:        cfg.MaxTicks,
		TickInterval:    cfg.TickInterval,
		SnapshotPeriods: cfg.SnapshotPeriods,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nPolis is alive: %s residents, %s firms on a %dx%d grid.\n",
		humanize.Comma(int64(cfg.Persons)), humanize.Comma(int64(cfg.Firms)),
		cfg.GridSize, cfg.GridSize)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	// Final snapshot on shutdown.
	period := sched.Tick() / cfg.TicksPerPeriod
	if err := sink.SaveSnapshot(period, led.Snapshot()); err != nil {
		slog.Error("final snapshot failed", "error", err)
	}
	fmt.Println("Simulation stopped. Final snapshot saved.")
}
