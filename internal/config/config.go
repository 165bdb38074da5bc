// Package config loads the simulation configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the simulation core consumes at startup.
type Config struct {
	Seed int64 `yaml:"seed"`

	// Population.
	Persons  int `yaml:"persons"`
	Firms    int `yaml:"firms"`
	GridSize int `yaml:"grid_size"` // City grid is GridSize x GridSize cells

	// Scheduler.
	Workers         int           `yaml:"workers"`           // Goroutine pool size (0 = NumCPU)
	TicksPerPeriod  uint64        `yaml:"ticks_per_period"`  // Ticks per clearing period (sim-month)
	MaxTicks        uint64        `yaml:"max_ticks"`         // 0 = run until cancelled
	TickInterval    time.Duration `yaml:"tick_interval"`     // Wall-clock pacing, 0 = flat out
	SnapshotPeriods int           `yaml:"snapshot_periods"`  // Ledger snapshot every N periods

	// Economy.
	MaxInflationBound  float64 `yaml:"max_inflation_bound"`  // Bound on per-period wage/price drift
	LaborHours         float64 `yaml:"labor_hours"`          // Labor hours per clearing period
	ProductivityPerLabor float64 `yaml:"productivity_per_labor"` // Inventory units per labor hour
	UBIAmount          float64 `yaml:"ubi_amount"`           // Universal basic income per period
	UBIWarmupPeriods   int     `yaml:"ubi_warmup_periods"`   // Clearing periods before UBI starts
	ConsumptionGamma   float64 `yaml:"consumption_gamma"`    // Softmax temperature over prices

	// Reasoning backend.
	Reasoning ReasoningConfig `yaml:"reasoning"`

	// Observability sink.
	DBPath string `yaml:"db_path"`
}

// ReasoningConfig configures the external completion backend.
type ReasoningConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxPerMin int           `yaml:"max_per_min"`
}

// Load reads the config at path, layering it over defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a runnable configuration for a small society.
func Defaults() Config {
	return Config{
		Seed:                 42,
		Persons:              200,
		Firms:                8,
		GridSize:             64,
		Workers:              0,
		TicksPerPeriod:       720, // 30 days × 24 hourly ticks
		MaxTicks:             0,
		SnapshotPeriods:      1,
		MaxInflationBound:    0.1,
		LaborHours:           168,
		ProductivityPerLabor: 1.0,
		UBIAmount:            0,
		UBIWarmupPeriods:     3,
		ConsumptionGamma:     0.01,
		Reasoning: ReasoningConfig{
			Model:     "claude-haiku-4-5-20251001",
			Timeout:   30 * time.Second,
			MaxPerMin: 20,
		},
		DBPath: "data/polis.db",
	}
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	if c.Persons < 1 {
		return fmt.Errorf("persons must be >= 1, got %d", c.Persons)
	}
	if c.Firms < 1 {
		return fmt.Errorf("firms must be >= 1, got %d", c.Firms)
	}
	if c.GridSize < 1 {
		return fmt.Errorf("grid_size must be >= 1, got %d", c.GridSize)
	}
	if c.TicksPerPeriod == 0 {
		return fmt.Errorf("ticks_per_period must be > 0")
	}
	if c.ConsumptionGamma <= 0 {
		return fmt.Errorf("consumption_gamma must be > 0, got %g", c.ConsumptionGamma)
	}
	if c.MaxInflationBound < 0 {
		return fmt.Errorf("max_inflation_bound must be >= 0, got %g", c.MaxInflationBound)
	}
	if c.UBIWarmupPeriods < 0 {
		return fmt.Errorf("ubi_warmup_periods must be >= 0, got %d", c.UBIWarmupPeriods)
	}
	if c.Reasoning.Timeout <= 0 {
		return fmt.Errorf("reasoning timeout must be > 0")
	}
	return nil
}
