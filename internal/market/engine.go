// Package market clears the economy once per period: wage and price
// adjustment from the demand/supply imbalance, income settlement, optional
// universal basic income, and accumulator resets. The scheduler invokes it
// only at tick barriers, so no agent cycle is mutating the same actors.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/polis/internal/ledger"
)

// epsilon guards the changeRate denominator against division by zero when a
// firm saw neither demand nor supply.
const epsilon = 1e-9

// Config holds the clearing parameters.
type Config struct {
	MaxInflationBound    float64 // Bound on the per-period wage/price draw
	LaborHours           float64 // Labor hours per period
	ProductivityPerLabor float64 // Inventory units produced per labor hour
	UBIAmount            float64 // Per-person payment once warmed up
	UBIWarmupPeriods     int     // Periods before UBI starts
}

// Engine runs the periodic clearing pass over the ledger.
type Engine struct {
	led    *ledger.Ledger
	cfg    Config
	policy Policy
	rng    *rand.Rand

	lastCleared uint64
	cleared     bool
}

// New creates a clearing engine. The seed fixes the wage/price draws.
func New(led *ledger.Ledger, cfg Config, policy Policy, seed int64) *Engine {
	return &Engine{
		led:    led,
		cfg:    cfg,
		policy: policy,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// RunClearing performs one clearing pass for the given period number.
// Calling it twice for the same period is a no-op: demand and sales reset
// exactly once per boundary.
func (e *Engine) RunClearing(ctx context.Context, period uint64) error {
	if e.cleared && period <= e.lastCleared {
		slog.Debug("clearing already ran for period", "period", period)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	firms := e.led.Actors(ledger.KindFirm)
	for _, firmID := range firms {
		if err := e.clearFirm(firmID); err != nil {
			return fmt.Errorf("market: firm %d: %w", firmID, err)
		}
	}

	persons := e.led.Actors(ledger.KindPerson)
	var totalIncome float64
	for _, personID := range persons {
		income, err := e.settlePerson(ctx, personID, period)
		if err != nil {
			return fmt.Errorf("market: person %d: %w", personID, err)
		}
		totalIncome += income
	}

	e.lastCleared = period
	e.cleared = true
	slog.Info("market clearing complete",
		"period", period,
		"firms", len(firms),
		"persons", len(persons),
		"total_income", fmt.Sprintf("%.0f", totalIncome),
	)
	return nil
}

// clearFirm adjusts wages and price from the period's demand/supply
// imbalance and resets the accumulators. All of the firm's updates commit in
// one batch, so nothing reads the firm half-cleared.
func (e *Engine) clearFirm(firmID ledger.ActorID) error {
	employees, err := e.led.Employees(firmID)
	if err != nil {
		return err
	}

	return e.led.Apply(func(tx *ledger.Tx) error {
		demand, err := tx.Get(firmID, ledger.FieldDemand)
		if err != nil {
			return err
		}
		sales, err := tx.Get(firmID, ledger.FieldSales)
		if err != nil {
			return err
		}
		inventory, err := tx.Get(firmID, ledger.FieldInventory)
		if err != nil {
			return err
		}

		supply := sales + inventory
		denom := max(demand, supply, epsilon)
		changeRate := (demand - supply) / denom

		// Independent draws for wage and price, each in
		// [0, changeRate·maxInflationBound] (a negative rate deflates).
		wageAdj := e.rng.Float64() * changeRate * e.cfg.MaxInflationBound
		priceAdj := e.rng.Float64() * changeRate * e.cfg.MaxInflationBound

		for _, personID := range employees {
			skill, err := tx.Get(personID, ledger.FieldSkill)
			if err != nil {
				return err
			}
			if err := tx.Set(personID, ledger.FieldSkill, skill*(1+wageAdj)); err != nil {
				return err
			}
		}

		price, err := tx.Get(firmID, ledger.FieldPrice)
		if err != nil {
			return err
		}
		newPrice := price * (1 + priceAdj)
		if newPrice < 1 {
			newPrice = 1
		}
		if err := tx.Set(firmID, ledger.FieldPrice, newPrice); err != nil {
			return err
		}

		if err := tx.Set(firmID, ledger.FieldDemand, 0); err != nil {
			return err
		}
		return tx.Set(firmID, ledger.FieldSales, 0)
	})
}

// settlePerson pays the period's income (plus UBI once warmed up), resets
// the consumption accumulator, sets next period's budget, and credits the
// employer's inventory with the person's production.
func (e *Engine) settlePerson(ctx context.Context, personID ledger.ActorID, period uint64) (float64, error) {
	props := e.policy.Propensities(ctx, personID)
	employer, employed := e.led.EmployerOf(personID)

	var income float64
	err := e.led.Apply(func(tx *ledger.Tx) error {
		skill, err := tx.Get(personID, ledger.FieldSkill)
		if err != nil {
			return err
		}
		income = props.Work * e.cfg.LaborHours * skill
		if !employed {
			income = 0
		}

		pay := income
		if period > uint64(e.cfg.UBIWarmupPeriods) {
			pay += e.cfg.UBIAmount
		}

		currency, err := tx.Delta(personID, ledger.FieldCurrency, pay)
		if err != nil {
			return err
		}
		if err := tx.Set(personID, ledger.FieldIncome, income); err != nil {
			return err
		}
		if err := tx.Set(personID, ledger.FieldConsumption, 0); err != nil {
			return err
		}
		if err := tx.Set(personID, ledger.FieldBudget, props.Consumption*currency); err != nil {
			return err
		}

		if employed {
			produced := props.Work * e.cfg.LaborHours * e.cfg.ProductivityPerLabor
			if _, err := tx.Delta(employer, ledger.FieldInventory, produced); err != nil {
				return err
			}
		}
		return nil
	})
	return income, err
}
