package market

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polis/internal/ledger"
)

type fixedPolicy struct {
	props Propensities
}

func (p fixedPolicy) Propensities(ctx context.Context, personID ledger.ActorID) Propensities {
	return p.props
}

func economy(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.AddActor(1, ledger.KindPerson, map[ledger.Field]float64{
		ledger.FieldCurrency: 1000,
		ledger.FieldSkill:    10,
	}))
	require.NoError(t, l.AddActor(100, ledger.KindFirm, map[ledger.Field]float64{
		ledger.FieldPrice:     10,
		ledger.FieldInventory: 50,
	}))
	require.NoError(t, l.Hire(100, 1))
	return l
}

func defaultCfg() Config {
	return Config{
		MaxInflationBound:    0.1,
		LaborHours:           8,
		ProductivityPerLabor: 2,
		UBIAmount:            100,
		UBIWarmupPeriods:     2,
	}
}

func TestRunClearingZeroSupplyNoDivisionByZero(t *testing.T) {
	l := economy(t)
	require.NoError(t, l.Update(100, ledger.FieldInventory, 0))
	_, err := l.DeltaUpdate(100, ledger.FieldDemand, 100)
	require.NoError(t, err)

	e := New(l, defaultCfg(), fixedPolicy{Propensities{Work: 0, Consumption: 0.3}}, 1)
	require.NoError(t, e.RunClearing(context.Background(), 1))

	price, err := l.Get(100, ledger.FieldPrice)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price))
	assert.False(t, math.IsInf(price, 0))
	assert.GreaterOrEqual(t, price, 10.0, "pure excess demand never lowers the price")
}

func TestRunClearingResetsAccumulatorsOncePerPeriod(t *testing.T) {
	l := economy(t)
	_, err := l.DeltaUpdate(100, ledger.FieldDemand, 40)
	require.NoError(t, err)
	_, err = l.DeltaUpdate(100, ledger.FieldSales, 30)
	require.NoError(t, err)

	e := New(l, defaultCfg(), fixedPolicy{}, 1)
	require.NoError(t, e.RunClearing(context.Background(), 1))

	demand, _ := l.Get(100, ledger.FieldDemand)
	sales, _ := l.Get(100, ledger.FieldSales)
	assert.Zero(t, demand)
	assert.Zero(t, sales)

	// A repeat call for the same period must not clear again.
	_, err = l.DeltaUpdate(100, ledger.FieldDemand, 25)
	require.NoError(t, err)
	require.NoError(t, e.RunClearing(context.Background(), 1))
	demand, _ = l.Get(100, ledger.FieldDemand)
	assert.Equal(t, 25.0, demand)
}

func TestRunClearingPriceFloor(t *testing.T) {
	l := economy(t)
	// Price already at the floor with heavy excess supply.
	require.NoError(t, l.Update(100, ledger.FieldPrice, 1))
	require.NoError(t, l.Update(100, ledger.FieldInventory, 500))

	e := New(l, defaultCfg(), fixedPolicy{}, 1)
	require.NoError(t, e.RunClearing(context.Background(), 1))

	price, err := l.Get(100, ledger.FieldPrice)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, price, 1.0)
}

func TestRunClearingAdjustmentDirections(t *testing.T) {
	excess := economy(t)
	require.NoError(t, excess.Update(100, ledger.FieldInventory, 0))
	_, err := excess.DeltaUpdate(100, ledger.FieldDemand, 200)
	require.NoError(t, err)

	e := New(excess, defaultCfg(), fixedPolicy{}, 3)
	require.NoError(t, e.RunClearing(context.Background(), 1))
	skill, _ := excess.Get(1, ledger.FieldSkill)
	assert.GreaterOrEqual(t, skill, 10.0, "excess demand never lowers wages")

	glut := economy(t)
	_, err = glut.DeltaUpdate(100, ledger.FieldSales, 5)
	require.NoError(t, err)

	e = New(glut, defaultCfg(), fixedPolicy{}, 3)
	require.NoError(t, e.RunClearing(context.Background(), 1))
	skill, _ = glut.Get(1, ledger.FieldSkill)
	assert.LessOrEqual(t, skill, 10.0, "excess supply never raises wages")
}

func TestSettlePersonIncomeBudgetAndProduction(t *testing.T) {
	l := economy(t)
	// Zero accumulators and inventory keep changeRate at 0, so skill stays
	// put and the income arithmetic is exact.
	require.NoError(t, l.Update(100, ledger.FieldInventory, 0))
	_, err := l.DeltaUpdate(1, ledger.FieldConsumption, 200)
	require.NoError(t, err)
	inventoryBefore, _ := l.Get(100, ledger.FieldInventory)

	cfg := defaultCfg()
	cfg.UBIAmount = 0
	e := New(l, cfg, fixedPolicy{Propensities{Work: 1, Consumption: 0.5}}, 1)
	require.NoError(t, e.RunClearing(context.Background(), 1))

	// Full-effort income: 1 * 8h * skill 10.
	income, _ := l.Get(1, ledger.FieldIncome)
	assert.InDelta(t, 80, income, 1e-9)

	currency, _ := l.Get(1, ledger.FieldCurrency)
	assert.InDelta(t, 1080, currency, 1e-9)

	consumption, _ := l.Get(1, ledger.FieldConsumption)
	assert.Zero(t, consumption)

	budget, _ := l.Get(1, ledger.FieldBudget)
	assert.InDelta(t, 540, budget, 1e-9)

	inventoryAfter, _ := l.Get(100, ledger.FieldInventory)
	assert.InDelta(t, 16, inventoryAfter-inventoryBefore, 1e-9, "1 * 8h * productivity 2")
}

func TestSettleUnemployedPersonEarnsNothing(t *testing.T) {
	l := economy(t)
	require.NoError(t, l.Fire(1))

	cfg := defaultCfg()
	cfg.UBIAmount = 0
	e := New(l, cfg, fixedPolicy{Propensities{Work: 1, Consumption: 0.5}}, 1)
	require.NoError(t, e.RunClearing(context.Background(), 1))

	income, _ := l.Get(1, ledger.FieldIncome)
	assert.Zero(t, income)
	currency, _ := l.Get(1, ledger.FieldCurrency)
	assert.Equal(t, 1000.0, currency)
}

func TestUBIStartsAfterWarmup(t *testing.T) {
	l := economy(t)
	require.NoError(t, l.Fire(1))

	cfg := defaultCfg() // warmup 2 periods, UBI 100
	e := New(l, cfg, fixedPolicy{Propensities{Work: 0, Consumption: 0}}, 1)

	require.NoError(t, e.RunClearing(context.Background(), 1))
	require.NoError(t, e.RunClearing(context.Background(), 2))
	currency, _ := l.Get(1, ledger.FieldCurrency)
	assert.Equal(t, 1000.0, currency, "no UBI during warmup")

	require.NoError(t, e.RunClearing(context.Background(), 3))
	currency, _ = l.Get(1, ledger.FieldCurrency)
	assert.Equal(t, 1100.0, currency)
}

func TestRunClearingCancelledContext(t *testing.T) {
	l := economy(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(l, defaultCfg(), fixedPolicy{}, 1)
	assert.ErrorIs(t, e.RunClearing(ctx, 1), context.Canceled)
}
