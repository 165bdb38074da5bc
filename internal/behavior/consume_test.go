package behavior

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polis/internal/ledger"
	"github.com/talgya/polis/internal/memory"
)

func consumeFixture(t *testing.T) (*ledger.Ledger, *DispatchContext) {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.AddActor(1, ledger.KindPerson, map[ledger.Field]float64{
		ledger.FieldCurrency: 50000,
		ledger.FieldBudget:   1250,
	}))
	require.NoError(t, l.AddActor(100, ledger.KindFirm, map[ledger.Field]float64{
		ledger.FieldPrice: 10, ledger.FieldInventory: 10000,
	}))
	require.NoError(t, l.AddActor(101, ledger.KindFirm, map[ledger.Field]float64{
		ledger.FieldPrice: 8, ledger.FieldInventory: 10000,
	}))

	mem, err := memory.NewStore(nil, nil)
	require.NoError(t, err)
	dc := &DispatchContext{
		AgentID: 1,
		Name:    "Ada",
		Intent:  "buy groceries",
		Memory:  mem,
		Rand:    rand.New(rand.NewSource(1)),
	}
	return l, dc
}

func TestConsumeAllocatesBudget(t *testing.T) {
	l, dc := consumeFixture(t)
	b := NewConsumeBlock(l, 0.01)

	out := b.Execute(context.Background(), dc)
	require.NotNil(t, out)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.RecordID)

	consumption, _ := l.Get(1, ledger.FieldConsumption)
	assert.Greater(t, consumption, 0.0)
	assert.LessOrEqual(t, consumption, 1250.0)

	// The cheaper firm realizes more sales.
	sales100, _ := l.Get(100, ledger.FieldSales)
	sales101, _ := l.Get(101, ledger.FieldSales)
	assert.Greater(t, sales101, sales100)

	// Money moved from the person to the firms, conserved overall.
	personCurrency, _ := l.Get(1, ledger.FieldCurrency)
	firm100, _ := l.Get(100, ledger.FieldCurrency)
	firm101, _ := l.Get(101, ledger.FieldCurrency)
	assert.InDelta(t, 50000.0, personCurrency+firm100+firm101, 1e-9)
	assert.InDelta(t, consumption, firm100+firm101, 1e-9)
}

func TestConsumeRealizedCappedByInventory(t *testing.T) {
	l, dc := consumeFixture(t)
	require.NoError(t, l.Update(100, ledger.FieldInventory, 2))
	require.NoError(t, l.Update(101, ledger.FieldInventory, 0))
	b := NewConsumeBlock(l, 0.01)

	out := b.Execute(context.Background(), dc)
	require.NotNil(t, out)

	// Sold-out firm realizes nothing; demand still records the request.
	sales101, _ := l.Get(101, ledger.FieldSales)
	assert.Equal(t, 0.0, sales101)
	demand101, _ := l.Get(101, ledger.FieldDemand)
	assert.Greater(t, demand101, 0.0)

	inv100, _ := l.Get(100, ledger.FieldInventory)
	assert.GreaterOrEqual(t, inv100, 0.0)
	sales100, _ := l.Get(100, ledger.FieldSales)
	assert.LessOrEqual(t, sales100, 2.0)

	// Unmet demand is dropped: consumption only reflects realized spend.
	consumption, _ := l.Get(1, ledger.FieldConsumption)
	assert.InDelta(t, sales100*10, consumption, 1e-9)
}

func TestConsumeBudgetExhausted(t *testing.T) {
	l, dc := consumeFixture(t)
	require.NoError(t, l.Update(1, ledger.FieldConsumption, 1250))
	b := NewConsumeBlock(l, 0.01)

	out := b.Execute(context.Background(), dc)
	require.NotNil(t, out)
	assert.False(t, out.Success)

	// No mutation happened.
	sales100, _ := l.Get(100, ledger.FieldSales)
	assert.Equal(t, 0.0, sales100)
}

func TestConsumeReadsBudgetFromSnapshot(t *testing.T) {
	l, dc := consumeFixture(t)
	// The cycle snapshot says the budget is spent; the block must honor it
	// without a ledger round trip.
	dc.Snapshot = map[ledger.ActorID]map[ledger.Field]float64{
		1: {ledger.FieldBudget: 1250, ledger.FieldConsumption: 1250},
	}
	b := NewConsumeBlock(l, 0.01)

	out := b.Execute(context.Background(), dc)
	require.NotNil(t, out)
	assert.False(t, out.Success)

	sales100, _ := l.Get(100, ledger.FieldSales)
	assert.Equal(t, 0.0, sales100)
}

func TestConsumeRepeatedStaysWithinBudget(t *testing.T) {
	l, dc := consumeFixture(t)
	b := NewConsumeBlock(l, 0.01)

	for range 5 {
		b.Execute(context.Background(), dc)
	}
	consumption, _ := l.Get(1, ledger.FieldConsumption)
	assert.LessOrEqual(t, consumption, 1250.0)
}
