package behavior

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationWeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(20)
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 1 + rng.Float64()*1000
		}
		weights := AllocationWeights(prices, 0.01)
		require.Len(t, weights, n)
		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestAllocationWeightsMonotoneInPrice(t *testing.T) {
	prices := []float64{5, 10, 10, 50, 200}
	weights := AllocationWeights(prices, 0.05)
	for i := 1; i < len(prices); i++ {
		assert.GreaterOrEqual(t, weights[i-1], weights[i],
			"weight must be non-increasing in price")
	}
	// Smooth at ties: equal prices get equal weight.
	assert.InDelta(t, weights[1], weights[2], 1e-12)
}

func TestAllocationWeightsNumericallyStable(t *testing.T) {
	// Large prices would overflow a naive exp without max subtraction.
	weights := AllocationWeights([]float64{1e6, 2e6}, 1.0)
	sum := weights[0] + weights[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, weights[0], weights[1])
}

func TestAllocationScenarioTwoFirms(t *testing.T) {
	// Budget 1250, prices [10, 8], gamma 0.01: the cheaper firm gets the
	// larger float share.
	prices := []float64{10, 8}
	weights := AllocationWeights(prices, 0.01)
	assert.Greater(t, weights[1], weights[0])

	units := AllocationUnits(1250, prices, weights)
	spend := float64(units[0])*prices[0] + float64(units[1])*prices[1]
	assert.LessOrEqual(t, spend, 1250.0)
	assert.Greater(t, units[1], 0)
}

func TestAllocationUnitsZeroPriceGuard(t *testing.T) {
	units := AllocationUnits(100, []float64{0, 10}, []float64{0.5, 0.5})
	assert.Equal(t, 0, units[0])
}

func TestAllocationWeightsEmpty(t *testing.T) {
	assert.Nil(t, AllocationWeights(nil, 0.01))
}
