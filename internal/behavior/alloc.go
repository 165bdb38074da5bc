// Consumption allocation — demand spread over firms by a negative-temperature
// softmax on price, so cheaper firms attract more spend without any
// discontinuity at price ties.
package behavior

import "math"

// AllocationWeights returns the softmax weights w_i = exp(-γ·p_i)/Σexp(-γ·p_j)
// for a price vector. The max exponent argument is subtracted before
// normalizing, keeping the computation stable for large prices. Weights sum
// to 1 for any non-empty, finite price vector and are non-increasing in price.
func AllocationWeights(prices []float64, gamma float64) []float64 {
	if len(prices) == 0 {
		return nil
	}

	// exp(-γ·p) peaks at the lowest price.
	maxArg := -gamma * prices[0]
	for _, p := range prices[1:] {
		if arg := -gamma * p; arg > maxArg {
			maxArg = arg
		}
	}

	weights := make([]float64, len(prices))
	sum := 0.0
	for i, p := range prices {
		w := math.Exp(-gamma*p - maxArg)
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// AllocationUnits converts a budget and weight vector into whole demanded
// units per firm: floor(B·w_i / p_i).
func AllocationUnits(budget float64, prices, weights []float64) []int {
	units := make([]int, len(prices))
	for i, p := range prices {
		if p <= 0 {
			continue
		}
		units[i] = int(math.Floor(budget * weights[i] / p))
	}
	return units
}
