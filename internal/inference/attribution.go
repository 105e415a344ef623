package inference

import (
	"math"

	"behavioral-auth/internal/features"
	"behavioral-auth/internal/model"
)

// importance estimates the local sensitivity of the confidence output to each
// input dimension by symmetric finite differences and normalizes the absolute
// sensitivities to sum to 1. At a flat point (zero total sensitivity) it
// returns all-zero importances instead of dividing by zero.
//
// A gradient from automatic differentiation would measure the same quantity;
// the central-difference estimate differs only by O(h^2) truncation error.
func importance(vec features.FeatureVector, scorer model.Scorer) (map[string]float64, error) {
	grads := make([]float64, len(vec))
	probe := make([]float64, len(vec))

	var total float64
	for i := range vec {
		// Step relative to the feature scale; raw features span [0,500]
		// while ratios sit near 1.
		h := 1e-3 * math.Max(1, math.Abs(vec[i]))

		copy(probe, vec)
		probe[i] = vec[i] + h
		up, err := scorer.Score(probe)
		if err != nil {
			return nil, err
		}

		probe[i] = vec[i] - h
		down, err := scorer.Score(probe)
		if err != nil {
			return nil, err
		}

		grads[i] = math.Abs((up - down) / (2 * h))
		total += grads[i]
	}

	result := make(map[string]float64, len(features.FeatureNames))
	for i, name := range features.FeatureNames {
		if total > 0 {
			result[name] = grads[i] / total
		} else {
			result[name] = 0
		}
	}
	return result, nil
}
