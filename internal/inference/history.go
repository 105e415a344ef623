package inference

import (
	"math"

	"behavioral-auth/internal/features"
)

// NeutralConsistency is the historical consistency returned when no patterns
// are supplied: it neither penalizes nor rewards the current sample.
const NeutralConsistency = 50.0

// consistency compares the current vector against the centroid of the
// caller-supplied historical patterns and maps the Euclidean distance onto
// [0,100]. Distances at or beyond maxDistance saturate to 0 similarity.
func consistency(vec features.FeatureVector, history []features.HistoricalPattern, maxDistance float64) float64 {
	if len(history) == 0 {
		return NeutralConsistency
	}

	centroid := make([]float64, features.VectorSize)
	for _, p := range history {
		hv := features.Normalize(p.RawFeatureSet)
		for i, v := range hv {
			centroid[i] += v
		}
	}
	n := float64(len(history))
	for i := range centroid {
		centroid[i] /= n
	}

	_, similarity := Compare(vec, centroid, maxDistance)
	return similarity
}

// Compare returns the Euclidean distance between two equally sized vectors
// and the similarity it maps to on the 0-100 scale under maxDistance.
func Compare(a, b features.FeatureVector, maxDistance float64) (distance, similarity float64) {
	var sq float64
	for i, v := range a {
		d := v - b[i]
		sq += d * d
	}
	distance = math.Sqrt(sq)
	similarity = math.Max(0, 100-distance/maxDistance*100)
	return distance, similarity
}
