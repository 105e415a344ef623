// Package model implements the learned scoring functions behind the
// behavioral authentication pipeline: a feed-forward confidence regressor and
// an optional autoencoder anomaly detector. Weights come from a JSON artifact
// loaded once at startup; a load failure is fatal to the whole service rather
// than handled per request.
package model

import "errors"

// ErrModelUnavailable is returned when the weights artifact cannot be loaded
// at startup. The service must refuse to serve in that case.
var ErrModelUnavailable = errors.New("model unavailable")

// Scorer evaluates a feature vector to a confidence in [0,1].
// Implementations must be deterministic and safe for concurrent use after
// construction.
type Scorer interface {
	Score(vec []float64) (float64, error)
}

// AnomalyScorer reports how poorly a vector is explained by the learned
// manifold. Available distinguishes a configured detector from the neutral
// stand-in: a 0.0 from an unavailable detector means "no anomaly detection",
// not "no anomaly".
type AnomalyScorer interface {
	Anomaly(vec []float64) (float64, error)
	Available() bool
}
