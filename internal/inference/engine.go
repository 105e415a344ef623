// Package inference orchestrates the behavioral scoring pipeline: feature
// normalization, confidence scoring, anomaly detection, feature attribution,
// and consistency blending against the caller's historical patterns.
package inference

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"behavioral-auth/internal/features"
	"behavioral-auth/internal/model"
)

// Metrics is the narrow slice of the metrics surface the engine needs.
type Metrics interface {
	PredictionsInc()
	FailuresInc()
	LatencyObserve(float64)
	ConfidenceObserve(float64)
	AnomalyObserve(float64)
	NeutralHistoryInc()
}

// Config carries the tunable constants of the fusion step. The defaults
// mirror the values the model was calibrated with; they are untuned and kept
// overridable on purpose.
type Config struct {
	// ModelWeight and HistoryWeight blend the model confidence with the
	// historical consistency score. They should sum to 1.
	ModelWeight   float64
	HistoryWeight float64
	// MaxDistance scales Euclidean distance to the 0-100 similarity range.
	// Distances beyond it read as 0 similarity.
	MaxDistance float64
	// StatsWindow bounds the ring of recent confidence scores.
	StatsWindow int
}

// DefaultConfig returns the calibration defaults.
func DefaultConfig() Config {
	return Config{
		ModelWeight:   0.7,
		HistoryWeight: 0.3,
		MaxDistance:   100,
		StatsWindow:   1000,
	}
}

// Result is one completed prediction.
type Result struct {
	// ConfidenceScore estimates identity match on a 0-100 integer scale.
	ConfidenceScore int `json:"confidence_score"`
	// AnomalyScore is the non-negative reconstruction error, 0.0 when no
	// anomaly detector is configured.
	AnomalyScore float64 `json:"anomaly_score"`
	// FeatureImportance maps each feature name to its share of the local
	// sensitivity, summing to 1 unless the model is flat at this point.
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// Engine runs the full pipeline for one sample at a time. Model weights are
// read-only after construction, so concurrent Predict calls share them
// without locking; the statistics ring is the only guarded state.
type Engine struct {
	scorer  model.Scorer
	anomaly model.AnomalyScorer
	cfg     Config
	metrics Metrics
	stats   *Stats
}

// New builds an engine around loaded models. A nil anomaly scorer is replaced
// by the neutral null object; a nil metrics sink disables instrumentation.
func New(scorer model.Scorer, anomaly model.AnomalyScorer, cfg Config, metrics Metrics) *Engine {
	if anomaly == nil {
		anomaly = model.NoopAnomalyScorer{}
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = DefaultConfig().StatsWindow
	}
	return &Engine{
		scorer:  scorer,
		anomaly: anomaly,
		cfg:     cfg,
		metrics: metrics,
		stats:   newStats(cfg.StatsWindow),
	}
}

// Predict scores one telemetry sample, optionally blending against the
// caller-supplied history. Raw input never fails: out-of-range values clip.
// Pipeline faults return an *InferenceError and leave the statistics
// untouched.
func (e *Engine) Predict(raw features.RawFeatureSet, history []features.HistoricalPattern) (Result, error) {
	start := time.Now()

	vec := features.Normalize(raw)
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			e.fail()
			return Result{}, failure("normalization", fmt.Errorf("feature %s is not finite", features.FeatureNames[i]))
		}
	}

	score, err := e.scorer.Score(vec)
	if err != nil {
		e.fail()
		return Result{}, failure("scoring", err)
	}
	confidence := int(math.Round(score * 100))

	anomaly, err := e.anomaly.Anomaly(vec)
	if err != nil {
		e.fail()
		return Result{}, failure("anomaly", err)
	}

	imp, err := importance(vec, e.scorer)
	if err != nil {
		e.fail()
		return Result{}, failure("attribution", err)
	}

	if len(history) > 0 {
		historical := consistency(vec, history, e.cfg.MaxDistance)
		confidence = int(math.Round(float64(confidence)*e.cfg.ModelWeight + historical*e.cfg.HistoryWeight))
		log.Debug().
			Int("patterns", len(history)).
			Float64("historical", historical).
			Int("fused_confidence", confidence).
			Msg("blended confidence with history")
	} else if e.metrics != nil {
		e.metrics.NeutralHistoryInc()
	}

	elapsed := time.Since(start)
	e.stats.record(confidence, elapsed)
	if e.metrics != nil {
		e.metrics.PredictionsInc()
		e.metrics.LatencyObserve(elapsed.Seconds())
		e.metrics.ConfidenceObserve(float64(confidence))
		e.metrics.AnomalyObserve(anomaly)
	}

	return Result{
		ConfidenceScore:   confidence,
		AnomalyScore:      anomaly,
		FeatureImportance: imp,
	}, nil
}

// Stats returns a snapshot of the rolling statistics.
func (e *Engine) Stats() Snapshot { return e.stats.Snapshot() }

// AnomalyDetectionAvailable reports whether a real anomaly detector is
// configured, so callers can distinguish "score 0" from "not measured".
func (e *Engine) AnomalyDetectionAvailable() bool { return e.anomaly.Available() }

func (e *Engine) fail() {
	if e.metrics != nil {
		e.metrics.FailuresInc()
	}
}
