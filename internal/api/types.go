package api

import (
	"fmt"
	"time"

	"behavioral-auth/internal/features"
	"behavioral-auth/internal/inference"
)

// PredictRequest is one scoring request. UserID is optional and only used
// for audit records; HistoricalPatterns are supplied by the caller, who owns
// pattern storage.
type PredictRequest struct {
	UserID             string                       `json:"user_id,omitempty"`
	RequestID          string                       `json:"request_id,omitempty"`
	Features           features.RawFeatureSet       `json:"features"`
	HistoricalPatterns []features.HistoricalPattern `json:"historical_patterns,omitempty"`
}

// Validate rejects requests whose shape the pipeline cannot serve.
// Out-of-range feature values are not errors; they clip during
// normalization.
func (r *PredictRequest) Validate(maxHistory int) error {
	if len(r.HistoricalPatterns) > maxHistory {
		return fmt.Errorf("at most %d historical patterns allowed, got %d", maxHistory, len(r.HistoricalPatterns))
	}
	return nil
}

// PredictResponse is one completed scoring result.
type PredictResponse struct {
	ConfidenceScore   int                `json:"confidence_score"`
	AnomalyScore      float64            `json:"anomaly_score"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	RequestID         string             `json:"request_id,omitempty"`
	ModelVersion      string             `json:"model_version"`
	InferenceTimeMs   float64            `json:"inference_time_ms"`
	Timestamp         time.Time          `json:"timestamp"`
}

// BatchPredictRequest scores several samples in one call.
type BatchPredictRequest struct {
	Samples []PredictRequest `json:"samples"`
}

// Validate bounds the batch size and checks each sample.
func (r *BatchPredictRequest) Validate(maxBatch, maxHistory int) error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("samples cannot be empty")
	}
	if len(r.Samples) > maxBatch {
		return fmt.Errorf("at most %d samples per batch, got %d", maxBatch, len(r.Samples))
	}
	for i := range r.Samples {
		if err := r.Samples[i].Validate(maxHistory); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return nil
}

// BatchPredictResponse carries per-sample results in request order. Samples
// that failed get the degraded result and count toward Failed.
type BatchPredictResponse struct {
	Results   []PredictResponse `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// CompareRequest measures how similar two telemetry samples are, without
// running the model.
type CompareRequest struct {
	Current   features.RawFeatureSet `json:"current"`
	Reference features.RawFeatureSet `json:"reference"`
}

// CompareResponse reports the distance between the two normalized samples,
// the 0-100 similarity it maps to, and each sample's standalone model
// confidence.
type CompareResponse struct {
	CurrentConfidence   int     `json:"current_confidence"`
	ReferenceConfidence int     `json:"reference_confidence"`
	SimilarityScore     float64 `json:"similarity_score"`
	Distance            float64 `json:"distance"`
	LikelySameUser      bool    `json:"likely_same_user"`
}

// HealthResponse reports service liveness and model identity.
type HealthResponse struct {
	Status           string  `json:"status"`
	ModelVersion     string  `json:"model_version"`
	AnomalyDetection bool    `json:"anomaly_detection"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// StatsResponse exposes the rolling prediction statistics.
type StatsResponse struct {
	inference.Snapshot
	ModelVersion string `json:"model_version"`
}

// ErrorResponse is the JSON error body for all non-2xx responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
