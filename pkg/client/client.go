// Package client is a typed HTTP client for the behavioral scoring service.
// It carries its own wire structs so importing it does not pull in the
// service internals.
package client

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TelemetrySample is one raw typing-rhythm sample.
type TelemetrySample struct {
	TypingSpeedWPM         float64 `json:"typing_speed_wpm"`
	AvgKeyHoldTimeMs       float64 `json:"avg_key_hold_time_ms"`
	AvgTransitionTimeMs    float64 `json:"avg_transition_time_ms"`
	ErrorRatePercent       float64 `json:"error_rate_percent"`
	ActivityHourPreference float64 `json:"activity_hour_preference"`
}

// HistoricalPattern is a previously observed sample for the same identity.
type HistoricalPattern struct {
	TelemetrySample
	Timestamp int64 `json:"timestamp"`
}

// PredictRequest is one scoring request.
type PredictRequest struct {
	UserID             string              `json:"user_id,omitempty"`
	RequestID          string              `json:"request_id,omitempty"`
	Features           TelemetrySample     `json:"features"`
	HistoricalPatterns []HistoricalPattern `json:"historical_patterns,omitempty"`
}

// PredictResponse is one completed scoring result.
type PredictResponse struct {
	ConfidenceScore   int                `json:"confidence_score"`
	AnomalyScore      float64            `json:"anomaly_score"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	RequestID         string             `json:"request_id,omitempty"`
	ModelVersion      string             `json:"model_version"`
	InferenceTimeMs   float64            `json:"inference_time_ms"`
}

// BatchPredictRequest scores several samples in one call.
type BatchPredictRequest struct {
	Samples []PredictRequest `json:"samples"`
}

// BatchPredictResponse carries per-sample results in request order.
type BatchPredictResponse struct {
	Results   []PredictResponse `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// CompareResponse reports the similarity of two samples.
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
	TotalPredictions int64   `json:"total_predictions"`
	AvgInferenceMs   float64 `json:"avg_inference_time_ms"`
	AvgConfidence    float64 `json:"avg_confidence"`
	ModelVersion     string  `json:"model_version"`
}

type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Client talks to one scoring service instance.
type Client struct {
	base string
	rest *resty.Client
}

// New builds a client for the service at base, e.g. "http://localhost:8000".
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

// Predict scores one telemetry sample.
func (c *Client) Predict(req PredictRequest) (*PredictResponse, error) {
	result := &PredictResponse{}
	return result, c.post("/api/v1/predict", req, result)
}

// BatchPredict scores several samples in one call.
func (c *Client) BatchPredict(req BatchPredictRequest) (*BatchPredictResponse, error) {
	result := &BatchPredictResponse{}
	return result, c.post("/api/v1/batch-predict", req, result)
}

// Compare measures the similarity of two telemetry samples.
func (c *Client) Compare(current, reference TelemetrySample) (*CompareResponse, error) {
	body := struct {
		Current   TelemetrySample `json:"current"`
		Reference TelemetrySample `json:"reference"`
	}{current, reference}

	result := &CompareResponse{}
	return result, c.post("/api/v1/compare", body, result)
}

// Health fetches service liveness and model identity.
func (c *Client) Health() (*HealthResponse, error) {
	result := &HealthResponse{}
	return result, c.get("/health", result)
}

// Stats fetches the rolling prediction statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	result := &StatsResponse{}
	return result, c.get("/stats", result)
}

func (c *Client) post(path string, body, result any) error {
	errBody := &apiError{}
	resp, err := c.rest.R().
		SetBody(body).
		SetResult(result).
		SetError(errBody).
		Post(c.base + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode(), errBody.Error)
	}
	return nil
}

func (c *Client) get(path string, result any) error {
	resp, err := c.rest.R().
		SetResult(result).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode())
	}
	return nil
}
