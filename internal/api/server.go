// Package api exposes the behavioral scoring pipeline over HTTP: single and
// batch prediction, sample comparison, a WebSocket scoring stream, and the
// health and statistics endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"behavioral-auth/internal/features"
	"behavioral-auth/internal/inference"
	"behavioral-auth/internal/metrics"
	"behavioral-auth/internal/model"
	"behavioral-auth/internal/storage"
)

// Two samples above this similarity probably come from the same person.
const sameUserSimilarityThreshold = 70.0

// Options carries the transport-level limits of the API surface.
type Options struct {
	ListenPort         int
	MaxBatchSize       int
	MaxHistoryPatterns int
	CompareMaxDistance float64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// Server serves the scoring API. The storage dependency is optional; without
// it predictions are simply not audited.
type Server struct {
	engine  *inference.Engine
	meta    model.Metadata
	opts    Options
	metrics *metrics.Metrics
	store   *storage.Store
	server  *http.Server
	started time.Time
}

// NewServer wires the HTTP surface around a ready engine. Pass a nil store
// to disable audit persistence and a nil metrics sink to disable
// instrumentation.
func NewServer(engine *inference.Engine, meta model.Metadata, opts Options, m *metrics.Metrics, store *storage.Store) *Server {
	s := &Server{
		engine:  engine,
		meta:    meta,
		opts:    opts,
		metrics: m,
		store:   store,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/predict", s.handlePredict)
	mux.HandleFunc("/api/v1/batch-predict", s.handleBatchPredict)
	mux.HandleFunc("/api/v1/compare", s.handleCompare)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.ListenPort),
		Handler:      mux,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting api server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the routing handler, used by tests to serve without a
// listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/predict"
	if r.Method != http.MethodPost {
		s.writeError(w, endpoint, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	start := time.Now()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), req.RequestID)
		return
	}
	if err := req.Validate(s.opts.MaxHistoryPatterns); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err.Error(), req.RequestID)
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	result, err := s.engine.Predict(req.Features, req.HistoricalPatterns)
	if err != nil {
		log.Error().Err(err).Str("request_id", req.RequestID).Msg("prediction failed")
		s.writeError(w, endpoint, http.StatusInternalServerError, fmt.Sprintf("prediction failed: %v", err), req.RequestID)
		return
	}

	resp := s.predictResponse(req, result, start)
	s.audit(req, resp)
	s.requestInc(endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/batch-predict"
	if r.Method != http.MethodPost {
		s.writeError(w, endpoint, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req BatchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), "")
		return
	}
	if err := req.Validate(s.opts.MaxBatchSize, s.opts.MaxHistoryPatterns); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err.Error(), "")
		return
	}
	if s.metrics != nil {
		s.metrics.BatchSizeObserve(len(req.Samples))
	}

	resp := BatchPredictResponse{Results: make([]PredictResponse, 0, len(req.Samples))}
	for i := range req.Samples {
		sample := req.Samples[i]
		if sample.RequestID == "" {
			sample.RequestID = uuid.NewString()
		}

		start := time.Now()
		result, err := s.engine.Predict(sample.Features, sample.HistoricalPatterns)
		if err != nil {
			// One bad sample must not sink the batch; it gets the
			// degraded result instead.
			log.Warn().Err(err).Int("sample", i).Msg("batch sample failed")
			resp.Results = append(resp.Results, PredictResponse{
				ConfidenceScore:   0,
				AnomalyScore:      1.0,
				FeatureImportance: map[string]float64{},
				RequestID:         sample.RequestID,
				ModelVersion:      s.meta.Version,
				InferenceTimeMs:   float64(time.Since(start).Microseconds()) / 1000.0,
				Timestamp:         time.Now(),
			})
			resp.Failed++
			continue
		}

		item := s.predictResponse(sample, result, start)
		s.audit(sample, item)
		resp.Results = append(resp.Results, item)
		resp.Succeeded++
	}

	s.requestInc(endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/compare"
	if r.Method != http.MethodPost {
		s.writeError(w, endpoint, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), "")
		return
	}

	current, err := s.engine.Predict(req.Current, nil)
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, fmt.Sprintf("comparison failed: %v", err), "")
		return
	}
	reference, err := s.engine.Predict(req.Reference, nil)
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, fmt.Sprintf("comparison failed: %v", err), "")
		return
	}

	distance, similarity := inference.Compare(
		features.Normalize(req.Current),
		features.Normalize(req.Reference),
		s.opts.CompareMaxDistance,
	)

	s.requestInc(endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, CompareResponse{
		CurrentConfidence:   current.ConfidenceScore,
		ReferenceConfidence: reference.ConfidenceScore,
		SimilarityScore:     similarity,
		Distance:            distance,
		LikelySameUser:      similarity > sameUserSimilarityThreshold,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:           "healthy",
		ModelVersion:     s.meta.Version,
		AnomalyDetection: s.engine.AnomalyDetectionAvailable(),
		UptimeSeconds:    time.Since(s.started).Seconds(),
	}

	s.requestInc("/health", http.StatusOK)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Snapshot:     s.engine.Stats(),
		ModelVersion: s.meta.Version,
	}

	s.requestInc("/stats", http.StatusOK)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) predictResponse(req PredictRequest, result inference.Result, start time.Time) PredictResponse {
	return PredictResponse{
		ConfidenceScore:   result.ConfidenceScore,
		AnomalyScore:      result.AnomalyScore,
		FeatureImportance: result.FeatureImportance,
		RequestID:         req.RequestID,
		ModelVersion:      s.meta.Version,
		InferenceTimeMs:   float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:         time.Now(),
	}
}

// audit persists the served prediction and its sample, best effort. Storage
// faults are logged and counted, never surfaced to the caller.
func (s *Server) audit(req PredictRequest, resp PredictResponse) {
	if s.store == nil || req.UserID == "" {
		return
	}

	record := storage.AuditRecord{
		UserID:       req.UserID,
		RequestID:    resp.RequestID,
		Timestamp:    resp.Timestamp,
		Confidence:   resp.ConfidenceScore,
		AnomalyScore: resp.AnomalyScore,
		ModelVersion: resp.ModelVersion,
		LatencyMs:    resp.InferenceTimeMs,
	}
	if err := s.store.StoreAudit(record); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("audit write failed")
		if s.metrics != nil {
			s.metrics.AuditWriteErrors.Inc()
		}
		return
	}
	if err := s.store.StoreSample(storage.SampleRecord{
		UserID:    req.UserID,
		Timestamp: resp.Timestamp,
		Features:  req.Features,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("sample write failed")
		if s.metrics != nil {
			s.metrics.AuditWriteErrors.Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.AuditWrites.Inc()
	}
}

func (s *Server) writeError(w http.ResponseWriter, endpoint string, status int, msg, requestID string) {
	s.requestInc(endpoint, status)
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: requestID})
}

func (s *Server) requestInc(endpoint string, status int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RequestInc(endpoint, fmt.Sprintf("%dxx", status/100))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
