package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"behavioral-auth/internal/features"
)

// Artifact is the on-disk weights file produced by the training pipeline.
// The anomaly section is optional; a missing section means the service runs
// without anomaly detection.
type Artifact struct {
	Version      string       `json:"version"`
	TrainedAt    time.Time    `json:"trained_at"`
	FeatureNames []string     `json:"feature_names"`
	Scoring      *Network     `json:"scoring"`
	Anomaly      *Autoencoder `json:"anomaly,omitempty"`
}

// Metadata describes the loaded artifact for health reporting and metrics.
type Metadata struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	SHA256    string    `json:"sha256"`
	Path      string    `json:"path"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Age returns how old the artifact is, for the model-age gauge.
func (m Metadata) Age() time.Duration {
	if m.TrainedAt.IsZero() {
		return 0
	}
	return time.Since(m.TrainedAt)
}

// Load reads and validates a weights artifact. Any failure wraps
// ErrModelUnavailable: the caller must treat it as fatal and refuse to serve,
// not degrade per request. The returned anomaly scorer is a NoopAnomalyScorer
// when the artifact carries no anomaly section.
func Load(path string) (*Network, AnomalyScorer, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, Metadata{}, fmt.Errorf("%w: read %s: %w", ErrModelUnavailable, path, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, nil, Metadata{}, fmt.Errorf("%w: parse %s: %w", ErrModelUnavailable, path, err)
	}

	if err := art.validate(); err != nil {
		return nil, nil, Metadata{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	sum := sha256.Sum256(data)
	meta := Metadata{
		Version:   art.Version,
		TrainedAt: art.TrainedAt,
		SHA256:    hex.EncodeToString(sum[:]),
		Path:      path,
		LoadedAt:  time.Now(),
	}

	var anomaly AnomalyScorer = NoopAnomalyScorer{}
	if art.Anomaly != nil {
		anomaly = art.Anomaly
	}

	log.Info().
		Str("path", path).
		Str("version", meta.Version).
		Str("sha256", meta.SHA256[:12]).
		Bool("anomaly_detector", art.Anomaly != nil).
		Int("hidden_layers", len(art.Scoring.Hidden)).
		Msg("model artifact loaded")

	return art.Scoring, anomaly, meta, nil
}

func (a *Artifact) validate() error {
	if a.Version == "" {
		return fmt.Errorf("artifact has no version")
	}
	if a.Scoring == nil {
		return fmt.Errorf("artifact has no scoring network")
	}
	if err := a.Scoring.validate(); err != nil {
		return fmt.Errorf("scoring network: %w", err)
	}
	if a.Scoring.InputDim() != features.VectorSize {
		return fmt.Errorf("scoring network expects %d features, pipeline produces %d", a.Scoring.InputDim(), features.VectorSize)
	}
	if len(a.FeatureNames) != len(features.FeatureNames) {
		return fmt.Errorf("artifact lists %d feature names, expected %d", len(a.FeatureNames), len(features.FeatureNames))
	}
	for i, name := range a.FeatureNames {
		if name != features.FeatureNames[i] {
			return fmt.Errorf("feature order mismatch at %d: artifact has %q, pipeline produces %q", i, name, features.FeatureNames[i])
		}
	}
	if a.Anomaly != nil {
		if err := a.Anomaly.validate(features.VectorSize); err != nil {
			return fmt.Errorf("anomaly detector: %w", err)
		}
	}
	return nil
}
