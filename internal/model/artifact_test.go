package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"behavioral-auth/internal/features"
)

func testNetwork(inputDim int) *Network {
	hidden := Linear{
		Weights: make([][]float64, 4),
		Biases:  make([]float64, 4),
	}
	for i := range hidden.Weights {
		hidden.Weights[i] = make([]float64, inputDim)
		hidden.Weights[i][i%inputDim] = 0.1
	}
	return &Network{
		Hidden: []HiddenLayer{{Linear: hidden, Norm: identityNorm(4)}},
		Output: Linear{Weights: [][]float64{{0.25, 0.25, 0.25, 0.25}}, Biases: []float64{0}},
	}
}

func testAutoencoder(inputDim int) *Autoencoder {
	enc := Linear{Weights: make([][]float64, 3), Biases: make([]float64, 3)}
	for i := range enc.Weights {
		enc.Weights[i] = make([]float64, inputDim)
		enc.Weights[i][i] = 1
	}
	dec := Linear{Weights: make([][]float64, inputDim), Biases: make([]float64, inputDim)}
	for i := range dec.Weights {
		dec.Weights[i] = make([]float64, 3)
		if i < 3 {
			dec.Weights[i][i] = 1
		}
	}
	return &Autoencoder{Encoder: []Linear{enc}, Decoder: []Linear{dec}}
}

func testArtifact(withAnomaly bool) Artifact {
	art := Artifact{
		Version:      "1.2.0",
		TrainedAt:    time.Now().Add(-24 * time.Hour),
		FeatureNames: features.FeatureNames,
		Scoring:      testNetwork(features.VectorSize),
	}
	if withAnomaly {
		art.Anomaly = testAutoencoder(features.VectorSize)
	}
	return art
}

func writeArtifact(t *testing.T, art Artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLoad_ValidArtifact(t *testing.T) {
	path := writeArtifact(t, testArtifact(true))

	net, anomaly, meta, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if net == nil {
		t.Fatal("expected scoring network")
	}
	if !anomaly.Available() {
		t.Error("expected configured anomaly detector to be available")
	}
	if meta.Version != "1.2.0" {
		t.Errorf("expected version 1.2.0, got %s", meta.Version)
	}
	if len(meta.SHA256) != 64 {
		t.Errorf("expected 64-char sha256, got %q", meta.SHA256)
	}
	if meta.Age() <= 0 {
		t.Errorf("expected positive model age, got %v", meta.Age())
	}

	vec := features.Normalize(features.RawFeatureSet{TypingSpeedWPM: 65, AvgKeyHoldTimeMs: 120, AvgTransitionTimeMs: 85, ErrorRatePercent: 3, ActivityHourPreference: 14})
	score, err := net.Score(vec)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if score < 0 || score > 1 {
		t.Errorf("score out of range: %v", score)
	}
}

func TestLoad_MissingAnomalySectionYieldsNoop(t *testing.T) {
	path := writeArtifact(t, testArtifact(false))

	_, anomaly, _, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anomaly.Available() {
		t.Error("expected noop anomaly scorer when artifact has no anomaly section")
	}
	score, err := anomaly.Anomaly(make([]float64, features.VectorSize))
	if err != nil || score != 0 {
		t.Errorf("expected neutral 0 from noop scorer, got %v, %v", score, err)
	}
}

func TestLoad_MissingFileIsModelUnavailable(t *testing.T) {
	_, _, _, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoad_CorruptJSONIsModelUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := Load(path)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoad_RejectsFeatureOrderMismatch(t *testing.T) {
	art := testArtifact(false)
	names := make([]string, len(art.FeatureNames))
	copy(names, art.FeatureNames)
	names[0], names[1] = names[1], names[0]
	art.FeatureNames = names

	_, _, _, err := Load(writeArtifact(t, art))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for reordered features, got %v", err)
	}
}

func TestLoad_RejectsWrongInputDim(t *testing.T) {
	art := testArtifact(false)
	art.Scoring = testNetwork(5)

	_, _, _, err := Load(writeArtifact(t, art))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for wrong input width, got %v", err)
	}
}

func TestLoad_RejectsMissingVersion(t *testing.T) {
	art := testArtifact(false)
	art.Version = ""

	_, _, _, err := Load(writeArtifact(t, art))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for missing version, got %v", err)
	}
}
