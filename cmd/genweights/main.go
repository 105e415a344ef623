// Command genweights writes a randomly initialized weights artifact in the
// service's JSON format. The output scores deterministically but carries no
// trained knowledge; it exists for local development and integration testing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"behavioral-auth/internal/features"
	"behavioral-auth/internal/model"
)

func main() {
	var (
		outputPath  = flag.String("output", "model.json", "Output artifact path")
		version     = flag.String("version", "0.0.0-dev", "Artifact version string")
		seed        = flag.Int64("seed", 1, "Random seed")
		withAnomaly = flag.Bool("anomaly", true, "Include the anomaly detector")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rng := rand.New(rand.NewSource(*seed))

	art := model.Artifact{
		Version:      *version,
		TrainedAt:    time.Now().UTC(),
		FeatureNames: features.FeatureNames,
		Scoring:      randomNetwork(rng, []int{features.VectorSize, 128, 64, 32}),
	}
	if *withAnomaly {
		art.Anomaly = randomAutoencoder(rng, []int{features.VectorSize, 16, 8, 3})
	}

	if err := writeArtifact(*outputPath, art); err != nil {
		log.Fatal().Err(err).Str("path", *outputPath).Msg("write failed")
	}

	log.Info().
		Str("path", *outputPath).
		Str("version", *version).
		Bool("anomaly", *withAnomaly).
		Msg("artifact written")
}

// randomLinear draws Xavier-scaled weights so forward passes stay in the
// active range of the activations instead of saturating.
func randomLinear(rng *rand.Rand, inDim, outDim int) model.Linear {
	scale := math.Sqrt(2.0 / float64(inDim+outDim))
	l := model.Linear{
		Weights: make([][]float64, outDim),
		Biases:  make([]float64, outDim),
	}
	for i := range l.Weights {
		row := make([]float64, inDim)
		for j := range row {
			row[j] = rng.NormFloat64() * scale
		}
		l.Weights[i] = row
	}
	return l
}

func identityNorm(dim int) model.BatchNorm {
	bn := model.BatchNorm{
		Gamma:    make([]float64, dim),
		Beta:     make([]float64, dim),
		Mean:     make([]float64, dim),
		Variance: make([]float64, dim),
		Epsilon:  1e-5,
	}
	for i := 0; i < dim; i++ {
		bn.Gamma[i] = 1
		bn.Variance[i] = 1
	}
	return bn
}

// randomNetwork builds hidden blocks along widths and a single-output head.
func randomNetwork(rng *rand.Rand, widths []int) *model.Network {
	n := &model.Network{}
	for i := 0; i+1 < len(widths); i++ {
		n.Hidden = append(n.Hidden, model.HiddenLayer{
			Linear: randomLinear(rng, widths[i], widths[i+1]),
			Norm:   identityNorm(widths[i+1]),
		})
	}
	n.Output = randomLinear(rng, widths[len(widths)-1], 1)
	return n
}

// randomAutoencoder mirrors the encoder widths back out for the decoder.
func randomAutoencoder(rng *rand.Rand, widths []int) *model.Autoencoder {
	ae := &model.Autoencoder{}
	for i := 0; i+1 < len(widths); i++ {
		ae.Encoder = append(ae.Encoder, randomLinear(rng, widths[i], widths[i+1]))
	}
	for i := len(widths) - 1; i > 0; i-- {
		ae.Decoder = append(ae.Decoder, randomLinear(rng, widths[i], widths[i-1]))
	}
	return ae
}

func writeArtifact(path string, art model.Artifact) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
