package model

import "fmt"

// Autoencoder detects anomalous behavior through reconstruction error. The
// encoder compresses a feature vector onto a low-dimensional manifold and the
// decoder reconstructs it; patterns far from the training distribution
// reconstruct poorly and score high.
type Autoencoder struct {
	Encoder []Linear `json:"encoder"`
	Decoder []Linear `json:"decoder"`
}

// Anomaly returns the mean squared reconstruction error, always >= 0.
func (a *Autoencoder) Anomaly(vec []float64) (float64, error) {
	encoded, err := applyStack(a.Encoder, vec)
	if err != nil {
		return 0, fmt.Errorf("encoder: %w", err)
	}
	reconstructed, err := applyStack(a.Decoder, encoded)
	if err != nil {
		return 0, fmt.Errorf("decoder: %w", err)
	}
	if len(reconstructed) != len(vec) {
		return 0, fmt.Errorf("reconstruction has %d values, input has %d", len(reconstructed), len(vec))
	}

	var mse float64
	for i, v := range vec {
		d := reconstructed[i] - v
		mse += d * d
	}
	return mse / float64(len(vec)), nil
}

// Available reports that a real detector is configured.
func (a *Autoencoder) Available() bool { return true }

// applyStack runs a sequence of linear layers with ReLU between each pair.
// The final layer of a stack stays linear so encodings and reconstructions
// can take negative values.
func applyStack(layers []Linear, in []float64) ([]float64, error) {
	x := in
	for i := range layers {
		out, err := layers[i].apply(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if i < len(layers)-1 {
			out = relu(out)
		}
		x = out
	}
	return x, nil
}

func (a *Autoencoder) validate(inputDim int) error {
	if len(a.Encoder) == 0 || len(a.Decoder) == 0 {
		return fmt.Errorf("autoencoder needs both encoder and decoder layers")
	}
	width := inputDim
	for i, l := range append(append([]Linear{}, a.Encoder...), a.Decoder...) {
		if l.InputDim() != width {
			return fmt.Errorf("autoencoder layer %d expects %d inputs, got %d", i, width, l.InputDim())
		}
		if len(l.Biases) != l.OutputDim() {
			return fmt.Errorf("autoencoder layer %d: %d biases for %d outputs", i, len(l.Biases), l.OutputDim())
		}
		width = l.OutputDim()
	}
	if width != inputDim {
		return fmt.Errorf("autoencoder reconstructs %d values for %d inputs", width, inputDim)
	}
	return nil
}

// NoopAnomalyScorer is the null-object detector used when no anomaly model is
// configured. It returns the fixed neutral score 0.0 and reports itself
// unavailable so callers can distinguish "no anomaly" from "no detection".
type NoopAnomalyScorer struct{}

// Anomaly returns the neutral value 0.0.
func (NoopAnomalyScorer) Anomaly([]float64) (float64, error) { return 0, nil }

// Available reports that anomaly detection is not configured.
func (NoopAnomalyScorer) Available() bool { return false }
