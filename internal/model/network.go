package model

import (
	"fmt"
	"math"
)

// Linear is one dense layer: out[i] = sum_j(Weights[i][j]*in[j]) + Biases[i].
type Linear struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// InputDim returns the expected input width of the layer.
func (l *Linear) InputDim() int {
	if len(l.Weights) == 0 {
		return 0
	}
	return len(l.Weights[0])
}

// OutputDim returns the output width of the layer.
func (l *Linear) OutputDim() int { return len(l.Weights) }

func (l *Linear) apply(in []float64) ([]float64, error) {
	if len(in) != l.InputDim() {
		return nil, fmt.Errorf("linear layer expects %d inputs, got %d", l.InputDim(), len(in))
	}
	out := make([]float64, len(l.Weights))
	for i, row := range l.Weights {
		sum := l.Biases[i]
		for j, w := range row {
			sum += w * in[j]
		}
		out[i] = sum
	}
	return out, nil
}

// BatchNorm holds the frozen inference-mode statistics of a batch
// normalization layer: y = Gamma*(x-Mean)/sqrt(Variance+Epsilon) + Beta.
type BatchNorm struct {
	Gamma    []float64 `json:"gamma"`
	Beta     []float64 `json:"beta"`
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`
	Epsilon  float64   `json:"epsilon"`
}

func (bn *BatchNorm) apply(in []float64) ([]float64, error) {
	if len(in) != len(bn.Gamma) {
		return nil, fmt.Errorf("batch norm expects %d inputs, got %d", len(bn.Gamma), len(in))
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = bn.Gamma[i]*(v-bn.Mean[i])/math.Sqrt(bn.Variance[i]+bn.Epsilon) + bn.Beta[i]
	}
	return out, nil
}

// HiddenLayer is one scoring-network block: Linear -> BatchNorm -> ReLU.
type HiddenLayer struct {
	Linear Linear    `json:"linear"`
	Norm   BatchNorm `json:"norm"`
}

// Network is the confidence regressor: a stack of hidden blocks of decreasing
// width followed by a single-output linear layer squashed through a sigmoid.
// All state is read-only after loading and may be shared without locking.
type Network struct {
	Hidden []HiddenLayer `json:"hidden"`
	Output Linear        `json:"output"`
}

// Score runs a forward pass and returns the confidence in [0,1].
// It is deterministic and defined for any real-valued input of the right
// dimension; a dimension mismatch is the only failure mode.
func (n *Network) Score(vec []float64) (float64, error) {
	x := vec
	for i := range n.Hidden {
		h := &n.Hidden[i]
		lin, err := h.Linear.apply(x)
		if err != nil {
			return 0, fmt.Errorf("hidden layer %d: %w", i, err)
		}
		normed, err := h.Norm.apply(lin)
		if err != nil {
			return 0, fmt.Errorf("hidden layer %d: %w", i, err)
		}
		x = relu(normed)
	}

	out, err := n.Output.apply(x)
	if err != nil {
		return 0, fmt.Errorf("output layer: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("output layer produced %d values, expected 1", len(out))
	}
	return sigmoid(out[0]), nil
}

// InputDim returns the feature-vector width the network was trained on.
func (n *Network) InputDim() int {
	if len(n.Hidden) > 0 {
		return n.Hidden[0].Linear.InputDim()
	}
	return n.Output.InputDim()
}

func (n *Network) validate() error {
	if len(n.Hidden) == 0 {
		return fmt.Errorf("scoring network has no hidden layers")
	}
	width := n.Hidden[0].Linear.InputDim()
	for i := range n.Hidden {
		h := &n.Hidden[i]
		if h.Linear.InputDim() != width {
			return fmt.Errorf("hidden layer %d expects %d inputs, previous layer outputs %d", i, h.Linear.InputDim(), width)
		}
		out := h.Linear.OutputDim()
		if len(h.Linear.Biases) != out {
			return fmt.Errorf("hidden layer %d: %d biases for %d outputs", i, len(h.Linear.Biases), out)
		}
		for _, name := range []struct {
			n int
			s string
		}{
			{len(h.Norm.Gamma), "gamma"},
			{len(h.Norm.Beta), "beta"},
			{len(h.Norm.Mean), "mean"},
			{len(h.Norm.Variance), "variance"},
		} {
			if name.n != out {
				return fmt.Errorf("hidden layer %d: batch norm %s has %d values for %d outputs", i, name.s, name.n, out)
			}
		}
		width = out
	}
	if n.Output.InputDim() != width {
		return fmt.Errorf("output layer expects %d inputs, last hidden layer outputs %d", n.Output.InputDim(), width)
	}
	if n.Output.OutputDim() != 1 {
		return fmt.Errorf("output layer produces %d values, expected 1", n.Output.OutputDim())
	}
	if len(n.Output.Biases) != 1 {
		return fmt.Errorf("output layer has %d biases, expected 1", len(n.Output.Biases))
	}
	return nil
}

func relu(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
