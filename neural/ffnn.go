// Package neural provides the small feedforward network behind the learned
// driving policy.
package neural

import (
	"fmt"
	"math"
	"math/rand"
)

// NumOutputs is fixed: steering and throttle.
const NumOutputs = 2

// FFNN is a two-layer feedforward network with a tanh hidden layer.
// Weights are stored row-major: W1[h*inputs+i], W2[o*hidden+h].
type FFNN struct {
	inputs int
	hidden int

	W1 []float64 // input -> hidden weights
	B1 []float64 // hidden biases
	W2 []float64 // hidden -> output weights
	B2 []float64 // output biases
}

// NewFFNN creates a randomly initialized network.
func NewFFNN(rng *rand.Rand, inputs, hidden int) *FFNN {
	nn := newZero(inputs, hidden)

	// Xavier initialization
	scale1 := math.Sqrt(2.0 / float64(inputs))
	scale2 := math.Sqrt(2.0 / float64(hidden))

	for i := range nn.W1 {
		nn.W1[i] = rng.NormFloat64() * scale1
	}
	for i := range nn.W2 {
		nn.W2[i] = rng.NormFloat64() * scale2
	}

	// Throttle output activation is saturate01(raw*0.5 + 0.5); a small
	// positive bias gets fresh networks off the line.
	nn.B2[1] = 0.5

	return nn
}

func newZero(inputs, hidden int) *FFNN {
	return &FFNN{
		inputs: inputs,
		hidden: hidden,
		W1:     make([]float64, hidden*inputs),
		B1:     make([]float64, hidden),
		W2:     make([]float64, NumOutputs*hidden),
		B2:     make([]float64, NumOutputs),
	}
}

// Inputs returns the input width.
func (nn *FFNN) Inputs() int { return nn.inputs }

// Hidden returns the hidden layer width.
func (nn *FFNN) Hidden() int { return nn.hidden }

// Forward computes the network output.
// Returns: steering [-1,1], throttle [0,1]
// Missing inputs read as zero; extra inputs are ignored.
func (nn *FFNN) Forward(inputs []float64) (steering, throttle float64) {
	n := min(len(inputs), nn.inputs)

	// Hidden layer
	hidden := make([]float64, nn.hidden)
	for h := 0; h < nn.hidden; h++ {
		sum := nn.B1[h]
		row := nn.W1[h*nn.inputs : (h+1)*nn.inputs]
		for i := 0; i < n; i++ {
			sum += row[i] * inputs[i]
		}
		hidden[h] = tanh(sum)
	}

	// Output layer
	var outputs [NumOutputs]float64
	for o := 0; o < NumOutputs; o++ {
		sum := nn.B2[o]
		row := nn.W2[o*nn.hidden : (o+1)*nn.hidden]
		for h, v := range hidden {
			sum += row[h] * v
		}
		outputs[o] = sum
	}

	// tanh for steering, saturating linear for throttle
	steering = tanh(outputs[0])
	throttle = saturate01(outputs[1]*0.5 + 0.5)

	return steering, throttle
}

// saturate01 clamps x to [0, 1].
func saturate01(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x
}

// tanh uses a rational approximation, exact at 0 and saturating past |x| > 3.
func tanh(x float64) float64 {
	if x > 3 {
		return 1
	}
	if x < -3 {
		return -1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	clone := newZero(nn.inputs, nn.hidden)
	copy(clone.W1, nn.W1)
	copy(clone.B1, nn.B1)
	copy(clone.W2, nn.W2)
	copy(clone.B2, nn.B2)
	return clone
}

// NumParams returns the length of the flat parameter vector.
func NumParams(inputs, hidden int) int {
	return hidden*inputs + hidden + NumOutputs*hidden + NumOutputs
}

// Params returns all weights and biases as one vector in W1, B1, W2, B2 order.
func (nn *FFNN) Params() []float64 {
	p := make([]float64, 0, NumParams(nn.inputs, nn.hidden))
	p = append(p, nn.W1...)
	p = append(p, nn.B1...)
	p = append(p, nn.W2...)
	return append(p, nn.B2...)
}

// SetParams loads a vector produced by Params.
func (nn *FFNN) SetParams(p []float64) error {
	if want := NumParams(nn.inputs, nn.hidden); len(p) != want {
		return fmt.Errorf("neural: got %d params, want %d", len(p), want)
	}
	p = p[copy(nn.W1, p):]
	p = p[copy(nn.B1, p):]
	p = p[copy(nn.W2, p):]
	copy(nn.B2, p)
	return nil
}

// FromParams builds a network of the given shape from a flat vector.
func FromParams(inputs, hidden int, p []float64) (*FFNN, error) {
	nn := newZero(inputs, hidden)
	if err := nn.SetParams(p); err != nil {
		return nil, err
	}
	return nn, nil
}

// BrainWeights holds flattened network weights for serialization.
type BrainWeights struct {
	Inputs int       `json:"inputs"`
	Hidden int       `json:"hidden"`
	W1     []float64 `json:"w1"` // [Hidden * Inputs]
	B1     []float64 `json:"b1"` // [Hidden]
	W2     []float64 `json:"w2"` // [NumOutputs * Hidden]
	B2     []float64 `json:"b2"` // [NumOutputs]
}

// MarshalWeights copies the network weights for JSON serialization.
func (nn *FFNN) MarshalWeights() BrainWeights {
	c := nn.Clone()
	return BrainWeights{
		Inputs: c.inputs,
		Hidden: c.hidden,
		W1:     c.W1,
		B1:     c.B1,
		W2:     c.W2,
		B2:     c.B2,
	}
}

// UnmarshalWeights builds a network from serialized weights.
func UnmarshalWeights(bw BrainWeights) (*FFNN, error) {
	if bw.Inputs <= 0 || bw.Hidden <= 0 {
		return nil, fmt.Errorf("neural: invalid shape %dx%d", bw.Inputs, bw.Hidden)
	}
	nn := newZero(bw.Inputs, bw.Hidden)
	for _, l := range []struct {
		name     string
		dst, src []float64
	}{
		{"w1", nn.W1, bw.W1},
		{"b1", nn.B1, bw.B1},
		{"w2", nn.W2, bw.W2},
		{"b2", nn.B2, bw.B2},
	} {
		if len(l.src) != len(l.dst) {
			return nil, fmt.Errorf("neural: %s has %d values, want %d", l.name, len(l.src), len(l.dst))
		}
		copy(l.dst, l.src)
	}
	return nn, nil
}
