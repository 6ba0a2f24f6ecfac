package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

var (
	ErrLayerShape     = errors.New("invalid layer shape")
	ErrLayerCount     = errors.New("network needs at least one layer")
	ErrFanIn          = errors.New("fan-in exceeds source width")
	ErrActivationMask = errors.New("invalid activation mask")
	ErrInputLength    = errors.New("input vector too short")
	ErrOutputRange    = errors.New("output index out of range")
	ErrIncompatible   = errors.New("networks are structurally incompatible")
	ErrMalformed      = errors.New("malformed network data")
)

// LayerParams describes one layer of a network.
type LayerParams struct {
	Neurons int
	FanIn   int
	Mask    activation.Mask
}

func (p LayerParams) String() string {
	return fmt.Sprintf("%dx%d:%s", p.Neurons, p.FanIn, p.Mask)
}

// Network is a strictly sequential stack of layers. Layer 0 reads the external
// input vector, every later layer reads the previous layer's outputs.
//
// Run writes per-layer scratch buffers, so a Network must not be run from two
// goroutines at once. Everything else about it is read-only during evaluation.
type Network struct {
	inputs int
	layers []*Layer
}

// New builds a network for inputs external values. Either every layer is built
// or an error is returned.
func New(rng *rand.Rand, inputs int, params []LayerParams, randomize bool) (*Network, error) {
	if inputs <= 0 {
		return nil, fmt.Errorf("%w: input count must be > 0, got %d", ErrLayerShape, inputs)
	}
	if len(params) == 0 {
		return nil, ErrLayerCount
	}

	layers := make([]*Layer, 0, len(params))
	width := inputs
	for i, p := range params {
		layer, err := NewLayer(rng, p.Neurons, width, p.FanIn, p.Mask, randomize)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, layer)
		width = p.Neurons
	}
	return &Network{inputs: inputs, layers: layers}, nil
}

func (n *Network) NumInputs() int  { return n.inputs }
func (n *Network) NumLayers() int  { return len(n.layers) }
func (n *Network) NumOutputs() int { return n.output().size }

// Layer returns layer i. It panics when i is out of range.
func (n *Network) Layer(i int) *Layer {
	if i < 0 || i >= len(n.layers) {
		panic(fmt.Sprintf("nn: layer index %d out of range [0,%d)", i, len(n.layers)))
	}
	return n.layers[i]
}

// OutputLayer is the last layer.
func (n *Network) OutputLayer() *Layer {
	return n.output()
}

func (n *Network) output() *Layer {
	return n.layers[len(n.layers)-1]
}

// LayerParams reports the shape the network was built with.
func (n *Network) LayerParams() []LayerParams {
	out := make([]LayerParams, len(n.layers))
	for i, l := range n.layers {
		out[i] = LayerParams{Neurons: l.size, FanIn: l.fanIn, Mask: l.mask}
	}
	return out
}

// ParamCount is the number of weights and biases in the network.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.layers {
		total += len(l.weights)
	}
	return total
}

// Run feeds inputs through every layer in order.
func (n *Network) Run(inputs []float32) error {
	if len(inputs) < n.inputs {
		return fmt.Errorf("%w: got %d values, network reads %d", ErrInputLength, len(inputs), n.inputs)
	}
	values := inputs
	for _, l := range n.layers {
		if err := l.Run(values); err != nil {
			return err
		}
		values = l.outputs
	}
	return nil
}

// Output returns value i of the last layer as computed by the previous Run.
func (n *Network) Output(i int) (float32, error) {
	out := n.output()
	if i < 0 || i >= out.size {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrOutputRange, i, out.size)
	}
	return out.outputs[i], nil
}

// Outputs returns a copy of the last layer's values.
func (n *Network) Outputs() []float32 {
	return append([]float32(nil), n.output().outputs...)
}

// Clone returns a deep copy with independent storage.
func (n *Network) Clone() *Network {
	layers := make([]*Layer, len(n.layers))
	for i, l := range n.layers {
		layers[i] = l.clone()
	}
	return &Network{inputs: n.inputs, layers: layers}
}

// Compatible checks that two networks can be crossed: same input count, layer
// count, and per-layer neuron count and fan-in.
func (n *Network) Compatible(other *Network) error {
	if n.inputs != other.inputs {
		return fmt.Errorf("%w: inputs %d != %d", ErrIncompatible, n.inputs, other.inputs)
	}
	if len(n.layers) != len(other.layers) {
		return fmt.Errorf("%w: layers %d != %d", ErrIncompatible, len(n.layers), len(other.layers))
	}
	for i, l := range n.layers {
		o := other.layers[i]
		if l.size != o.size || l.fanIn != o.fanIn {
			return fmt.Errorf("%w: layer %d is %dx%d vs %dx%d", ErrIncompatible, i, l.size, l.fanIn, o.size, o.fanIn)
		}
	}
	return nil
}

// Mutate perturbs every layer with the given per-value probability and returns
// how many weights and biases were changed.
func (n *Network) Mutate(rng *rand.Rand, rate float64) int {
	touched := 0
	for _, l := range n.layers {
		touched += l.mutate(rng, rate)
	}
	return touched
}

// Equal reports whether both networks have the same shape and the same seed,
// weights, bias and activation for every neuron. Float comparison is bitwise.
func (n *Network) Equal(other *Network) bool {
	if n.Compatible(other) != nil {
		return false
	}
	for i, l := range n.layers {
		o := other.layers[i]
		if l.mask != o.mask || l.sourceWidth != o.sourceWidth {
			return false
		}
		for k := range l.seeds {
			if l.seeds[k] != o.seeds[k] || l.activations[k] != o.activations[k] {
				return false
			}
		}
		for k := range l.weights {
			if floatBits(l.weights[k]) != floatBits(o.weights[k]) {
				return false
			}
		}
	}
	return true
}
