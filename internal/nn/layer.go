package nn

import (
	"fmt"
	"math/rand"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

// Layer is a fixed-width slice of neurons. Per-neuron data lives in contiguous
// buffers: connections and weights are indexed neuron-major, and every neuron
// owns fanIn+1 weights with the bias in the last slot.
type Layer struct {
	size        int
	sourceWidth int
	fanIn       int
	mask        activation.Mask

	seeds       []uint64
	connections []int
	weights     []float32
	activations []activation.Kind
	outputs     []float32
}

// NewLayer allocates a layer reading from a source vector of sourceWidth values.
//
// Without randomize every neuron gets seed 0 (identity wiring), zero weights and
// the first activation allowed by mask. With randomize weights and biases are
// drawn from [-1/fanIn, 1/fanIn], seeds are fresh non-zero values and
// activations are drawn from mask. When fanIn equals sourceWidth the wiring is
// always the identity.
func NewLayer(rng *rand.Rand, size, sourceWidth, fanIn int, mask activation.Mask, randomize bool) (*Layer, error) {
	if err := checkShape(size, sourceWidth, fanIn, mask); err != nil {
		return nil, err
	}
	linear := !randomize || fanIn == sourceWidth
	if linear && fanIn > sourceWidth {
		return nil, fmt.Errorf("%w: fan-in %d exceeds source width %d with identity wiring", ErrFanIn, fanIn, sourceWidth)
	}
	if randomize && rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	l := newLayer(size, sourceWidth, fanIn, mask)
	if !randomize {
		return l, nil
	}

	limit := 1.0
	if fanIn > 0 {
		limit = 1.0 / float64(fanIn)
	}
	for i := 0; i < size; i++ {
		if !linear {
			l.setSeed(i, nonZeroSeed(rng))
		}
		for _, j := range l.weightRange(i) {
			l.weights[j] = float32(uniform(rng, -limit, limit))
		}
		l.activations[i] = activation.Random(rng, mask)
	}
	return l, nil
}

func checkShape(size, sourceWidth, fanIn int, mask activation.Mask) error {
	if size <= 0 {
		return fmt.Errorf("%w: neuron count must be > 0, got %d", ErrLayerShape, size)
	}
	if sourceWidth <= 0 {
		return fmt.Errorf("%w: source width must be > 0, got %d", ErrLayerShape, sourceWidth)
	}
	if fanIn < 0 {
		return fmt.Errorf("%w: fan-in must be >= 0, got %d", ErrLayerShape, fanIn)
	}
	if !mask.Valid() {
		return fmt.Errorf("%w: %s", ErrActivationMask, mask)
	}
	return nil
}

// newLayer allocates identity-wired storage without validating the fan-in
// against the source width; the codec replays seeds before checking that.
func newLayer(size, sourceWidth, fanIn int, mask activation.Mask) *Layer {
	l := &Layer{
		size:        size,
		sourceWidth: sourceWidth,
		fanIn:       fanIn,
		mask:        mask,
		seeds:       make([]uint64, size),
		connections: make([]int, size*fanIn),
		weights:     make([]float32, size*(fanIn+1)),
		activations: make([]activation.Kind, size),
		outputs:     make([]float32, size),
	}
	def := defaultActivation(mask)
	for i := 0; i < size; i++ {
		fillConnections(l.neuronConnections(i), 0, sourceWidth)
		l.activations[i] = def
	}
	return l
}

func defaultActivation(mask activation.Mask) activation.Kind {
	for _, k := range activation.Kinds() {
		if mask.Allows(k) {
			return k
		}
	}
	return activation.Linear
}

func nonZeroSeed(rng *rand.Rand) uint64 {
	for {
		if seed := rng.Uint64(); seed != 0 {
			return seed
		}
	}
}

func uniform(rng *rand.Rand, low, high float64) float64 {
	return rng.Float64()*(high-low) + low
}

func (l *Layer) Size() int                           { return l.size }
func (l *Layer) SourceWidth() int                    { return l.sourceWidth }
func (l *Layer) FanIn() int                          { return l.fanIn }
func (l *Layer) AllowedActivations() activation.Mask { return l.mask }

// Run computes every neuron's output from inputs, which must hold at least
// SourceWidth values.
func (l *Layer) Run(inputs []float32) error {
	if len(inputs) < l.sourceWidth {
		return fmt.Errorf("%w: got %d values, layer reads %d", ErrInputLength, len(inputs), l.sourceWidth)
	}
	stride := l.fanIn + 1
	for i := 0; i < l.size; i++ {
		w := l.weights[i*stride : (i+1)*stride]
		conns := l.connections[i*l.fanIn : (i+1)*l.fanIn]
		sum := w[l.fanIn]
		for j, src := range conns {
			sum += inputs[src] * w[j]
		}
		l.outputs[i] = l.activations[i].Apply(sum)
	}
	return nil
}

// Outputs returns the values computed by the last Run. The slice is owned by the
// layer and is overwritten by the next Run.
func (l *Layer) Outputs() []float32 {
	return l.outputs
}

func (l *Layer) Output(neuron int) float32 {
	l.checkNeuron(neuron)
	return l.outputs[neuron]
}

func (l *Layer) Seed(neuron int) uint64 {
	l.checkNeuron(neuron)
	return l.seeds[neuron]
}

// SetSeed installs a wiring seed and regenerates the neuron's connections.
// Seed 0 requires FanIn <= SourceWidth.
func (l *Layer) SetSeed(neuron int, seed uint64) {
	l.checkNeuron(neuron)
	if seed == 0 && l.fanIn > l.sourceWidth {
		panic(fmt.Sprintf("nn: identity wiring needs fan-in %d <= source width %d", l.fanIn, l.sourceWidth))
	}
	l.setSeed(neuron, seed)
}

func (l *Layer) setSeed(neuron int, seed uint64) {
	if l.seeds[neuron] == seed {
		return
	}
	l.seeds[neuron] = seed
	fillConnections(l.neuronConnections(neuron), seed, l.sourceWidth)
}

func (l *Layer) Bias(neuron int) float32 {
	l.checkNeuron(neuron)
	return l.weights[neuron*(l.fanIn+1)+l.fanIn]
}

func (l *Layer) SetBias(neuron int, bias float32) {
	l.checkNeuron(neuron)
	l.weights[neuron*(l.fanIn+1)+l.fanIn] = bias
}

func (l *Layer) Weight(neuron, index int) float32 {
	l.checkWeight(neuron, index)
	return l.weights[neuron*(l.fanIn+1)+index]
}

func (l *Layer) SetWeight(neuron, index int, weight float32) {
	l.checkWeight(neuron, index)
	l.weights[neuron*(l.fanIn+1)+index] = weight
}

// Weights returns a copy of the neuron's fan-in weights, bias excluded.
func (l *Layer) Weights(neuron int) []float32 {
	l.checkNeuron(neuron)
	start := neuron * (l.fanIn + 1)
	return append([]float32(nil), l.weights[start:start+l.fanIn]...)
}

func (l *Layer) Activation(neuron int) activation.Kind {
	l.checkNeuron(neuron)
	return l.activations[neuron]
}

func (l *Layer) SetActivation(neuron int, kind activation.Kind) {
	l.checkNeuron(neuron)
	if !kind.Valid() {
		panic(fmt.Sprintf("nn: invalid activation %d", uint8(kind)))
	}
	l.activations[neuron] = kind
}

func (l *Layer) Connection(neuron, index int) int {
	l.checkWeight(neuron, index)
	return l.connections[neuron*l.fanIn+index]
}

// Connections returns a copy of the neuron's source indices.
func (l *Layer) Connections(neuron int) []int {
	l.checkNeuron(neuron)
	return append([]int(nil), l.neuronConnections(neuron)...)
}

func (l *Layer) neuronConnections(neuron int) []int {
	return l.connections[neuron*l.fanIn : (neuron+1)*l.fanIn]
}

// weightRange lists the flat indices of the neuron's weights and bias.
func (l *Layer) weightRange(neuron int) []int {
	stride := l.fanIn + 1
	idx := make([]int, stride)
	for j := range idx {
		idx[j] = neuron*stride + j
	}
	return idx
}

func (l *Layer) clone() *Layer {
	return &Layer{
		size:        l.size,
		sourceWidth: l.sourceWidth,
		fanIn:       l.fanIn,
		mask:        l.mask,
		seeds:       append([]uint64(nil), l.seeds...),
		connections: append([]int(nil), l.connections...),
		weights:     append([]float32(nil), l.weights...),
		activations: append([]activation.Kind(nil), l.activations...),
		outputs:     make([]float32, l.size),
	}
}

// copyNeuron overwrites neuron i with the seed, wiring, weights and activation
// of the same neuron in src. Both layers must share a shape.
func (l *Layer) copyNeuron(src *Layer, i int) {
	stride := l.fanIn + 1
	l.seeds[i] = src.seeds[i]
	copy(l.neuronConnections(i), src.neuronConnections(i))
	copy(l.weights[i*stride:(i+1)*stride], src.weights[i*stride:(i+1)*stride])
	l.activations[i] = src.activations[i]
}

func (l *Layer) checkNeuron(neuron int) {
	if neuron < 0 || neuron >= l.size {
		panic(fmt.Sprintf("nn: neuron index %d out of range [0,%d)", neuron, l.size))
	}
}

func (l *Layer) checkWeight(neuron, index int) {
	l.checkNeuron(neuron)
	if index < 0 || index >= l.fanIn {
		panic(fmt.Sprintf("nn: weight index %d out of range [0,%d)", index, l.fanIn))
	}
}
