package nn

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

const (
	headerSize      = 8 + 8
	layerHeaderSize = 4 + 8 + 8
	// per neuron: seed + bias + activation tag, weights counted separately
	neuronFixedSize = 8 + 4 + 1
)

func floatBits(v float32) uint32 {
	return math.Float32bits(v)
}

func floatFromBits(b uint32) float32 {
	return math.Float32frombits(b)
}

// EncodedSize is the exact length of MarshalBinary's output.
func (n *Network) EncodedSize() int {
	size := headerSize + layerHeaderSize*len(n.layers)
	for _, l := range n.layers {
		size += l.size * (neuronFixedSize + 4*l.fanIn)
	}
	return size
}

// MarshalBinary encodes the network. All integers are big-endian and floats are
// written as their IEEE-754 bit patterns:
//
//	u64 input_count
//	u64 layer_count
//	per layer:  u32 mask, u64 neuron_count, u64 fan_in
//	per layer, per neuron: u64 seed, fan_in x f32 weight, f32 bias, u8 activation
//
// Connections are not written; they are re-derived from the seeds.
func (n *Network) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, n.EncodedSize())
	buf = binary.BigEndian.AppendUint64(buf, uint64(n.inputs))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(n.layers)))
	for _, l := range n.layers {
		buf = binary.BigEndian.AppendUint32(buf, uint32(l.mask))
		buf = binary.BigEndian.AppendUint64(buf, uint64(l.size))
		buf = binary.BigEndian.AppendUint64(buf, uint64(l.fanIn))
	}
	for _, l := range n.layers {
		stride := l.fanIn + 1
		for i := 0; i < l.size; i++ {
			buf = binary.BigEndian.AppendUint64(buf, l.seeds[i])
			for _, w := range l.weights[i*stride : (i+1)*stride] {
				buf = binary.BigEndian.AppendUint32(buf, floatBits(w))
			}
			buf = append(buf, byte(l.activations[i]))
		}
	}
	return buf, nil
}

// UnmarshalBinary replaces n with the decoded network. On error n is unchanged.
func (n *Network) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

type layerHeader struct {
	mask    activation.Mask
	neurons int
	fanIn   int
}

// Decode rebuilds a network from MarshalBinary output. The header is checked
// against the buffer length before anything is allocated, and a truncated,
// oversized or inconsistent buffer yields an ErrMalformed error.
func Decode(data []byte) (*Network, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	inputs := binary.BigEndian.Uint64(data[0:8])
	layerCount := binary.BigEndian.Uint64(data[8:16])
	if layerCount == 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrLayerCount)
	}
	if inputs == 0 || inputs > math.MaxInt32 {
		return nil, fmt.Errorf("%w: input count %d", ErrMalformed, inputs)
	}
	remaining := uint64(len(data) - headerSize)
	if hi, lo := bits.Mul64(layerCount, layerHeaderSize); hi != 0 || lo > remaining {
		return nil, fmt.Errorf("%w: %d layer headers do not fit in %d bytes", ErrMalformed, layerCount, remaining)
	}

	headers := make([]layerHeader, layerCount)
	off := headerSize
	want := uint64(headerSize) + layerCount*layerHeaderSize
	for i := range headers {
		mask := activation.Mask(binary.BigEndian.Uint32(data[off:]))
		neurons := binary.BigEndian.Uint64(data[off+4:])
		fanIn := binary.BigEndian.Uint64(data[off+12:])
		off += layerHeaderSize

		if !mask.Valid() {
			return nil, fmt.Errorf("%w: layer %d: %w", ErrMalformed, i, ErrActivationMask)
		}
		if neurons == 0 {
			return nil, fmt.Errorf("%w: layer %d has no neurons", ErrMalformed, i)
		}
		perNeuron, ok := mulAdd(fanIn, 4, neuronFixedSize)
		if !ok {
			return nil, fmt.Errorf("%w: layer %d fan-in %d", ErrMalformed, i, fanIn)
		}
		layerBytes, ok := mulAdd(neurons, perNeuron, 0)
		if !ok {
			return nil, fmt.Errorf("%w: layer %d size overflows", ErrMalformed, i)
		}
		if want, ok = addChecked(want, layerBytes); !ok || want > uint64(len(data)) {
			return nil, fmt.Errorf("%w: layer %d needs more than the %d bytes available", ErrMalformed, i, len(data))
		}
		headers[i] = layerHeader{mask: mask, neurons: int(neurons), fanIn: int(fanIn)}
	}
	if want != uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, uint64(len(data))-want)
	}

	net := &Network{inputs: int(inputs), layers: make([]*Layer, len(headers))}
	width := net.inputs
	for i, h := range headers {
		l := newLayer(h.neurons, width, h.fanIn, h.mask)
		stride := h.fanIn + 1
		for k := 0; k < h.neurons; k++ {
			seed := binary.BigEndian.Uint64(data[off:])
			off += 8
			if seed == 0 && h.fanIn > width {
				return nil, fmt.Errorf("%w: layer %d neuron %d: %w", ErrMalformed, i, k, ErrFanIn)
			}
			l.setSeed(k, seed)
			for j := 0; j < stride; j++ {
				l.weights[k*stride+j] = floatFromBits(binary.BigEndian.Uint32(data[off:]))
				off += 4
			}
			kind := activation.Kind(data[off])
			off++
			if !kind.Valid() {
				return nil, fmt.Errorf("%w: layer %d neuron %d: activation tag %d", ErrMalformed, i, k, uint8(kind))
			}
			l.activations[k] = kind
		}
		net.layers[i] = l
		width = h.neurons
	}
	return net, nil
}

func mulAdd(a, b, c uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, false
	}
	return addChecked(lo, c)
}

func addChecked(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}
