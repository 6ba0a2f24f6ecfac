package nn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

func newRandomNetwork(t *testing.T, seed int64) *Network {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	net, err := New(rng, 7, []LayerParams{
		{Neurons: 5, FanIn: 3, Mask: activation.MaskOf(activation.Sigmoid, activation.Tanh)},
		{Neurons: 4, FanIn: 5},
		{Neurons: 2, FanIn: 9, Mask: activation.MaskOf(activation.Sinc)},
	}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return net
}

func TestCodecRoundTrip(t *testing.T) {
	net := newRandomNetwork(t, 17)
	// exercise float edge cases in the bit-exact encoding
	net.Layer(0).SetWeight(0, 0, float32(math.Inf(-1)))
	net.Layer(0).SetBias(1, float32(math.Copysign(0, -1)))
	net.Layer(1).SetWeight(2, 4, math.SmallestNonzeroFloat32)

	data, err := net.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != net.EncodedSize() {
		t.Fatalf("encoded %d bytes, EncodedSize says %d", len(data), net.EncodedSize())
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(net) {
		t.Fatal("decoded network differs from source")
	}
	for li := 0; li < net.NumLayers(); li++ {
		want, got := net.Layer(li), decoded.Layer(li)
		if want.AllowedActivations() != got.AllowedActivations() {
			t.Fatalf("layer %d mask mismatch", li)
		}
		for i := 0; i < want.Size(); i++ {
			for j := 0; j < want.FanIn(); j++ {
				if want.Connection(i, j) != got.Connection(i, j) {
					t.Fatalf("layer %d neuron %d connection %d mismatch", li, i, j)
				}
			}
		}
	}

	again, err := decoded.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal decoded: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatal("re-encoding is not byte-identical")
	}
}

func TestCodecHeaderLayout(t *testing.T) {
	net := newNANDNetwork(t)
	data, _ := net.MarshalBinary()

	if got := binary.BigEndian.Uint64(data[0:8]); got != 2 {
		t.Fatalf("input count: got %d", got)
	}
	if got := binary.BigEndian.Uint64(data[8:16]); got != 2 {
		t.Fatalf("layer count: got %d", got)
	}
	if got := binary.BigEndian.Uint32(data[16:20]); got != uint32(activation.MaskOf(activation.Sigmoid)) {
		t.Fatalf("layer 0 mask: got %#x", got)
	}
	body := headerSize + 2*layerHeaderSize
	if got := binary.BigEndian.Uint64(data[body:]); got != 0 {
		t.Fatalf("first seed: got %d", got)
	}
	if got := math.Float32frombits(binary.BigEndian.Uint32(data[body+8:])); got != float32(-2.985651) {
		t.Fatalf("first weight: got %f", got)
	}
	if got := math.Float32frombits(binary.BigEndian.Uint32(data[body+16:])); got != float32(5.373516) {
		t.Fatalf("first bias: got %f", got)
	}
	if got := data[body+20]; got != byte(activation.Sigmoid) {
		t.Fatalf("first activation tag: got %d", got)
	}
	if len(data) != body+2*(8+4*2+4+1)+(8+4*2+4+1) {
		t.Fatalf("unexpected total length %d", len(data))
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := newRandomNetwork(t, 3).MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	zeroLayers := append([]byte(nil), valid[:16]...)
	binary.BigEndian.PutUint64(zeroLayers[8:], 0)

	hugeLayers := append([]byte(nil), valid...)
	binary.BigEndian.PutUint64(hugeLayers[8:], math.MaxUint64)

	hugeFanIn := append([]byte(nil), valid...)
	binary.BigEndian.PutUint64(hugeFanIn[16+12:], math.MaxUint64/2)

	badTag := append([]byte(nil), valid...)
	badTag[len(badTag)-1] = byte(activation.Count)

	badMask := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(badMask[16:], 1<<30)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short-header", data: valid[:10]},
		{name: "zero-layers", data: zeroLayers},
		{name: "huge-layer-count", data: hugeLayers},
		{name: "huge-fan-in", data: hugeFanIn},
		{name: "truncated-body", data: valid[:len(valid)-1]},
		{name: "truncated-layer-headers", data: valid[:30]},
		{name: "trailing", data: append(append([]byte(nil), valid...), 0)},
		{name: "bad-activation-tag", data: badTag},
		{name: "bad-mask", data: badMask},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			net, err := Decode(tc.data)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if net != nil {
				t.Fatal("expected no network on failure")
			}
		})
	}
}

func TestDecodeRejectsIdentityWiringWiderThanSource(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	net, err := New(rng, 2, []LayerParams{{Neurons: 1, FanIn: 4}}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	data, _ := net.MarshalBinary()
	binary.BigEndian.PutUint64(data[headerSize+layerHeaderSize:], 0)
	if _, err := Decode(data); !errors.Is(err, ErrFanIn) {
		t.Fatalf("expected ErrFanIn, got %v", err)
	}
}

func TestUnmarshalBinaryLeavesNetworkOnError(t *testing.T) {
	net := newNANDNetwork(t)
	before := net.Clone()
	if err := net.UnmarshalBinary([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error")
	}
	if !net.Equal(before) {
		t.Fatal("network modified by failed unmarshal")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net"+FileExt)
	net := newRandomNetwork(t, 44)
	if err := net.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(net) {
		t.Fatal("loaded network differs")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the network file, found %d entries", len(entries))
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
