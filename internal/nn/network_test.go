package nn

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

func newNANDNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := New(nil, 2, []LayerParams{
		{Neurons: 2, FanIn: 2, Mask: activation.MaskOf(activation.Sigmoid)},
		{Neurons: 1, FanIn: 2, Mask: activation.MaskOf(activation.Step)},
	}, false)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}

	hidden := net.Layer(0)
	hidden.SetWeight(0, 0, -2.985651)
	hidden.SetWeight(0, 1, -4.935944)
	hidden.SetBias(0, 5.373516)
	hidden.SetWeight(1, 0, 3.971738)
	hidden.SetWeight(1, 1, 1.763571)
	hidden.SetBias(1, -3.553529)

	out := net.OutputLayer()
	out.SetWeight(0, 0, -0.717844)
	out.SetWeight(0, 1, -10.556825)
	out.SetBias(0, 7.640961)
	return net
}

func TestNetworkComputesNAND(t *testing.T) {
	net := newNANDNetwork(t)
	if got := net.Layer(0).Activation(0); got != activation.Sigmoid {
		t.Fatalf("expected sigmoid default activation, got %s", got)
	}
	if got := net.OutputLayer().Activation(0); got != activation.Step {
		t.Fatalf("expected step default activation, got %s", got)
	}

	tests := []struct {
		in   []float32
		want float32
	}{
		{in: []float32{0, 0}, want: 1},
		{in: []float32{0, 1}, want: 1},
		{in: []float32{1, 0}, want: 1},
		{in: []float32{1, 1}, want: 0},
	}
	for _, tc := range tests {
		if err := net.Run(tc.in); err != nil {
			t.Fatalf("run %v: %v", tc.in, err)
		}
		got, err := net.Output(0)
		if err != nil {
			t.Fatalf("output: %v", err)
		}
		if got != tc.want {
			t.Fatalf("nand%v: got=%f want=%f", tc.in, got, tc.want)
		}
	}
}

func TestNetworkRunIsRepeatable(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	net, err := New(rng, 6, []LayerParams{
		{Neurons: 8, FanIn: 3},
		{Neurons: 4, FanIn: 8},
		{Neurons: 2, FanIn: 5},
	}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}

	in := []float32{0.1, -0.4, 0.9, 0.3, -1, 0.25}
	if err := net.Run(in); err != nil {
		t.Fatalf("run: %v", err)
	}
	first := net.Outputs()
	if err := net.Run([]float32{5, 5, 5, 5, 5, 5}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := net.Run(in); err != nil {
		t.Fatalf("run: %v", err)
	}
	second := net.Outputs()
	for i := range first {
		if floatBits(first[i]) != floatBits(second[i]) {
			t.Fatalf("output %d changed between runs: %v vs %v", i, first, second)
		}
	}
}

func TestNetworkOutputOutOfRange(t *testing.T) {
	net := newNANDNetwork(t)
	if _, err := net.Output(1); !errors.Is(err, ErrOutputRange) {
		t.Fatalf("expected ErrOutputRange, got %v", err)
	}
	if _, err := net.Output(-1); !errors.Is(err, ErrOutputRange) {
		t.Fatalf("expected ErrOutputRange, got %v", err)
	}
}

func TestNetworkRunRejectsShortInput(t *testing.T) {
	net := newNANDNetwork(t)
	if err := net.Run([]float32{1}); !errors.Is(err, ErrInputLength) {
		t.Fatalf("expected ErrInputLength, got %v", err)
	}
}

func TestNewRejectsInvalidShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name      string
		inputs    int
		params    []LayerParams
		randomize bool
		want      error
	}{
		{name: "no-layers", inputs: 2, want: ErrLayerCount},
		{name: "no-inputs", inputs: 0, params: []LayerParams{{Neurons: 1, FanIn: 0}}, want: ErrLayerShape},
		{name: "empty-layer", inputs: 2, params: []LayerParams{{Neurons: 0, FanIn: 1}}, want: ErrLayerShape},
		{name: "linear-fan-in", inputs: 2, params: []LayerParams{{Neurons: 1, FanIn: 3}}, want: ErrFanIn},
		{name: "later-layer-fan-in", inputs: 4, params: []LayerParams{{Neurons: 2, FanIn: 4}, {Neurons: 1, FanIn: 3}}, want: ErrFanIn},
		{name: "bad-mask", inputs: 2, params: []LayerParams{{Neurons: 1, FanIn: 1, Mask: 1 << 25}}, want: ErrActivationMask},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			net, err := New(rng, tc.inputs, tc.params, tc.randomize)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if net != nil {
				t.Fatal("expected no network on failure")
			}
		})
	}
}

func TestRandomWiringAllowsWideFanIn(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	net, err := New(rng, 3, []LayerParams{{Neurons: 4, FanIn: 10}}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	l := net.Layer(0)
	for i := 0; i < l.Size(); i++ {
		if l.Seed(i) == 0 {
			t.Fatalf("neuron %d kept identity wiring", i)
		}
		for _, c := range l.Connections(i) {
			if c < 0 || c >= 3 {
				t.Fatalf("connection %d outside source width", c)
			}
		}
	}
	if err := net.Run([]float32{1, 2, 3}); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRandomizeForcesLinearWiringWhenFanInMatchesWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	net, err := New(rng, 5, []LayerParams{{Neurons: 3, FanIn: 5}, {Neurons: 2, FanIn: 1}}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	for i := 0; i < 3; i++ {
		if net.Layer(0).Seed(i) != 0 {
			t.Fatalf("expected linear wiring for full fan-in neuron %d", i)
		}
	}
	for i := 0; i < 2; i++ {
		if net.Layer(1).Seed(i) == 0 {
			t.Fatalf("expected random wiring for sparse neuron %d", i)
		}
	}
	limit := float32(1.0 / 5)
	for i := 0; i < 3; i++ {
		for _, w := range net.Layer(0).Weights(i) {
			if w < -limit || w > limit {
				t.Fatalf("weight %f outside [-%f, %f]", w, limit, limit)
			}
		}
	}
}

func TestZeroFanInUsesBiasOnly(t *testing.T) {
	net, err := New(nil, 3, []LayerParams{{Neurons: 1, FanIn: 0, Mask: activation.MaskOf(activation.Linear)}}, false)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	net.OutputLayer().SetBias(0, 0.75)
	if err := net.Run([]float32{9, 9, 9}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, _ := net.Output(0); got != 0.75 {
		t.Fatalf("expected bias passthrough, got %f", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	net, err := New(rng, 4, []LayerParams{{Neurons: 3, FanIn: 2}, {Neurons: 1, FanIn: 3}}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	clone := net.Clone()
	if !clone.Equal(net) {
		t.Fatal("clone differs from source")
	}
	clone.Layer(0).SetBias(0, 42)
	clone.Layer(0).SetSeed(1, 12345)
	if net.Layer(0).Bias(0) == 42 || net.Layer(0).Seed(1) == 12345 {
		t.Fatal("clone shares storage with source")
	}
	if clone.Equal(net) {
		t.Fatal("expected modified clone to differ")
	}
}

func TestAccessorsPanicOnBadIndex(t *testing.T) {
	net := newNANDNetwork(t)
	tests := map[string]func(){
		"layer":  func() { net.Layer(2) },
		"neuron": func() { net.Layer(0).Bias(2) },
		"weight": func() { net.Layer(0).Weight(0, 2) },
		"seed":   func() { net.OutputLayer().SetSeed(-1, 1) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestLayerParamsAndCompatibility(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	params := []LayerParams{{Neurons: 3, FanIn: 2}, {Neurons: 2, FanIn: 3}}
	a, _ := New(rng, 4, params, true)
	b, _ := New(rng, 4, params, true)
	if err := a.Compatible(b); err != nil {
		t.Fatalf("expected compatible networks: %v", err)
	}
	got := a.LayerParams()
	if len(got) != 2 || got[0] != params[0] || got[1] != params[1] {
		t.Fatalf("unexpected layer params: %v", got)
	}
	if a.ParamCount() != 3*3+2*4 {
		t.Fatalf("unexpected param count: %d", a.ParamCount())
	}

	c, _ := New(rng, 4, []LayerParams{{Neurons: 3, FanIn: 1}, {Neurons: 2, FanIn: 3}}, true)
	if err := a.Compatible(c); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}
	d, _ := New(rng, 5, params, true)
	if err := a.Compatible(d); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}
}
