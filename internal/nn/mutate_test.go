package nn

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestMutateZeroRateIsNoop(t *testing.T) {
	net := newRandomNetwork(t, 5)
	before, _ := net.MarshalBinary()
	if n := net.Mutate(rand.New(rand.NewSource(1)), 0); n != 0 {
		t.Fatalf("expected no mutations, got %d", n)
	}
	after, _ := net.MarshalBinary()
	if !bytes.Equal(before, after) {
		t.Fatal("zero-rate mutation changed the network")
	}
}

func TestMutateFullRateTouchesEveryValueButNotSeeds(t *testing.T) {
	net := newRandomNetwork(t, 6)
	before := net.Clone()
	n := net.Mutate(rand.New(rand.NewSource(2)), 1)
	if n != net.ParamCount() {
		t.Fatalf("touched %d values, want %d", n, net.ParamCount())
	}
	changed := 0
	for li := 0; li < net.NumLayers(); li++ {
		l, orig := net.Layer(li), before.Layer(li)
		for i := 0; i < l.Size(); i++ {
			if l.Seed(i) != orig.Seed(i) {
				t.Fatalf("layer %d neuron %d seed mutated", li, i)
			}
			for j := 0; j < l.FanIn(); j++ {
				if l.Connection(i, j) != orig.Connection(i, j) {
					t.Fatalf("layer %d neuron %d wiring changed", li, i)
				}
				if l.Weight(i, j) != orig.Weight(i, j) {
					changed++
				}
			}
			if !l.AllowedActivations().Allows(l.Activation(i)) {
				t.Fatalf("layer %d neuron %d re-rolled to disallowed %s", li, i, l.Activation(i))
			}
		}
	}
	if changed == 0 {
		t.Fatal("no weight changed under full-rate mutation")
	}
}

func TestMutateRateIsApproximate(t *testing.T) {
	net := newRandomNetwork(t, 7)
	rng := rand.New(rand.NewSource(3))
	total := 0
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		total += net.Mutate(rng, 0.1)
	}
	want := 0.1 * float64(rounds*net.ParamCount())
	if got := float64(total); got < want*0.9 || got > want*1.1 {
		t.Fatalf("mutated %d values, expected about %.0f", total, want)
	}
}

func TestValueOpDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	counts := make(map[ValueOp]int)
	const draws = 31000
	for i := 0; i < draws; i++ {
		counts[pickValueOp(rng)]++
	}
	want := map[ValueOp]int{
		OpAdd:      10000,
		OpSubtract: 10000,
		OpMultiply: 5000,
		OpDivide:   5000,
		OpReplace:  1000,
	}
	for op, w := range want {
		got := counts[op]
		if got < w*85/100 || got > w*115/100 {
			t.Fatalf("%s drawn %d times, expected about %d", op, got, w)
		}
	}
}

func TestApplyValueOpRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	const v = float32(2)
	tests := []struct {
		op       ValueOp
		low, max float32
	}{
		{op: OpAdd, low: 2, max: 3},
		{op: OpSubtract, low: 1, max: 2},
		{op: OpMultiply, low: 2, max: 6},
		{op: OpDivide, low: 2.0 / 3, max: 2},
		{op: OpReplace, low: -5, max: 5},
	}
	for _, tc := range tests {
		for i := 0; i < 500; i++ {
			got := applyValueOp(rng, tc.op, v)
			if got < tc.low || got > tc.max {
				t.Fatalf("%s: %f outside [%f,%f]", tc.op, got, tc.low, tc.max)
			}
		}
	}
}
