package activation

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		x    float32
		want float64
	}{
		{name: "linear", kind: Linear, x: -2.5, want: -2.5},
		{name: "relu-negative", kind: ReLU, x: -1, want: 0},
		{name: "relu-positive", kind: ReLU, x: 3, want: 3},
		{name: "step-zero", kind: Step, x: 0, want: 1},
		{name: "step-negative", kind: Step, x: -0.001, want: 0},
		{name: "sigmoid", kind: Sigmoid, x: 0, want: 0.5},
		{name: "tanh", kind: Tanh, x: 1, want: math.Tanh(1)},
		{name: "atan", kind: Atan, x: 1, want: math.Pi / 4},
		{name: "softsign", kind: Softsign, x: -3, want: -0.75},
		{name: "softplus", kind: Softplus, x: 0, want: math.Ln2},
		{name: "gaussian", kind: Gaussian, x: 2, want: math.Exp(-4)},
		{name: "sinc-zero", kind: Sinc, x: 0, want: 1},
		{name: "sinc", kind: Sinc, x: math.Pi / 2, want: 2 / math.Pi},
		{name: "sin", kind: Sin, x: math.Pi / 2, want: 1},
		{name: "invalid-is-linear", kind: Kind(200), x: 7, want: 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.kind.Apply(tc.x)
			if math.Abs(float64(got)-tc.want) > 1e-6 {
				t.Fatalf("unexpected value: got=%f want=%f", got, tc.want)
			}
		})
	}
}

func TestParseKindAndMask(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("parse %s: %v", k, err)
		}
		if parsed != k {
			t.Fatalf("parse %s: got %s", k, parsed)
		}
	}
	if _, err := ParseKind("swish"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	m, err := ParseMask("sigmoid|Tanh step")
	if err != nil {
		t.Fatalf("parse mask: %v", err)
	}
	if m != MaskOf(Sigmoid, Tanh, Step) {
		t.Fatalf("unexpected mask: %s", m)
	}
	if m.String() != "step|sigmoid|tanh" {
		t.Fatalf("unexpected mask string: %q", m.String())
	}
	if anyMask, _ := ParseMask("any"); anyMask != Any {
		t.Fatalf("expected Any, got %s", anyMask)
	}
}

func TestMaskValid(t *testing.T) {
	if !Any.Valid() || !All.Valid() || !MaskOf(Sin).Valid() {
		t.Fatal("expected valid masks")
	}
	if Mask(1 << 20).Valid() {
		t.Fatal("mask without catalog bits must be invalid")
	}
	if (MaskOf(Linear) | 1<<30).Valid() {
		t.Fatal("mask with stray bits must be invalid")
	}
}

func TestRandomRespectsMask(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mask := MaskOf(Sigmoid, Gaussian)
	seen := map[Kind]int{}
	for i := 0; i < 2000; i++ {
		k := Random(rng, mask)
		if !mask.Allows(k) {
			t.Fatalf("drew disallowed kind %s", k)
		}
		seen[k]++
	}
	if len(seen) != 2 {
		t.Fatalf("expected both kinds drawn, got %v", seen)
	}
	for k, n := range seen {
		if n < 850 || n > 1150 {
			t.Fatalf("kind %s drawn %d times, expected roughly uniform", k, n)
		}
	}
}

func TestRandomAnyCoversCatalog(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[Kind]struct{}{}
	for i := 0; i < 1000; i++ {
		seen[Random(rng, Any)] = struct{}{}
	}
	if len(seen) != Count {
		t.Fatalf("expected all %d kinds, got %d", Count, len(seen))
	}
}
