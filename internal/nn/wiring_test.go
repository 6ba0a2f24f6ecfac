package nn

import (
	randv2 "math/rand/v2"
	"reflect"
	"testing"
)

func TestConnectionsDeterministic(t *testing.T) {
	tests := []struct {
		seed  uint64
		width int
		fanIn int
	}{
		{seed: 1, width: 10, fanIn: 4},
		{seed: 0xdeadbeef, width: 3, fanIn: 12},
		{seed: 1<<63 + 7, width: 1000, fanIn: 50},
		{seed: 42, width: 1, fanIn: 5},
	}
	for _, tc := range tests {
		first := Connections(tc.seed, tc.width, tc.fanIn)
		second := Connections(tc.seed, tc.width, tc.fanIn)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("seed %d: connections differ: %v vs %v", tc.seed, first, second)
		}
		if len(first) != tc.fanIn {
			t.Fatalf("seed %d: got %d connections want %d", tc.seed, len(first), tc.fanIn)
		}
		for _, c := range first {
			if c < 0 || c >= tc.width {
				t.Fatalf("seed %d: connection %d outside [0,%d)", tc.seed, c, tc.width)
			}
		}
	}
}

func TestConnectionsFollowSeededPCG(t *testing.T) {
	const seed, width, fanIn = 0x5eed, 1000003, 64
	rng := randv2.New(randv2.NewPCG(seed, seed^wiringStream))
	got := Connections(seed, width, fanIn)
	for j, c := range got {
		if want := int(rng.Uint64N(width)); c != want {
			t.Fatalf("connection %d: got %d want %d", j, c, want)
		}
	}
}

func TestConnectionsSeedZeroIsIdentity(t *testing.T) {
	got := Connections(0, 8, 5)
	want := []int{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected identity wiring: %v", got)
	}
}

func TestConnectionsDifferBySeed(t *testing.T) {
	a := Connections(1, 1<<20, 16)
	b := Connections(2, 1<<20, 16)
	if reflect.DeepEqual(a, b) {
		t.Fatal("distinct seeds produced identical wiring")
	}
}

func TestConnectionsCoverSource(t *testing.T) {
	seen := make(map[int]int)
	for _, c := range Connections(99, 8, 8000) {
		seen[c]++
	}
	if len(seen) != 8 {
		t.Fatalf("expected every source index drawn, got %v", seen)
	}
	for idx, n := range seen {
		if n < 800 || n > 1200 {
			t.Fatalf("index %d drawn %d times, expected roughly 1000", idx, n)
		}
	}
}

func TestSetSeedRegeneratesConnections(t *testing.T) {
	l, err := NewLayer(nil, 2, 50, 6, 0, false)
	if err != nil {
		t.Fatalf("new layer: %v", err)
	}
	l.SetSeed(1, 777)
	if !reflect.DeepEqual(l.Connections(1), Connections(777, 50, 6)) {
		t.Fatal("connections not derived from seed")
	}
	l.SetSeed(1, 0)
	if !reflect.DeepEqual(l.Connections(1), []int{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("expected identity wiring after reset, got %v", l.Connections(1))
	}
}
