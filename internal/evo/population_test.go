package evo

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

var testLayers = []nn.LayerParams{
	{Neurons: 6, FanIn: 3, Mask: activation.MaskOf(activation.Sigmoid, activation.Tanh)},
	{Neurons: 2, FanIn: 6},
}

func newTestPopulation(t *testing.T, size int, seed int64) *Population {
	t.Helper()
	pop, err := New(rand.New(rand.NewSource(seed)), size, 4, testLayers, true)
	if err != nil {
		t.Fatalf("new population: %v", err)
	}
	return pop
}

func TestNewRejectsTinyPopulation(t *testing.T) {
	for _, size := range []int{-1, 0, 1} {
		if _, err := New(rand.New(rand.NewSource(1)), size, 4, testLayers, true); !errors.Is(err, ErrPopulationSize) {
			t.Fatalf("size %d: expected ErrPopulationSize, got %v", size, err)
		}
	}
}

func TestNewPropagatesShapeErrors(t *testing.T) {
	_, err := New(nil, 3, 2, []nn.LayerParams{{Neurons: 1, FanIn: 5}}, false)
	if !errors.Is(err, nn.ErrFanIn) {
		t.Fatalf("expected ErrFanIn, got %v", err)
	}
}

func TestScoresStartUnscored(t *testing.T) {
	pop := newTestPopulation(t, 4, 1)
	for i := 0; i < pop.Size(); i++ {
		if pop.Score(i) != Unscored {
			t.Fatalf("slot %d: expected unscored, got %f", i, pop.Score(i))
		}
	}
	pop.SetScore(2, 7)
	if pop.Score(2) != 7 {
		t.Fatalf("set score not stored")
	}
	pop.ClearScores()
	if pop.Score(2) != Unscored {
		t.Fatalf("clear scores left %f", pop.Score(2))
	}
}

func TestBetterOrdersInvalidLast(t *testing.T) {
	tests := []struct {
		a, b     float64
		minimise bool
		want     bool
	}{
		{a: 1, b: 2, minimise: true, want: true},
		{a: 1, b: 2, minimise: false, want: false},
		{a: 0, b: Unscored, minimise: true, want: true},
		{a: 0, b: Unscored, minimise: false, want: true},
		{a: Unscored, b: 100, minimise: true, want: false},
		{a: math.NaN(), b: 3, minimise: false, want: false},
		{a: Unscored, b: -5, minimise: false, want: false},
	}
	for _, tc := range tests {
		if got := Better(tc.a, tc.b, tc.minimise); got != tc.want {
			t.Fatalf("Better(%v,%v,%v) = %v", tc.a, tc.b, tc.minimise, got)
		}
	}
}

func TestBest(t *testing.T) {
	pop := newTestPopulation(t, 5, 2)
	if idx, _ := pop.Best(false); idx != -1 {
		t.Fatalf("expected no best before scoring, got %d", idx)
	}
	for i, s := range []float64{3, -1, 9, 0, 5} {
		pop.SetScore(i, s)
	}
	if idx, score := pop.Best(false); idx != 2 || score != 9 {
		t.Fatalf("maximise best = %d/%f", idx, score)
	}
	if idx, score := pop.Best(true); idx != 3 || score != 0 {
		t.Fatalf("minimise best = %d/%f", idx, score)
	}
}

func TestQuotas(t *testing.T) {
	tests := []struct {
		size, elites, survivors int
	}{
		{size: 2, elites: 1, survivors: 1},
		{size: 10, elites: 1, survivors: 1},
		{size: 21, elites: 3, survivors: 2},
		{size: 75, elites: 8, survivors: 4},
		{size: 100, elites: 10, survivors: 5},
	}
	for _, tc := range tests {
		e, s := Quotas(tc.size)
		if e != tc.elites || s != tc.survivors {
			t.Fatalf("size %d: got %d/%d want %d/%d", tc.size, e, s, tc.elites, tc.survivors)
		}
	}
}

func TestRespawnKeepsSizeAndElites(t *testing.T) {
	for _, minimise := range []bool{false, true} {
		pop := newTestPopulation(t, 30, 3)
		rng := rand.New(rand.NewSource(9))
		for i := 0; i < pop.Size(); i++ {
			pop.SetScore(i, float64(rng.Intn(1000)))
		}
		pop.SetScore(4, Unscored)

		var want []*nn.Network
		order := make([]int, 0, pop.Size())
		for i := 0; i < pop.Size(); i++ {
			order = append(order, i)
		}
		elites, _ := Quotas(pop.Size())
		for n := 0; n < elites; n++ {
			best := -1
			for _, i := range order {
				if best < 0 || Better(pop.Score(i), pop.Score(best), minimise) {
					best = i
				}
			}
			want = append(want, pop.Individual(best).Clone())
			for k, i := range order {
				if i == best {
					order = append(order[:k], order[k+1:]...)
					break
				}
			}
		}

		res, err := pop.Respawn(rng, minimise)
		if err != nil {
			t.Fatalf("respawn: %v", err)
		}
		if pop.Size() != 30 {
			t.Fatalf("size changed to %d", pop.Size())
		}
		if res.Elites != elites || res.Elites+res.Survivors+res.Children != 30 {
			t.Fatalf("unexpected result %+v", res)
		}
		for i, w := range want {
			if !pop.Individual(i).Equal(w) {
				t.Fatalf("minimise=%v: elite %d changed", minimise, i)
			}
		}
		for i := 0; i < pop.Size(); i++ {
			if err := pop.Individual(i).Compatible(pop.Individual(0)); err != nil {
				t.Fatalf("slot %d incompatible: %v", i, err)
			}
			if pop.Score(i) != Unscored {
				t.Fatalf("slot %d kept score %f", i, pop.Score(i))
			}
		}
	}
}

func TestRespawnProducesFreshChildren(t *testing.T) {
	pop := newTestPopulation(t, 12, 4)
	for i := 0; i < pop.Size(); i++ {
		pop.SetScore(i, float64(i))
	}
	before := make(map[*nn.Network]bool)
	for i := 0; i < pop.Size(); i++ {
		before[pop.Individual(i)] = true
	}
	res, err := pop.Respawn(rand.New(rand.NewSource(5)), false)
	if err != nil {
		t.Fatalf("respawn: %v", err)
	}
	retained := res.Elites + res.Survivors
	for i := 0; i < pop.Size(); i++ {
		if i < retained && !before[pop.Individual(i)] {
			t.Fatalf("retained slot %d holds a new network", i)
		}
		if i >= retained && before[pop.Individual(i)] {
			t.Fatalf("child slot %d reuses a parent", i)
		}
	}
	if res.BestScore != 11 {
		t.Fatalf("best score %f, want 11", res.BestScore)
	}
}

func TestRespawnSmallestPopulation(t *testing.T) {
	pop := newTestPopulation(t, 2, 6)
	pop.SetScore(0, 1)
	pop.SetScore(1, 2)
	a, b := pop.Individual(0), pop.Individual(1)
	res, err := pop.Respawn(rand.New(rand.NewSource(1)), false)
	if err != nil {
		t.Fatalf("respawn: %v", err)
	}
	if res.Children != 0 {
		t.Fatalf("expected no children, got %d", res.Children)
	}
	if pop.Individual(0) != b || pop.Individual(1) != a {
		t.Fatal("expected best first and the other kept as survivor")
	}
}

func TestRespawnFailsOnIncompatibleReplacement(t *testing.T) {
	pop := newTestPopulation(t, 4, 7)
	odd, err := nn.New(rand.New(rand.NewSource(1)), 4, []nn.LayerParams{{Neurons: 2, FanIn: 2}}, true)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	for i := 1; i < pop.Size(); i++ {
		pop.Replace(i, odd.Clone())
		pop.SetScore(i, float64(i))
	}
	pop.SetScore(0, 10)
	if _, err := pop.Respawn(rand.New(rand.NewSource(2)), false); !errors.Is(err, nn.ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}
	if pop.Score(0) != 10 {
		t.Fatal("failed respawn cleared scores")
	}
}
