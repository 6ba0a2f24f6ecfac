package scape

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
)

const (
	// AdditionBits is the width of each operand and of the scored sum.
	AdditionBits = 8
	// AdditionAdvanceLimit is the mean per-bit error below which the
	// curriculum scores one more bit.
	AdditionAdvanceLimit = 0.15
)

// Addition feeds the low bits of two random integers to the network and
// scores the absolute distance between its outputs and the bits of their sum.
// Only the lowest Level() bits are scored. Minimised.
type Addition struct {
	bits atomic.Int32
}

func NewAddition(startBits int) (*Addition, error) {
	if startBits == 0 {
		startBits = 1
	}
	if startBits < 1 || startBits > AdditionBits {
		return nil, fmt.Errorf("addition: start bits %d outside [1,%d]", startBits, AdditionBits)
	}
	a := &Addition{}
	a.bits.Store(int32(startBits))
	return a, nil
}

func (*Addition) Name() string   { return "addition" }
func (*Addition) Inputs() int    { return 2 * AdditionBits }
func (*Addition) Outputs() int   { return AdditionBits }
func (*Addition) Minimise() bool { return true }

// Level is the number of output bits currently scored.
func (a *Addition) Level() int { return int(a.bits.Load()) }

// Advance scores one more bit once the best network's mean error per scored
// bit drops below AdditionAdvanceLimit.
func (a *Addition) Advance(best float64, trials int) bool {
	bits := a.bits.Load()
	if trials <= 0 || bits >= AdditionBits || math.IsNaN(best) || best < 0 {
		return false
	}
	if best/float64(trials)/float64(bits) >= AdditionAdvanceLimit {
		return false
	}
	return a.bits.CompareAndSwap(bits, bits+1)
}

func (a *Addition) Reset(seed int64) Episode {
	rng := rand.New(rand.NewSource(seed))
	ep := &additionEpisode{
		first:  uint32(rng.Int31()),
		second: uint32(rng.Int31()),
		bits:   a.Level(),
		in:     make([]float32, 2*AdditionBits),
	}
	for i := 0; i < AdditionBits; i++ {
		ep.in[i] = bit(ep.first, i)
		ep.in[AdditionBits+i] = bit(ep.second, i)
	}
	return ep
}

type additionEpisode struct {
	first, second uint32
	bits          int
	in            []float32
	score         float64
	done          bool
}

func (e *additionEpisode) Finished() bool     { return e.done }
func (e *additionEpisode) Observe() []float32 { return e.in }

func (e *additionEpisode) Step(outputs []float32) {
	sum := e.first + e.second
	for i := 0; i < e.bits; i++ {
		e.score += math.Abs(float64(outputs[i] - bit(sum, i)))
	}
	e.done = true
}

func (e *additionEpisode) Score() float64 { return e.score }

func bit(v uint32, i int) float32 {
	if v&(1<<i) != 0 {
		return 1
	}
	return 0
}
