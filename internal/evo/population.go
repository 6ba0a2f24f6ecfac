package evo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

// Unscored marks an individual that has not been evaluated since the last
// ClearScores or respawn.
const Unscored = -1.0

const (
	EliteFraction    = 0.10
	SurvivorFraction = 0.05
)

var ErrPopulationSize = errors.New("population needs at least two individuals")

type member struct {
	net   *nn.Network
	score float64
}

// Population is a fixed-size set of networks and their scores.
type Population struct {
	members      []member
	mutationRate float64
}

// New builds size networks with the same shape. randomize is passed through to
// nn.New for every individual.
func New(rng *rand.Rand, size, inputs int, params []nn.LayerParams, randomize bool) (*Population, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrPopulationSize, size)
	}
	members := make([]member, size)
	for i := range members {
		net, err := nn.New(rng, inputs, params, randomize)
		if err != nil {
			return nil, fmt.Errorf("individual %d: %w", i, err)
		}
		members[i] = member{net: net, score: Unscored}
	}
	return &Population{members: members, mutationRate: nn.DefaultMutationRate}, nil
}

func (p *Population) Size() int { return len(p.members) }

// MutationRate is the per-value rate applied to offspring during Respawn.
func (p *Population) MutationRate() float64 { return p.mutationRate }

func (p *Population) SetMutationRate(rate float64) {
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		panic(fmt.Sprintf("evo: mutation rate %v outside [0,1]", rate))
	}
	p.mutationRate = rate
}

// Individual returns the network in slot i. The population keeps ownership.
func (p *Population) Individual(i int) *nn.Network {
	p.check(i)
	return p.members[i].net
}

// Replace installs net in slot i and marks it unscored. Compatibility with the
// rest of the population is the caller's responsibility.
func (p *Population) Replace(i int, net *nn.Network) {
	p.check(i)
	if net == nil {
		panic("evo: replace with nil network")
	}
	p.members[i] = member{net: net, score: Unscored}
}

func (p *Population) ClearScores() {
	for i := range p.members {
		p.members[i].score = Unscored
	}
}

func (p *Population) SetScore(i int, v float64) {
	p.check(i)
	p.members[i].score = v
}

func (p *Population) Score(i int) float64 {
	p.check(i)
	return p.members[i].score
}

// Scores returns a copy of every score in slot order.
func (p *Population) Scores() []float64 {
	out := make([]float64, len(p.members))
	for i, m := range p.members {
		out[i] = m.score
	}
	return out
}

// Valid reports whether v counts as a real score. Negative and NaN scores
// always rank last.
func Valid(v float64) bool {
	return v >= 0 && !math.IsNaN(v)
}

// Better reports whether a ranks strictly ahead of b.
func Better(a, b float64, minimise bool) bool {
	va, vb := Valid(a), Valid(b)
	if va != vb {
		return va
	}
	if !va {
		return false
	}
	if minimise {
		return a < b
	}
	return a > b
}

// Best returns the slot holding the best valid score, or -1 when nothing has
// been scored.
func (p *Population) Best(minimise bool) (int, float64) {
	best := -1
	for i, m := range p.members {
		if !Valid(m.score) {
			continue
		}
		if best < 0 || Better(m.score, p.members[best].score, minimise) {
			best = i
		}
	}
	if best < 0 {
		return -1, Unscored
	}
	return best, p.members[best].score
}

// Quotas returns how many individuals survive a respawn unchanged: the elite
// count and the random-survivor count. Both are at least one and together
// never exceed size.
func Quotas(size int) (elites, survivors int) {
	elites = max(1, int(math.Ceil(EliteFraction*float64(size))))
	survivors = max(1, int(math.Ceil(SurvivorFraction*float64(size))))
	elites = min(elites, size)
	survivors = min(survivors, size-elites)
	return elites, survivors
}

// RespawnResult describes one generational replacement.
type RespawnResult struct {
	Elites    int
	Survivors int
	Children  int
	// BestScore is the score of slot 0 before scores were cleared.
	BestScore float64
}

// Respawn ranks the population, keeps the elites and a random set of
// survivors, and refills every other slot with a mutated CombineByNeuron child
// of two distinct retained parents. All scores are cleared afterwards. On error
// the population is left as it was before the call, apart from its order.
func (p *Population) Respawn(rng *rand.Rand, minimise bool) (RespawnResult, error) {
	size := len(p.members)
	sort.SliceStable(p.members, func(a, b int) bool {
		return Better(p.members[a].score, p.members[b].score, minimise)
	})

	elites, survivors := Quotas(size)
	retained := elites + survivors
	for done := elites; done < retained; done++ {
		k := done + rng.Intn(size-done)
		p.members[done], p.members[k] = p.members[k], p.members[done]
	}

	children := make([]*nn.Network, 0, size-retained)
	for i := retained; i < size; i++ {
		a := rng.Intn(retained)
		b := rng.Intn(retained - 1)
		if b >= a {
			b++
		}
		child, err := nn.CombineByNeuron(rng, p.members[a].net, p.members[b].net)
		if err != nil {
			return RespawnResult{}, fmt.Errorf("respawn slot %d: %w", i, err)
		}
		child.Mutate(rng, p.mutationRate)
		children = append(children, child)
	}

	res := RespawnResult{
		Elites:    elites,
		Survivors: survivors,
		Children:  len(children),
		BestScore: p.members[0].score,
	}
	for i, child := range children {
		p.members[retained+i].net = child
	}
	p.ClearScores()
	return res, nil
}

func (p *Population) check(i int) {
	if i < 0 || i >= len(p.members) {
		panic(fmt.Sprintf("evo: individual index %d out of range [0,%d)", i, len(p.members)))
	}
}
