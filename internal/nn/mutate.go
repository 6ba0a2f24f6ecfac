package nn

import (
	"math/rand"

	"github.com/JD-Gaming/jd-gaming/internal/activation"
)

// DefaultMutationRate is the per-value probability applied to offspring.
const DefaultMutationRate = 0.01

// activationRerollDivisor scales the mutation rate down for activation re-rolls.
const activationRerollDivisor = 10

// ValueOp names one of the weight perturbations.
type ValueOp int

const (
	OpAdd ValueOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpReplace
)

func (op ValueOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// pickValueOp splits 31 buckets 10:10:5:5:1 between the operators.
func pickValueOp(rng *rand.Rand) ValueOp {
	switch b := rng.Intn(31); {
	case b < 10:
		return OpAdd
	case b < 20:
		return OpSubtract
	case b < 25:
		return OpMultiply
	case b < 30:
		return OpDivide
	default:
		return OpReplace
	}
}

// MutateValue applies one randomly chosen perturbation to v.
func MutateValue(rng *rand.Rand, v float32) (float32, ValueOp) {
	op := pickValueOp(rng)
	return applyValueOp(rng, op, v), op
}

func applyValueOp(rng *rand.Rand, op ValueOp, v float32) float32 {
	switch op {
	case OpAdd:
		return v + float32(uniform(rng, 0, 1))
	case OpSubtract:
		return v - float32(uniform(rng, 0, 1))
	case OpMultiply:
		return v * float32(uniform(rng, 1, 3))
	case OpDivide:
		return v / float32(uniform(rng, 1, 3))
	default:
		return float32(uniform(rng, -5, 5))
	}
}

// mutate perturbs each weight and bias with probability rate and re-rolls each
// activation with probability rate/10. Seeds are left alone: a new seed would
// throw away the neuron's whole wiring.
func (l *Layer) mutate(rng *rand.Rand, rate float64) int {
	if rate <= 0 {
		return 0
	}
	touched := 0
	for j, w := range l.weights {
		if rng.Float64() < rate {
			l.weights[j], _ = MutateValue(rng, w)
			touched++
		}
	}
	rerollRate := rate / activationRerollDivisor
	for i := range l.activations {
		if rng.Float64() < rerollRate {
			l.activations[i] = activation.Random(rng, l.mask)
		}
	}
	return touched
}
