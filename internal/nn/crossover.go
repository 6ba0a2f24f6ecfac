package nn

import (
	"fmt"
	"math/rand"
)

// CombineByNeuron builds a child where every neuron is copied whole (seed,
// wiring, weights, bias, activation) from a parent picked by a coin flip.
// This is the crossover used by the population.
func CombineByNeuron(rng *rand.Rand, mother, father *Network) (*Network, error) {
	if err := mother.Compatible(father); err != nil {
		return nil, fmt.Errorf("combine by neuron: %w", err)
	}
	child := mother.Clone()
	for li, l := range child.layers {
		dad := father.layers[li]
		for i := 0; i < l.size; i++ {
			if rng.Intn(2) == 1 {
				l.copyNeuron(dad, i)
			}
		}
	}
	return child, nil
}

// CombineByWeight flips an independent coin for every seed, bias, weight and
// activation of every neuron.
//
// Warning: the seed and the weights are chosen independently, so a child
// neuron can carry one parent's wiring with weights that were evolved against
// the other parent's wiring. Prefer CombineByNeuron.
func CombineByWeight(rng *rand.Rand, mother, father *Network) (*Network, error) {
	if err := mother.Compatible(father); err != nil {
		return nil, fmt.Errorf("combine by weight: %w", err)
	}
	child := mother.Clone()
	for li, l := range child.layers {
		dad := father.layers[li]
		stride := l.fanIn + 1
		for i := 0; i < l.size; i++ {
			if rng.Intn(2) == 1 {
				l.seeds[i] = dad.seeds[i]
				copy(l.neuronConnections(i), dad.neuronConnections(i))
			}
			base := i * stride
			if rng.Intn(2) == 1 {
				l.weights[base+l.fanIn] = dad.weights[base+l.fanIn]
			}
			for j := 0; j < l.fanIn; j++ {
				if rng.Intn(2) == 1 {
					l.weights[base+j] = dad.weights[base+j]
				}
			}
			if rng.Intn(2) == 1 {
				l.activations[i] = dad.activations[i]
			}
		}
	}
	return child, nil
}
