package nn

import randv2 "math/rand/v2"

// wiringStream is the second PCG word; together with the seed it fully
// determines a neuron's connection list.
const wiringStream = 0x9e3779b97f4a7c15

// Connections derives the fan-in source indices for a neuron. Seed 0 yields the
// identity wiring [0, fanIn); any other seed yields fanIn independent draws, with
// replacement, from [0, sourceWidth). The result depends only on the arguments.
func Connections(seed uint64, sourceWidth, fanIn int) []int {
	out := make([]int, fanIn)
	fillConnections(out, seed, sourceWidth)
	return out
}

func fillConnections(dst []int, seed uint64, sourceWidth int) {
	if seed == 0 {
		for j := range dst {
			dst[j] = j
		}
		return
	}
	if sourceWidth <= 0 {
		for j := range dst {
			dst[j] = 0
		}
		return
	}
	rng := wiringRand(seed)
	for j := range dst {
		dst[j] = int(rng.Uint64N(uint64(sourceWidth)))
	}
}

// wiringRand is the generator behind a non-zero wiring seed.
func wiringRand(seed uint64) *randv2.Rand {
	return randv2.New(randv2.NewPCG(seed, seed^wiringStream))
}
