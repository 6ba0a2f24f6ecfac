package scape

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

// Trace carries task specific detail about an evaluation.
type Trace map[string]any

// Task is a fitness function. Each Reset starts an independent episode that
// is fully determined by its seed.
type Task interface {
	Name() string
	Inputs() int
	Outputs() int
	// Minimise reports whether lower scores are better.
	Minimise() bool
	Reset(seed int64) Episode
}

// Episode is one run of a task. The evaluator alternates Observe and Step
// until Finished.
type Episode interface {
	Finished() bool
	// Observe returns the next input vector. The slice is only valid until
	// the following Step.
	Observe() []float32
	Step(outputs []float32)
	Score() float64
}

// Curriculum is implemented by tasks whose difficulty grows between
// generations.
type Curriculum interface {
	// Advance is called after each generation with the best total score and
	// the number of trials that produced it. It reports whether the level
	// changed.
	Advance(best float64, trials int) bool
	Level() int
}

var ErrShape = errors.New("network shape does not fit task")

// CheckNetwork verifies that net can play task.
func CheckNetwork(task Task, net *nn.Network) error {
	if net.NumInputs() != task.Inputs() {
		return fmt.Errorf("%w: %s wants %d inputs, network has %d", ErrShape, task.Name(), task.Inputs(), net.NumInputs())
	}
	if net.NumOutputs() < task.Outputs() {
		return fmt.Errorf("%w: %s wants %d outputs, network has %d", ErrShape, task.Name(), task.Outputs(), net.NumOutputs())
	}
	return nil
}

// Evaluate plays trials episodes of task with net and returns the summed
// score. Episode seeds are drawn from a source seeded with seed, so the same
// seed gives every network the same episodes. ctx is checked before every
// step; on cancellation the partial score is discarded and ctx.Err() returned.
func Evaluate(ctx context.Context, task Task, net *nn.Network, trials int, seed int64) (float64, Trace, error) {
	if err := CheckNetwork(task, net); err != nil {
		return 0, nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	var (
		total float64
		steps int
	)
	for trial := 0; trial < trials; trial++ {
		ep := task.Reset(rng.Int63())
		for !ep.Finished() {
			if err := ctx.Err(); err != nil {
				return 0, nil, err
			}
			if err := net.Run(ep.Observe()); err != nil {
				return 0, nil, fmt.Errorf("%s trial %d: %w", task.Name(), trial, err)
			}
			ep.Step(net.Outputs())
			steps++
		}
		total += ep.Score()
	}
	trace := Trace{"trials": trials, "steps": steps}
	if trials > 0 {
		trace["mean"] = total / float64(trials)
	}
	return total, trace, nil
}
