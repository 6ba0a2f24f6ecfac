package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gosuri/uitable"

	"github.com/JD-Gaming/jd-gaming/internal/config"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
)

// taskFlags build a task outside of training.
type taskFlags struct {
	name string
	opts scape.Options
}

func (t *taskFlags) register(fs *flag.FlagSet, startBits int) {
	fs.StringVar(&t.name, "task", config.DefaultTask, "task to play")
	fs.IntVar(&t.opts.StartBits, "start-bits", startBits, "curriculum level of the addition task")
	fs.IntVar(&t.opts.GridWidth, "grid-width", 0, "arkanoid sensor width")
	fs.IntVar(&t.opts.GridHeight, "grid-height", 0, "arkanoid sensor height")
	fs.IntVar(&t.opts.MaxFrames, "max-frames", 0, "arkanoid frame cap, negative for none")
}

func (t *taskFlags) build() (scape.Task, error) {
	return scape.New(t.name, t.opts)
}

func (c command) play(ctx context.Context, args []string) error {
	fs := c.flagSet("play")
	var tf taskFlags
	tf.register(fs, scape.AdditionBits)
	trials := fs.Int("trials", 10, "episodes per network")
	seedText := fs.String("seed", "1", "hexadecimal episode seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := requireArgs(fs, "network files")
	if err != nil {
		return err
	}
	if *trials < 1 {
		return fmt.Errorf("play: trials must be positive, got %d", *trials)
	}
	seed, err := config.ParseSeed(*seedText)
	if err != nil {
		return err
	}
	task, err := tf.build()
	if err != nil {
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("NETWORK", "SCORE", "PER TRIAL", "STEPS")
	for _, path := range paths {
		net, err := nn.LoadFile(path)
		if err != nil {
			return err
		}
		score, trace, err := scape.Evaluate(ctx, task, net, *trials, seed)
		if err != nil {
			return fmt.Errorf("play %s: %w", path, err)
		}
		table.AddRow(path, fmt.Sprintf("%g", score), fmt.Sprintf("%.4g", score/float64(*trials)), trace["steps"])
	}
	fmt.Fprintf(c.stdout, "task %s, %d trials, seed 0x%x\n", task.Name(), *trials, uint64(seed))
	fmt.Fprintln(c.stdout, table)
	return nil
}
