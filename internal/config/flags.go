package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// DefaultTask is trained when neither a flag nor a config file names one.
const DefaultTask = "arkanoid"

// Flags binds the training knobs to a flag set. Resolve layers the sources:
// task defaults first, then the config file, then the flags the user set.
type Flags struct {
	fs     *flag.FlagSet
	values Train
	config string
}

func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Defaults(DefaultTask)
	v := &f.values

	fs.StringVar(&f.config, "config", "", "config file (.ini or .yaml)")
	fs.StringVar(&v.Task, "task", d.Task, "task to train on")
	fs.IntVar(&v.Networks, "networks", d.Networks, "population size")
	fs.IntVar(&v.Rounds, "rounds", d.Rounds, "episodes each network plays per generation")
	fs.IntVar(&v.Generations, "generations", d.Generations, "generation to stop before")
	fs.IntVar(&v.FirstGeneration, "first-generation", d.FirstGeneration, "generation to start from when resuming")
	fs.IntVar(&v.Workers, "workers", d.Workers, "concurrent evaluations")
	fs.Var((*hexSeed)(&v.Seed), "seed", "hexadecimal run seed (random when unset)")
	fs.StringVar(&v.Queue, "queue", d.Queue, "job queue policy: linear, random or priority")
	fs.IntVar(&v.QueueCapacity, "queue-capacity", d.QueueCapacity, "job queue capacity")
	fs.Float64Var(&v.MutationRate, "mutation-rate", d.MutationRate, "per-value mutation rate of offspring")
	fs.StringVar(&v.Layers, "layers", d.Layers, "layer spec, e.g. 64x16:sigmoid,8x64")
	fs.StringVar(&v.Store, "store", d.Store, "store backend: dir, sqlite or memory")
	fs.StringVar(&v.StorePath, "store-path", d.StorePath, "checkpoint directory or sqlite file")
	fs.BoolVar(&v.SaveAll, "save-all", d.SaveAll, "save every network of each generation")
	fs.StringVar(&v.MetricsAddr, "metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address")
	fs.IntVar(&v.StartBits, "start-bits", d.StartBits, "first curriculum level of the addition task")
	fs.IntVar(&v.GridWidth, "grid-width", d.GridWidth, "arkanoid sensor width")
	fs.IntVar(&v.GridHeight, "grid-height", d.GridHeight, "arkanoid sensor height")
	fs.IntVar(&v.MaxFrames, "max-frames", d.MaxFrames, "arkanoid frame cap, negative for none")
	return f
}

// ConfigPath is the value of -config.
func (f *Flags) ConfigPath() string { return f.config }

// Resolve builds the configuration after the flag set has been parsed. It
// does not validate it.
func (f *Flags) Resolve() (Train, error) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	task := DefaultTask
	if set["task"] {
		task = f.values.Task
	}
	cfg := Defaults(task)
	if f.config != "" {
		var err error
		if cfg, err = Load(f.config, cfg); err != nil {
			return cfg, err
		}
	}

	v := f.values
	apply := map[string]func(){
		"task":             func() { cfg.Task = strings.ToLower(strings.TrimSpace(v.Task)) },
		"networks":         func() { cfg.Networks = v.Networks },
		"rounds":           func() { cfg.Rounds = v.Rounds },
		"generations":      func() { cfg.Generations = v.Generations },
		"first-generation": func() { cfg.FirstGeneration = v.FirstGeneration },
		"workers":          func() { cfg.Workers = v.Workers },
		"seed":             func() { cfg.Seed = v.Seed },
		"queue":            func() { cfg.Queue = v.Queue },
		"queue-capacity":   func() { cfg.QueueCapacity = v.QueueCapacity },
		"mutation-rate":    func() { cfg.MutationRate = v.MutationRate },
		"layers":           func() { cfg.Layers = v.Layers },
		"store":            func() { cfg.Store = v.Store },
		"store-path":       func() { cfg.StorePath = v.StorePath },
		"save-all":         func() { cfg.SaveAll = v.SaveAll },
		"metrics-addr":     func() { cfg.MetricsAddr = v.MetricsAddr },
		"start-bits":       func() { cfg.StartBits = v.StartBits },
		"grid-width":       func() { cfg.GridWidth = v.GridWidth },
		"grid-height":      func() { cfg.GridHeight = v.GridHeight },
		"max-frames":       func() { cfg.MaxFrames = v.MaxFrames },
	}
	for name := range set {
		if fn, ok := apply[name]; ok {
			fn()
		}
	}
	return cfg, nil
}

// hexSeed reads a seed the way it is printed in checkpoint names: hexadecimal
// with an optional 0x prefix.
type hexSeed int64

func (s *hexSeed) String() string {
	if s == nil || *s == 0 {
		return ""
	}
	return fmt.Sprintf("0x%x", uint64(*s))
}

func (s *hexSeed) Set(text string) error {
	text = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(text)), "0x")
	v, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return fmt.Errorf("seed must be hexadecimal: %w", err)
	}
	*s = hexSeed(v)
	return nil
}

// ParseSeed parses a hexadecimal seed, with or without a 0x prefix.
func ParseSeed(text string) (int64, error) {
	var s hexSeed
	err := s.Set(text)
	return int64(s), err
}
