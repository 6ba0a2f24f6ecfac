package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/JD-Gaming/jd-gaming/internal/config"
	"github.com/JD-Gaming/jd-gaming/internal/metrics"
	"github.com/JD-Gaming/jd-gaming/internal/model"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
	"github.com/JD-Gaming/jd-gaming/internal/storage"
	"github.com/JD-Gaming/jd-gaming/internal/trainer"
)

func (c command) train(ctx context.Context, args []string) error {
	fs := c.flagSet("train")
	flags := config.NewFlags(fs)
	var logs logFlags
	logs.register(fs)
	runID := fs.String("run", "", "run id (random when empty)")
	progress := fs.Bool("progress", true, "show a progress line when stderr is a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.Resolve()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = int64(rand.New(rand.NewSource(time.Now().UnixNano())).Uint32())
	}
	log, err := logs.logger(c.stderr)
	if err != nil {
		return err
	}

	task, err := scape.New(cfg.Task, cfg.Options())
	if err != nil {
		return err
	}
	layers, err := config.ParseLayers(cfg.Layers, task.Inputs())
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Store, cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	collector := metrics.New(task.Name())
	if cfg.MetricsAddr != "" {
		if _, err := collector.Serve(ctx, cfg.MetricsAddr, log); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	showProgress := *progress && isTerminal(c.stderr)
	tr, err := trainer.New(trainer.Config{
		RunID:           *runID,
		Task:            task,
		Layers:          layers,
		LayerSpec:       config.FormatLayers(layers),
		Networks:        cfg.Networks,
		Rounds:          cfg.Rounds,
		FirstGeneration: cfg.FirstGeneration,
		Generations:     cfg.Generations,
		Seed:            cfg.Seed,
		MutationRate:    cfg.MutationRate,
		Workers:         cfg.Workers,
		Policy:          policy,
		QueueCapacity:   cfg.QueueCapacity,
		Store:           store,
		SaveAll:         cfg.SaveAll,
		Observer:        collector,
		OnGeneration: func(d model.GenerationDiagnostics) {
			collector.ObserveGeneration(d)
			if showProgress {
				fmt.Fprintf(c.stderr, "\rgeneration %d/%d  best %.4g  mean %.4g  ", d.Generation+1, cfg.Generations, d.BestScore, d.MeanScore)
			}
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	for _, path := range fs.Args() {
		net, err := nn.LoadFile(path)
		if err != nil {
			log.Warn("skipping seed network", "path", path, "err", err)
			continue
		}
		if tr.Seed(net) == 1 {
			log.Info("seeded network", "path", path)
		} else {
			log.Warn("seed network does not match the configured layers", "path", path)
		}
	}

	started := time.Now()
	res, err := tr.Run(ctx)
	if showProgress {
		fmt.Fprintln(c.stderr)
	}
	if err != nil {
		return err
	}

	verb := "finished"
	if res.Interrupted {
		verb = "interrupted"
	}
	fmt.Fprintf(c.stdout, "run %s %s after %d generations in %s, best score %g (seed 0x%x)\n",
		res.Run.ID, verb, len(res.Diagnostics), time.Since(started).Round(time.Millisecond),
		res.Run.BestScore, uint64(res.Run.Seed))
	return nil
}
