// Package trainer runs the generational loop: it scores every network of the
// population on a task through the worker pool, records diagnostics and
// checkpoints, and breeds the next generation.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/JD-Gaming/jd-gaming/internal/config"
	"github.com/JD-Gaming/jd-gaming/internal/dispatch"
	"github.com/JD-Gaming/jd-gaming/internal/evo"
	"github.com/JD-Gaming/jd-gaming/internal/jobqueue"
	"github.com/JD-Gaming/jd-gaming/internal/model"
	"github.com/JD-Gaming/jd-gaming/internal/nn"
	"github.com/JD-Gaming/jd-gaming/internal/scape"
	"github.com/JD-Gaming/jd-gaming/internal/stats"
	"github.com/JD-Gaming/jd-gaming/internal/storage"
)

var (
	ErrNoTask  = errors.New("trainer: task is required")
	ErrNoStore = errors.New("trainer: store is required")
)

type Config struct {
	// RunID names the run in the store. A random UUID is used when empty.
	RunID  string
	Task   scape.Task
	Layers []nn.LayerParams
	// LayerSpec is recorded with the run; it defaults to the formatted Layers.
	LayerSpec string

	Networks        int
	Rounds          int
	FirstGeneration int
	Generations     int
	Seed            int64
	MutationRate    float64

	Workers       int
	Policy        jobqueue.Policy
	QueueCapacity int

	Store storage.Store
	// SaveAll checkpoints the whole population every generation instead of
	// only its best network.
	SaveAll bool

	Observer     dispatch.Observer
	OnGeneration func(model.GenerationDiagnostics)
	Logger       *slog.Logger
}

// Result is what a finished or interrupted run produced.
type Result struct {
	Run         model.Run
	Diagnostics []model.GenerationDiagnostics
	Interrupted bool
}

type Trainer struct {
	cfg     Config
	log     *slog.Logger
	pop     *evo.Population
	rng     *rand.Rand
	seeded  int
	started bool
}

// New validates cfg and builds a random initial population.
func New(cfg Config) (*Trainer, error) {
	if cfg.Task == nil {
		return nil, ErrNoTask
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Rounds < 1 {
		return nil, fmt.Errorf("trainer: rounds must be positive, got %d", cfg.Rounds)
	}
	if cfg.Generations <= cfg.FirstGeneration || cfg.FirstGeneration < 0 {
		return nil, fmt.Errorf("trainer: generation range [%d,%d) is empty", cfg.FirstGeneration, cfg.Generations)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("trainer: mutation rate %g outside [0,1]", cfg.MutationRate)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.LayerSpec == "" {
		cfg.LayerSpec = config.FormatLayers(cfg.Layers)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("run_id", cfg.RunID)

	rng := rand.New(rand.NewSource(cfg.Seed))
	pop, err := evo.New(rng, cfg.Networks, cfg.Task.Inputs(), cfg.Layers, true)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	if err := scape.CheckNetwork(cfg.Task, pop.Individual(0)); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	pop.SetMutationRate(cfg.MutationRate)
	return &Trainer{cfg: cfg, log: log, pop: pop, rng: rng}, nil
}

func (t *Trainer) RunID() string               { return t.cfg.RunID }
func (t *Trainer) Population() *evo.Population { return t.pop }

// Seed puts networks into the population, starting at slot 0. Networks whose
// shape differs from the population's are skipped. It returns how many were
// used.
func (t *Trainer) Seed(nets ...*nn.Network) int {
	used := 0
	for i, net := range nets {
		if t.seeded >= t.pop.Size() {
			t.log.Warn("population full, ignoring seed network", "seed_index", i)
			continue
		}
		if err := t.pop.Individual(0).Compatible(net); err != nil {
			t.log.Warn("not adding seed network", "seed_index", i, "err", err)
			continue
		}
		t.pop.Replace(t.seeded, net)
		t.seeded++
		used++
	}
	return used
}

// Run trains until the last generation or until ctx is cancelled. A cancelled
// run saves every network of the generation in progress and returns with
// Result.Interrupted set and a nil error.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	if t.started {
		return Result{}, errors.New("trainer: run already started")
	}
	t.started = true

	// Persistence must outlive an interrupt.
	saveCtx := context.WithoutCancel(ctx)
	cfg := t.cfg
	now := time.Now().UTC()
	run := model.Run{
		VersionedRecord: storage.Versioned(),
		ID:              cfg.RunID,
		Task:            cfg.Task.Name(),
		Seed:            cfg.Seed,
		PopulationSize:  cfg.Networks,
		Rounds:          cfg.Rounds,
		Inputs:          cfg.Task.Inputs(),
		Layers:          cfg.LayerSpec,
		Minimise:        cfg.Task.Minimise(),
		FirstGen:        cfg.FirstGeneration,
		LastGen:         cfg.FirstGeneration - 1,
		BestScore:       evo.Unscored,
		Status:          model.RunRunning,
		StartedAt:       now,
		UpdatedAt:       now,
	}
	res := Result{Run: run}
	if err := cfg.Store.SaveRun(saveCtx, run); err != nil {
		return res, fmt.Errorf("trainer: save run: %w", err)
	}

	pool, err := dispatch.NewPool(dispatch.Config{
		Workers:       cfg.Workers,
		Policy:        cfg.Policy,
		QueueCapacity: cfg.QueueCapacity,
		Rand:          rand.New(rand.NewSource(cfg.Seed ^ 0x5bd1e995)),
		Evaluator:     dispatch.EvaluatorFunc(t.evaluate),
		Observer:      cfg.Observer,
		Logger:        t.log,
	})
	if err != nil {
		return res, t.fail(saveCtx, &res, err)
	}
	pool.Start(ctx)
	defer pool.Close()

	t.log.Info("training started",
		"task", run.Task, "networks", cfg.Networks, "rounds", cfg.Rounds,
		"layers", run.Layers, "seed", fmt.Sprintf("0x%x", uint64(cfg.Seed)),
		"workers", cfg.Workers, "policy", cfg.Policy.String())

	for gen := cfg.FirstGeneration; gen < cfg.Generations; gen++ {
		interrupted, err := t.generation(ctx, saveCtx, pool, gen, &res)
		if err != nil {
			return res, t.fail(saveCtx, &res, err)
		}
		if interrupted {
			res.Interrupted = true
			res.Run.Status = model.RunInterrupted
			res.Run.UpdatedAt = time.Now().UTC()
			if err := cfg.Store.SaveRun(saveCtx, res.Run); err != nil {
				return res, fmt.Errorf("trainer: save run: %w", err)
			}
			t.log.Info("training interrupted, population saved", "generation", gen)
			return res, nil
		}
		if gen+1 < cfg.Generations {
			if _, err := t.pop.Respawn(t.rng, cfg.Task.Minimise()); err != nil {
				return res, t.fail(saveCtx, &res, err)
			}
		}
	}

	res.Run.Status = model.RunFinished
	res.Run.UpdatedAt = time.Now().UTC()
	if err := cfg.Store.SaveRun(saveCtx, res.Run); err != nil {
		return res, fmt.Errorf("trainer: save run: %w", err)
	}
	t.log.Info("training finished", "generations", len(res.Diagnostics), "best", res.Run.BestScore)
	return res, nil
}

// generation scores one generation and records it. It reports true when ctx
// was cancelled before every job finished, after saving the population.
func (t *Trainer) generation(ctx, saveCtx context.Context, pool *dispatch.Pool, gen int, res *Result) (bool, error) {
	cfg := t.cfg
	minimise := cfg.Task.Minimise()
	start := time.Now()
	level := 0
	curriculum, hasCurriculum := cfg.Task.(scape.Curriculum)
	if hasCurriculum {
		level = curriculum.Level()
	}

	t.pop.ClearScores()
	jobs := make([]*dispatch.Job, t.pop.Size())
	for i := range jobs {
		jobs[i] = &dispatch.Job{
			Network:    t.pop.Individual(i),
			Index:      i,
			Generation: gen,
			Trials:     cfg.Rounds,
			Seed:       cfg.Seed + int64(gen),
		}
	}
	if _, err := pool.Run(jobs); err != nil {
		return false, err
	}

	var cancelled, failed int
	for _, job := range jobs {
		switch {
		case job.Cancelled:
			cancelled++
		case job.Err != nil:
			failed++
		default:
			t.pop.SetScore(job.Index, job.Score)
		}
	}

	if cancelled > 0 || ctx.Err() != nil {
		if err := t.saveNetworks(saveCtx, gen, allSlots(t.pop.Size())); err != nil {
			return false, err
		}
		return true, nil
	}

	diag := stats.Summarize(stats.Generation{
		Number:    gen,
		Scores:    t.pop.Scores(),
		Cancelled: cancelled,
		Failed:    failed,
		Level:     level,
		Elapsed:   time.Since(start),
		Minimise:  minimise,
	})
	res.Diagnostics = append(res.Diagnostics, diag)

	best, bestScore := t.pop.Best(minimise)
	switch {
	case cfg.SaveAll:
		if err := t.saveNetworks(saveCtx, gen, allSlots(t.pop.Size())); err != nil {
			return false, err
		}
	case best >= 0:
		if err := t.saveNetworks(saveCtx, gen, []int{best}); err != nil {
			return false, err
		}
	}
	if best >= 0 && evo.Better(bestScore, res.Run.BestScore, minimise) {
		res.Run.BestScore = recordScore(bestScore)
	}
	if hasCurriculum && best >= 0 && curriculum.Advance(bestScore, cfg.Rounds) {
		t.log.Info("curriculum advanced", "generation", gen, "level", curriculum.Level())
	}

	if err := cfg.Store.SaveGenerationDiagnostics(saveCtx, cfg.RunID, res.Diagnostics); err != nil {
		return false, fmt.Errorf("save diagnostics: %w", err)
	}
	res.Run.LastGen = gen
	res.Run.UpdatedAt = time.Now().UTC()
	if err := cfg.Store.SaveRun(saveCtx, res.Run); err != nil {
		return false, fmt.Errorf("save run: %w", err)
	}

	t.log.Info("generation done",
		"generation", gen, "best", diag.BestScore, "mean", diag.MeanScore,
		"failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))
	if cfg.OnGeneration != nil {
		cfg.OnGeneration(diag)
	}
	return false, nil
}

func (t *Trainer) evaluate(ctx context.Context, job *dispatch.Job) (float64, error) {
	score, _, err := scape.Evaluate(ctx, t.cfg.Task, job.Network, job.Trials, job.Seed)
	return score, err
}

func (t *Trainer) saveNetworks(ctx context.Context, gen int, slots []int) error {
	now := time.Now().UTC()
	for _, i := range slots {
		blob, err := t.pop.Individual(i).MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode network %d: %w", i, err)
		}
		rec := model.NetworkRecord{
			VersionedRecord: storage.Versioned(),
			RunID:           t.cfg.RunID,
			Generation:      gen,
			Index:           i,
			Seed:            t.cfg.Seed,
			Score:           recordScore(t.pop.Score(i)),
			Rounds:          t.cfg.Rounds,
			SavedAt:         now,
			Blob:            blob,
		}
		if err := t.cfg.Store.SaveNetwork(ctx, rec); err != nil {
			return fmt.Errorf("save network %d: %w", i, err)
		}
	}
	return nil
}

func (t *Trainer) fail(ctx context.Context, res *Result, cause error) error {
	res.Run.Status = model.RunFailed
	res.Run.UpdatedAt = time.Now().UTC()
	if err := t.cfg.Store.SaveRun(ctx, res.Run); err != nil {
		t.log.Error("save failed run", "err", err)
	}
	return fmt.Errorf("trainer: %w", cause)
}

// recordScore maps scores that cannot be stored or ranked to evo.Unscored.
func recordScore(v float64) float64 {
	if !evo.Valid(v) || math.IsInf(v, 0) {
		return evo.Unscored
	}
	return v
}

func allSlots(n int) []int {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	return slots
}
