// Package dispatch fans fitness evaluations out to a fixed set of workers and
// gives the caller a barrier that waits for the whole generation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/JD-Gaming/jd-gaming/internal/jobqueue"
)

var (
	ErrNoEvaluator = errors.New("dispatch: evaluator is required")
	ErrWorkers     = errors.New("dispatch: worker count must be positive")
	ErrStopped     = errors.New("dispatch: pool is stopped")
	ErrNotStarted  = errors.New("dispatch: pool is not started")
)

// Evaluator scores one job. It should check ctx between trials or frames and
// return ctx.Err() once it is done; the job is then recorded as cancelled.
type Evaluator interface {
	Evaluate(ctx context.Context, job *Job) (float64, error)
}

type EvaluatorFunc func(ctx context.Context, job *Job) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, job *Job) (float64, error) {
	return f(ctx, job)
}

// Observer is told about every job a worker starts and finishes.
type Observer interface {
	JobStarted(worker int, job *Job)
	JobFinished(worker int, job *Job)
}

type Config struct {
	Workers       int
	Policy        jobqueue.Policy
	QueueCapacity int
	// Priority ranks queued jobs under jobqueue.Priority. Lower population
	// index first when nil.
	Priority  func(*Job) float64
	Rand      *rand.Rand
	Evaluator Evaluator
	Observer  Observer
	Logger    *slog.Logger
}

type entry struct {
	job   *Job
	batch *Batch
}

type Pool struct {
	cfg    Config
	log    *slog.Logger
	queue  *jobqueue.Queue[entry]
	mu     sync.Mutex
	ctx    context.Context
	runner *pool.Pool
	closed bool
}

func NewPool(cfg Config) (*Pool, error) {
	if cfg.Evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrWorkers, cfg.Workers)
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	priority := cfg.Priority
	if priority == nil {
		priority = func(j *Job) float64 { return -float64(j.Index) }
	}
	queue, err := jobqueue.New(jobqueue.Config[entry]{
		Policy:   cfg.Policy,
		Capacity: cfg.QueueCapacity,
		Priority: func(e entry) float64 { return priority(e.job) },
		Rand:     cfg.Rand,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pool{cfg: cfg, log: log, queue: queue}, nil
}

func (p *Pool) Workers() int { return p.cfg.Workers }

// Start launches the workers. Evaluations receive ctx; cancelling it makes
// every running and queued job finish as cancelled, but workers keep running
// until Close.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runner != nil || p.closed {
		return
	}
	p.ctx = ctx
	p.runner = pool.New().WithMaxGoroutines(p.cfg.Workers)
	for w := 0; w < p.cfg.Workers; w++ {
		p.runner.Go(func() { p.work(w) })
	}
	p.log.Debug("worker pool started", "workers", p.cfg.Workers, "policy", p.cfg.Policy.String())
}

// Submit queues every job of b, waiting for free slots while the queue is
// full. When the pool's context ends first, the jobs not yet queued are
// completed as cancelled. Jobs that cannot be queued for any other reason are
// completed with the error. Either way b.Wait still returns.
func (p *Pool) Submit(b *Batch) error {
	p.mu.Lock()
	started, closed, ctx := p.runner != nil, p.closed, p.ctx
	p.mu.Unlock()
	switch {
	case closed:
		failJobs(b, b.jobs, ErrStopped)
		return ErrStopped
	case !started:
		failJobs(b, b.jobs, ErrNotStarted)
		return ErrNotStarted
	}
	for i, job := range b.jobs {
		err := p.queue.Put(ctx, entry{job: job, batch: b})
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			for _, j := range b.jobs[i:] {
				b.complete(j, result{cancelled: true, worker: -1}, nil)
			}
			return nil
		case errors.Is(err, jobqueue.ErrClosed):
			err = fmt.Errorf("%w: %w", ErrStopped, err)
		}
		err = fmt.Errorf("dispatch: queue job %d: %w", job.Index, err)
		failJobs(b, b.jobs[i:], err)
		return err
	}
	return nil
}

func failJobs(b *Batch, jobs []*Job, err error) {
	for _, job := range jobs {
		b.complete(job, result{err: err, worker: -1}, nil)
	}
}

// Run submits jobs as one batch and waits for all of them.
func (p *Pool) Run(jobs []*Job) (*Batch, error) {
	b := NewBatch(jobs)
	err := p.Submit(b)
	b.Wait()
	return b, err
}

// Close stops accepting jobs, lets the workers drain the queue and waits for
// them to exit.
func (p *Pool) Close() {
	p.queue.Close()
	p.mu.Lock()
	runner := p.runner
	p.runner = nil
	p.closed = true
	p.mu.Unlock()
	if runner != nil {
		runner.Wait()
	}
}

func (p *Pool) work(worker int) {
	for {
		e, err := p.queue.Get(context.Background())
		if err != nil {
			return
		}
		p.process(worker, e)
	}
}

func (p *Pool) process(worker int, e entry) {
	if p.cfg.Observer != nil {
		p.cfg.Observer.JobStarted(worker, e.job)
	}
	start := time.Now()
	r := result{worker: worker}
	if err := p.ctx.Err(); err != nil {
		r.cancelled = true
	} else {
		score, err := p.evaluate(worker, e.job)
		switch {
		case err == nil:
			r.score = score
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			r.cancelled = true
		default:
			r.err = err
			p.log.Warn("evaluation failed",
				"worker", worker, "job", e.job.Index, "generation", e.job.Generation, "err", err)
		}
	}
	r.elapsed = time.Since(start)
	var after func()
	if p.cfg.Observer != nil {
		after = func() { p.cfg.Observer.JobFinished(worker, e.job) }
	}
	e.batch.complete(e.job, r, after)
}

func (p *Pool) evaluate(worker int, job *Job) (score float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("worker %d: evaluator panic: %v", worker, rec)
		}
	}()
	return p.cfg.Evaluator.Evaluate(p.ctx, job)
}
