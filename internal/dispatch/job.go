package dispatch

import (
	"sync"
	"time"

	"github.com/JD-Gaming/jd-gaming/internal/nn"
)

// Job asks a worker to score one network. The fields below Seed are written
// once, by the worker that takes the job, under the owning Batch's lock.
type Job struct {
	Network    *nn.Network
	Index      int
	Generation int
	Trials     int
	Seed       int64

	Score     float64
	Cancelled bool
	Err       error
	Worker    int
	Elapsed   time.Duration
	done      bool
}

// Batch is one generation's jobs and the barrier that waits for all of them.
type Batch struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []*Job
	pending int
}

func NewBatch(jobs []*Job) *Batch {
	b := &Batch{jobs: jobs, pending: len(jobs)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Batch) Jobs() []*Job { return b.jobs }

// Pending is the number of jobs not yet marked done.
func (b *Batch) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Wait blocks until every job in the batch is done or cancelled.
func (b *Batch) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending > 0 {
		b.cond.Wait()
	}
}

// Done reports whether job has been completed. Safe to call while workers run.
func (b *Batch) Done(job *Job) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return job.done
}

type result struct {
	score     float64
	cancelled bool
	err       error
	worker    int
	elapsed   time.Duration
}

// complete records a job's outcome, runs after (if any) and then releases the
// job from the barrier. A cancelled job always scores zero.
func (b *Batch) complete(job *Job, r result, after func()) {
	b.mu.Lock()
	if job.done {
		b.mu.Unlock()
		return
	}
	job.Score = r.score
	if r.cancelled {
		job.Score = 0
	}
	job.Cancelled = r.cancelled
	job.Err = r.err
	job.Worker = r.worker
	job.Elapsed = r.elapsed
	job.done = true
	b.mu.Unlock()

	if after != nil {
		after()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending--
	if b.pending == 0 {
		b.cond.Broadcast()
	}
}
