// Package jobqueue is a bounded, mutex-guarded queue with a pluggable dequeue
// order. Consumers block in Get until an item arrives or the queue is closed.
// Producers either fail fast with Add or wait for a free slot with Put.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Policy selects which queued item Get returns.
type Policy int

const (
	// Linear returns items in insertion order.
	Linear Policy = iota
	// Random returns any queued item with equal probability.
	Random
	// Priority returns the item with the highest priority value. Ties go to
	// the item closest to the head.
	Priority
)

var (
	ErrFull          = errors.New("job queue is full")
	ErrClosed        = errors.New("job queue is closed")
	ErrPriorityFunc  = errors.New("priority policy requires a priority function")
	ErrCapacity      = errors.New("job queue capacity must be positive")
	ErrUnknownPolicy = errors.New("unknown job queue policy")
)

func (p Policy) String() string {
	switch p {
	case Linear:
		return "linear"
	case Random:
		return "random"
	case Priority:
		return "priority"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts the names printed by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "fifo":
		return Linear, nil
	case "random":
		return Random, nil
	case "priority":
		return Priority, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

type Config[T any] struct {
	Policy   Policy
	Capacity int
	// Priority ranks items under the Priority policy. Larger is served first.
	Priority func(T) float64
	// Rand drives the Random policy. A time-seeded source is used when nil.
	Rand *rand.Rand
}

type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	space    *sync.Cond
	policy   Policy
	priority func(T) float64
	rng      *rand.Rand

	buf    []T
	head   int
	used   int
	closed bool
}

func New[T any](cfg Config[T]) (*Queue[T], error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCapacity, cfg.Capacity)
	}
	switch cfg.Policy {
	case Linear, Random:
	case Priority:
		if cfg.Priority == nil {
			return nil, ErrPriorityFunc
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(cfg.Policy))
	}
	rng := cfg.Rand
	if rng == nil && cfg.Policy == Random {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	q := &Queue[T]{
		policy:   cfg.Policy,
		priority: cfg.Priority,
		rng:      rng,
		buf:      make([]T, cfg.Capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	q.space = sync.NewCond(&q.mu)
	return q, nil
}

func (q *Queue[T]) Policy() Policy { return q.policy }
func (q *Queue[T]) Cap() int       { return len(q.buf) }

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Add copies item into the queue. It fails with ErrFull when every slot is
// taken and leaves the queued items untouched.
func (q *Queue[T]) Add(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.used == len(q.buf) {
		return ErrFull
	}
	q.push(item)
	return nil
}

// Put is the blocking form of Add: while the queue is full it waits for a
// consumer to free a slot. It returns ErrClosed if the queue is closed before
// the item fits, or the context's error if ctx ends first.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.space.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.used == len(q.buf) && !q.closed && ctx.Err() == nil {
		q.space.Wait()
	}
	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q.push(item)
	return nil
}

// push must be called with mu held and a free slot.
func (q *Queue[T]) push(item T) {
	q.buf[q.slot(q.used)] = item
	q.used++
	q.cond.Signal()
}

// Get removes one item according to the policy, waiting while the queue is
// empty. It returns ErrClosed once the queue is closed and drained, or the
// context's error if ctx ends first.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.used == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if q.used == 0 {
		return zero, ErrClosed
	}
	return q.take(), nil
}

// TryGet is the non-blocking form of Get.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// Close stops Add and Put and wakes every waiting producer and consumer. Items already queued can
// still be taken.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
	q.space.Broadcast()
}

// take must be called with mu held and used > 0.
func (q *Queue[T]) take() T {
	switch q.policy {
	case Random:
		q.swapToHead(q.rng.Intn(q.used))
	case Priority:
		best, bestVal := 0, q.priority(q.buf[q.head])
		for k := 1; k < q.used; k++ {
			if v := q.priority(q.buf[q.slot(k)]); v > bestVal {
				best, bestVal = k, v
			}
		}
		q.swapToHead(best)
	}
	var zero T
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.used--
	q.space.Signal()
	return item
}

func (q *Queue[T]) slot(k int) int {
	return (q.head + k) % len(q.buf)
}

func (q *Queue[T]) swapToHead(k int) {
	if k == 0 {
		return
	}
	i := q.slot(k)
	q.buf[q.head], q.buf[i] = q.buf[i], q.buf[q.head]
}
