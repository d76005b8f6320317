// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package limiter serializes outbound MangaDex calls.
//
// A Queue has one consumer goroutine that starts jobs strictly in submission
// order and keeps at least minDelay between two consecutive starts, so at
// most one upstream call made through the queue is in flight at a time.
// Run it under the supervisor:
//
//	q := limiter.NewQueue(250*time.Millisecond)
//	tree.AddUpstreamService(q)
//	v, err := q.Do(ctx, func(ctx context.Context) (interface{}, error) { ... })
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/metrics"
)

// DefaultCapacity is the queue buffer size when none is configured.
const DefaultCapacity = 256

// ErrQueueStopped rejects jobs that were still queued, or submitted, after
// the worker shut down.
var ErrQueueStopped = errors.New("limiter: queue stopped")

// Task is one unit of queued work. ctx is the submitter's context.
type Task func(ctx context.Context) (interface{}, error)

type job struct {
	ctx      context.Context
	task     Task
	future   *Future
	enqueued time.Time
}

type startKey struct{}

// StartedAt returns the instant the worker started the task running under ctx.
func StartedAt(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startKey{}).(time.Time)
	return t, ok
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity sets the queue buffer size. Values < 1 keep the default.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// Queue is a FIFO request limiter with a minimum delay between task starts.
type Queue struct {
	minDelay time.Duration
	capacity int
	jobs     chan *job

	// submitters hold mu.RLock while enqueueing; shutdown takes the write
	// lock so no job can slip in after the final drain.
	mu       sync.RWMutex
	stopped  bool
	stopping chan struct{}
	stopOnce sync.Once

	// lastStart is only touched by the worker goroutine.
	lastStart time.Time
}

// NewQueue creates a queue. The worker does not run until Serve is called.
func NewQueue(minDelay time.Duration, opts ...Option) *Queue {
	q := &Queue{
		minDelay: minDelay,
		capacity: DefaultCapacity,
		stopping: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan *job, q.capacity)
	return q
}

// MinDelay returns the configured gap between task starts.
func (q *Queue) MinDelay() time.Duration {
	return q.minDelay
}

// Len returns the number of queued jobs not yet started.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Submit enqueues task and returns its future. It blocks while the queue is
// full; if ctx ends first the returned future is rejected with ctx.Err().
func (q *Queue) Submit(ctx context.Context, task Task) *Future {
	if err := ctx.Err(); err != nil {
		return rejected(err)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return rejected(ErrQueueStopped)
	}

	j := &job{ctx: ctx, task: task, future: newFuture(), enqueued: time.Now()}
	select {
	case q.jobs <- j:
		metrics.LimiterQueueDepth.Set(float64(len(q.jobs)))
		return j.future
	case <-ctx.Done():
		return rejected(ctx.Err())
	case <-q.stopping:
		return rejected(ErrQueueStopped)
	}
}

// Do submits task and waits for its result.
func (q *Queue) Do(ctx context.Context, task Task) (interface{}, error) {
	return q.Submit(ctx, task).Wait(ctx)
}

// Serve runs the single consumer until ctx is canceled, then rejects every
// job still queued with ErrQueueStopped. It implements suture.Service.
func (q *Queue) Serve(ctx context.Context) error {
	q.mu.RLock()
	stopped := q.stopped
	q.mu.RUnlock()
	if stopped {
		return ErrQueueStopped
	}

	logging.Debug().Dur("min_delay", q.minDelay).Int("capacity", q.capacity).Msg("Request queue started")

	for {
		// Shutdown wins over queued work.
		if ctx.Err() != nil {
			q.shutdown()
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			q.shutdown()
			return ctx.Err()
		case j := <-q.jobs:
			metrics.LimiterQueueDepth.Set(float64(len(q.jobs)))
			if !q.dispatch(ctx, j) {
				q.shutdown()
				return ctx.Err()
			}
		}
	}
}

// dispatch waits for the job's start slot and runs it. It returns false when
// the worker is stopping; j has been resolved in every case.
func (q *Queue) dispatch(ctx context.Context, j *job) bool {
	if err := j.ctx.Err(); err != nil {
		j.future.resolve(nil, err)
		metrics.RecordLimiterTask("cancelled", 0)
		return true
	}

	if !q.lastStart.IsZero() {
		if remaining := q.minDelay - time.Since(q.lastStart); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-timer.C:
			case <-j.ctx.Done():
				timer.Stop()
				j.future.resolve(nil, j.ctx.Err())
				metrics.RecordLimiterTask("cancelled", 0)
				return true
			case <-ctx.Done():
				timer.Stop()
				j.future.resolve(nil, ErrQueueStopped)
				metrics.RecordLimiterTask("stopped", 0)
				return false
			}
		}
	}

	q.lastStart = time.Now()
	value, outcome, err := q.run(j)
	metrics.RecordLimiterTask(outcome, q.lastStart.Sub(j.enqueued))
	j.future.resolve(value, err)
	return true
}

func (q *Queue) run(j *job) (value interface{}, outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(j.ctx).Error().Interface("panic", r).Msg("Queued task panicked")
			value, outcome, err = nil, "panic", fmt.Errorf("limiter: task panicked: %v", r)
		}
	}()

	value, err = j.task(context.WithValue(j.ctx, startKey{}, q.lastStart))
	if err != nil {
		return value, "error", err
	}
	return value, "success", nil
}

func (q *Queue) shutdown() {
	q.stopOnce.Do(func() {
		close(q.stopping)

		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()

		drained := 0
		for {
			select {
			case j := <-q.jobs:
				j.future.resolve(nil, ErrQueueStopped)
				metrics.RecordLimiterTask("stopped", 0)
				drained++
			default:
				metrics.LimiterQueueDepth.Set(0)
				if drained > 0 {
					logging.Info().Int("rejected", drained).Msg("Request queue stopped with pending jobs")
				}
				return
			}
		}
	})
}

// String implements fmt.Stringer for supervisor logging.
func (q *Queue) String() string {
	return "mangadex-request-queue"
}
