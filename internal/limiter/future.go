// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package limiter

import "context"

// Future is the pending result of a submitted Task.
type Future struct {
	done  chan struct{}
	value interface{}
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// rejected returns a future that is already resolved with err.
func rejected(err error) *Future {
	f := newFuture()
	f.resolve(nil, err)
	return f
}

// resolve must be called exactly once; only the worker resolves queued jobs.
func (f *Future) resolve(value interface{}, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finished or ctx is done. Abandoning a future
// does not remove its job from the queue.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
