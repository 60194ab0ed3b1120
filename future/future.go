// Package future provides a minimal write-once promise / read-once future
// pair for handing an eventually-available value between goroutines.
//
// A Promise is the producer half: exactly one of Resolve or Reject may be
// called on it, exactly once, for its whole lifetime. The paired Future is
// the consumer half: it supports attaching a single completion continuation,
// blocking until completion, and extracting the settled result.
//
// The package is independent of any JavaScript integration; the bridge
// packages build on it but it is usable on its own.
package future

import (
	"context"
	"sync"
)

// Future is the consumer half of a promise/future pair. It is settled at
// most once by the paired Promise. Abandoning a pending Future (dropping all
// references to it and its Promise) is legal; it simply never completes.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	value    T
	err      error
	cont     func(*Future[T])
	contSet  bool
	complete bool
}

// Promise is the producer half of a promise/future pair. Settling it twice
// is a caller defect and panics; every code path that creates a Promise must
// guarantee exactly one terminal call.
type Promise[T any] struct {
	f *Future[T]
}

// New creates a pending promise/future pair.
func New[T any]() *Promise[T] {
	return &Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	p := New[T]()
	p.Resolve(v)
	return p.Future()
}

// Rejected returns a future already completed with the terminal error err.
func Rejected[T any](err error) *Future[T] {
	p := New[T]()
	p.Reject(err)
	return p.Future()
}

// Future returns the consumer half paired with p. It may be called any
// number of times; the same Future is returned each time.
func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

// Resolve completes the paired future with v. Panics if the promise was
// already settled.
func (p *Promise[T]) Resolve(v T) {
	p.f.settle(v, nil)
}

// Reject completes the paired future with the terminal error err. Panics if
// the promise was already settled, or if err is nil.
func (p *Promise[T]) Reject(err error) {
	if err == nil {
		panic("future: Reject called with nil error")
	}
	var zero T
	p.f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.complete {
		f.mu.Unlock()
		panic("future: promise settled twice")
	}
	f.value = v
	f.err = err
	f.complete = true
	cont := f.cont
	f.cont = nil
	close(f.done)
	f.mu.Unlock()

	// Run outside the lock so the continuation may freely inspect f.
	if cont != nil {
		cont(f)
	}
}

// OnComplete attaches the single completion continuation. If the future is
// already settled the continuation runs immediately on the calling
// goroutine; otherwise it runs later on whichever goroutine settles the
// promise. Attaching a second continuation panics.
func (f *Future[T]) OnComplete(fn func(*Future[T])) {
	if fn == nil {
		panic("future: OnComplete called with nil continuation")
	}
	f.mu.Lock()
	if f.contSet {
		f.mu.Unlock()
		panic("future: continuation already attached")
	}
	f.contSet = true
	if !f.complete {
		f.cont = fn
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn(f)
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the future has settled.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future settles and returns its value or terminal
// error. Settlement happens-before Get returns.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait blocks until the future settles or ctx is done, whichever comes
// first. On ctx expiry the future itself is unaffected and remains pending.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
		return f.value, f.err
	}
}
