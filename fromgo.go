package gojafutures

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/joeycumines/goja-futures/future"
)

// resolveHandler is the per-conversion state for the Go→JS direction. It is
// created by FromGo, parked in the handle table under its token, and
// released exactly once by the settlement trampoline.
type resolveHandler[T any] struct {
	b     *Bridge
	box   Boxer[T]
	token int64

	// The loop's runtime, captured at FromGo time; dereferenced only on
	// the loop goroutine (inline settlement path).
	vm *goja.Runtime

	// Stored by the builder's init callback, synchronously during FromGo.
	resolve goja.Callable
	reject  goja.Callable

	// The completed future, stored by the continuation before the
	// trampoline fires.
	fut *future.Future[T]
}

func (h *resolveHandler[T]) initCallbacks(resolve, reject goja.Callable) {
	h.resolve = resolve
	h.reject = reject
}

// FromGo wraps a Go future in a JS promise that settles when the future
// settles. The promise value is returned immediately, before settlement.
// The future's single continuation slot is consumed.
//
// Must be called on the event loop goroutine (it constructs JS objects); vm
// must be the loop's runtime. Completion of f may happen on any goroutine;
// the final resolve/reject is marshalled back to the loop.
func FromGo[T any](b *Bridge, vm *goja.Runtime, f *future.Future[T], box Boxer[T]) (goja.Value, error) {
	if f == nil {
		return nil, errors.New("gojafutures: nil future")
	}
	if box == nil && !isVoid[T]() {
		return nil, errors.New("gojafutures: nil boxer")
	}

	h := &resolveHandler[T]{b: b, box: box, vm: vm}
	h.token = b.handles.put(h)

	promise, err := b.buildHostPromise(vm, h.token)
	if err != nil {
		b.handles.take(h.token)
		return nil, err
	}
	if h.resolve == nil || h.reject == nil {
		b.handles.take(h.token)
		return nil, errors.New("gojafutures: promise builder did not supply callables")
	}

	f.OnComplete(func(done *future.Future[T]) {
		h.fut = done
		h.trampoline()
	})

	return promise, nil
}

// trampoline dispatches final settlement to the loop goroutine, or runs it
// inline when the completing goroutine already is the loop (e.g. a future
// that was already settled when FromGo attached its continuation).
func (h *resolveHandler[T]) trampoline() {
	if h.b.onLoop() {
		h.settle(h.vm)
		return
	}
	run := func(vm *goja.Runtime) { h.settle(vm) }
	if h.b.RunOnLoop(run) {
		return
	}
	// Bridge stopped but the loop may still be alive; settle anyway so the
	// promise does not hang for other loop users.
	if h.b.loop.RunOnLoop(run) {
		return
	}
	// Loop gone. Release the context so accounting stays exact; the
	// promise stays pending, as does everything else on that loop.
	h.b.handles.take(h.token)
	h.b.log().Warn("dropping promise settlement, event loop stopped",
		"token", h.token)
}

// settle performs the terminal resolve or reject. Loop goroutine only;
// executes exactly once per handler, releasing the token first.
func (h *resolveHandler[T]) settle(vm *goja.Runtime) {
	if _, ok := h.b.handles.take(h.token); !ok {
		return
	}

	v, err := h.fut.Get()
	if err != nil {
		h.invoke(h.reject, errorToJS(vm, err))
		return
	}
	if isVoid[T]() {
		h.invoke(h.resolve, goja.Undefined())
		return
	}
	boxed, err := h.box.ToJS(vm, v)
	if err != nil {
		h.invoke(h.reject, errorToJS(vm, err))
		return
	}
	h.invoke(h.resolve, boxed)
}

func (h *resolveHandler[T]) invoke(fn goja.Callable, arg goja.Value) {
	if _, err := fn(goja.Undefined(), arg); err != nil {
		h.b.log().Error("promise settlement callable failed",
			"token", h.token, "error", err)
	}
}
