// Package gojafutures bridges Go promise/future pairs and goja JavaScript
// promises in both directions, on top of the goja_nodejs event loop.
//
// The two runtimes have opposite threading models: Go-side work may complete
// a future on any goroutine, while the goja runtime and everything reachable
// from it (promise resolve/reject callables included) may only be touched
// from the event loop goroutine. The Bridge owns the marshalling between the
// two, and guarantees exactly-once settlement of every bridged promise and
// future on every path.
//
// Key constraints:
//   - goja.Runtime is NOT goroutine-safe; all access must happen on the loop
//   - the event loop must be started before the Bridge is created
//   - the loop is externally owned; Stop() does not stop it
package gojafutures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/goja-futures/internal/goroutineid"
)

// DefaultTimeout bounds RunOnLoopSync waits unless overridden.
const DefaultTimeout = 5 * time.Second

// ModuleName is the name the script-facing native module is registered
// under when a require registry is supplied to New.
const ModuleName = "goja:futures"

// Bridge manages promise/future conversion against one event loop. Create
// it with New; all methods are safe for concurrent use.
type Bridge struct {
	timeout time.Duration
	loop    *eventloop.EventLoop
	logger  *slog.Logger

	// Goroutine ID of the event loop, captured during init. Used to
	// collapse the settlement trampoline to a direct call when the
	// completing goroutine already is the loop.
	loopGoroutineID atomic.Int64

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc

	// handles maps correlation tokens to in-flight conversion state. The
	// JS boundary only carries integer tokens, never Go references.
	handles handleTable

	// buildFn is the installed promise builder, cached at init. Only
	// invoked on the loop goroutine.
	buildFn goja.Callable
}

// New creates a Bridge over an already started, externally owned event loop.
// If registry is non-nil the "goja:futures" native module is registered with
// it, exposing the bridge to scripts.
//
// Panics if loop is nil or the JavaScript environment cannot be initialized.
// When ctx is cancelable, cancellation stops the bridge.
func New(ctx context.Context, loop *eventloop.EventLoop, registry *require.Registry) *Bridge {
	if loop == nil {
		panic("gojafutures: event loop must not be nil")
	}

	// The bridge lifecycle context is independent of the parent so that
	// stopped-state and Done() closure stay atomic under b.mu; parent
	// cancellation routes through Stop instead.
	childCtx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		timeout: DefaultTimeout,
		loop:    loop,
		logger:  slog.New(slog.DiscardHandler),
		ctx:     childCtx,
		cancel:  cancel,
	}
	b.handles.init()

	b.mu.Lock()
	b.started = true
	b.mu.Unlock()

	// Initialize on the loop BEFORE registering the module, so the loop
	// goroutine ID is captured before any script can require it.
	errCh := make(chan error, 1)
	if !loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- b.initializeJS(vm)
	}) {
		cancel()
		panic("gojafutures: event loop not running")
	}
	if err := <-errCh; err != nil {
		cancel()
		panic(fmt.Sprintf("gojafutures: failed to initialize JavaScript environment: %v", err))
	}

	if registry != nil {
		registry.RegisterNativeModule(ModuleName, b.moduleLoader())
	}

	if ctx.Done() != nil {
		context.AfterFunc(ctx, b.Stop)
	}

	return b
}

// jsHelpers installs the promise builder used by the Go→JS direction. The
// builder's executor runs synchronously inside the Promise constructor and
// hands the resolve/reject callables back to Go keyed by the correlation
// token, before the promise object is ever visible to anything else.
const jsHelpers = `
(function () {
	'use strict';
	globalThis.__gojaFutures = {
		build: function (token) {
			var out = {};
			out.promise = new Promise(function (resolve, reject) {
				__gojaFuturesInit(token, resolve, reject);
			});
			return out;
		}
	};
})();
`

// initReceiver is the non-generic face of the Go→JS conversion state, so the
// init callback can store callables without knowing the result type.
type initReceiver interface {
	initCallbacks(resolve, reject goja.Callable)
}

func (b *Bridge) initializeJS(vm *goja.Runtime) error {
	b.loopGoroutineID.Store(goroutineid.Get())

	err := vm.Set("__gojaFuturesInit", func(call goja.FunctionCall) goja.Value {
		token := call.Argument(0).ToInteger()
		v, ok := b.handles.get(token)
		if !ok {
			panic(vm.NewTypeError("unknown bridge token %d", token))
		}
		h, ok := v.(initReceiver)
		if !ok {
			panic(vm.NewTypeError("token %d does not refer to an outbound bridge", token))
		}
		resolve, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("resolve is not callable"))
		}
		reject, ok := goja.AssertFunction(call.Argument(2))
		if !ok {
			panic(vm.NewTypeError("reject is not callable"))
		}
		h.initCallbacks(resolve, reject)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	if _, err := vm.RunString(jsHelpers); err != nil {
		return err
	}

	buildVal := vm.Get("__gojaFutures").ToObject(vm).Get("build")
	buildFn, ok := goja.AssertFunction(buildVal)
	if !ok {
		return errors.New("__gojaFutures.build is not callable")
	}
	b.buildFn = buildFn
	return nil
}

// Stop stops the bridge. Safe to call multiple times. The event loop itself
// is left running; in-flight settlements already posted to it may still
// execute after Stop returns.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	// Cancel and flag under one critical section: anything that observes
	// Done() closed must also observe stopped.
	b.cancel()
	b.stopped = true
	b.mu.Unlock()
}

// Done returns a channel closed once the bridge has been stopped.
func (b *Bridge) Done() <-chan struct{} {
	return b.ctx.Done()
}

// IsRunning reports whether the bridge is started and not stopped.
func (b *Bridge) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started && !b.stopped
}

// Pending returns the number of in-flight bridged conversions, i.e. live
// correlation tokens. It reaches zero once every bridged promise and future
// has settled.
func (b *Bridge) Pending() int {
	return b.handles.count()
}

// SetTimeout sets the bound on RunOnLoopSync waits. Zero disables it.
func (b *Bridge) SetTimeout(timeout time.Duration) {
	b.mu.Lock()
	b.timeout = timeout
	b.mu.Unlock()
}

// GetTimeout returns the current RunOnLoopSync bound.
func (b *Bridge) GetTimeout() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timeout
}

// SetLogger sets the diagnostic logger. A nil logger silences diagnostics.
func (b *Bridge) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

func (b *Bridge) log() *slog.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.logger
}

// onLoop reports whether the caller is the event loop goroutine.
func (b *Bridge) onLoop() bool {
	id := b.loopGoroutineID.Load()
	return id > 0 && goroutineid.Get() == id
}

// RunOnLoop schedules fn on the event loop goroutine. Returns false if the
// bridge or the loop is not running. All goja.Runtime operations must happen
// inside such callbacks.
func (b *Bridge) RunOnLoop(fn func(*goja.Runtime)) bool {
	b.mu.RLock()
	if !b.started || b.stopped {
		b.mu.RUnlock()
		return false
	}
	b.mu.RUnlock()
	return b.loop.RunOnLoop(fn)
}

// RunOnLoopSync schedules fn on the event loop and waits for it to finish,
// honoring the configured timeout and bridge shutdown.
func (b *Bridge) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	b.mu.RLock()
	if !b.started || b.stopped {
		b.mu.RUnlock()
		return errors.New("gojafutures: event loop not running")
	}
	timeout := b.timeout
	b.mu.RUnlock()

	errCh := make(chan error, 1)
	if !b.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- fn(vm)
	}) {
		return errors.New("gojafutures: event loop not running")
	}

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err := <-errCh:
			return err
		case <-b.Done():
			return errors.New("gojafutures: bridge stopped before completion")
		case <-timer.C:
			return fmt.Errorf("gojafutures: operation timed out after %v", timeout)
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-b.Done():
		return errors.New("gojafutures: bridge stopped before completion")
	}
}

// TryRunOnLoopSync runs fn on the event loop, executing it directly when the
// caller already is the loop goroutine (avoiding deadlock for re-entrant
// calls). currentVM is only used on the direct path and must then be the
// loop's runtime.
func (b *Bridge) TryRunOnLoopSync(currentVM *goja.Runtime, fn func(*goja.Runtime) error) error {
	b.mu.RLock()
	if !b.started || b.stopped {
		b.mu.RUnlock()
		return errors.New("gojafutures: event loop not running")
	}
	b.mu.RUnlock()

	if b.onLoop() {
		return fn(currentVM)
	}
	return b.RunOnLoopSync(fn)
}

// buildHostPromise invokes the installed promise builder with the token and
// returns the resulting promise value. Loop goroutine only.
func (b *Bridge) buildHostPromise(vm *goja.Runtime, token int64) (goja.Value, error) {
	out, err := b.buildFn(goja.Undefined(), vm.ToValue(token))
	if err != nil {
		return nil, fmt.Errorf("promise builder: %w", err)
	}
	promise := out.ToObject(vm).Get("promise")
	if promise == nil || goja.IsUndefined(promise) {
		return nil, errors.New("promise builder returned no promise")
	}
	return promise, nil
}
