package gojafutures

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/joeycumines/goja-futures/future"
)

// ErrNonErrorRejection marks a JS promise rejection whose reason was not an
// Error instance. Stringifying arbitrary JS values is deliberately not
// attempted; the reason is dropped.
var ErrNonErrorRejection = errors.New("gojafutures: promise rejected with non-error value")

// JSError is a Go error wrapping a JavaScript Error that rejected a bridged
// promise. Value returns the exact rejection object; like any goja value it
// may only be used on the event loop goroutine.
type JSError struct {
	value   goja.Value
	message string
}

func newJSError(vm *goja.Runtime, v goja.Value) *JSError {
	e := &JSError{value: v}
	if obj := v.ToObject(vm); obj != nil {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			e.message = msg.String()
		}
	}
	return e
}

func (e *JSError) Error() string {
	if e.message == "" {
		return "gojafutures: js error"
	}
	return "gojafutures: js error: " + e.message
}

// Value returns the original JavaScript Error object.
func (e *JSError) Value() goja.Value {
	return e.value
}

// isErrorValue reports whether v is an instance of the runtime's Error
// constructor. False for nil, null, and undefined.
func isErrorValue(vm *goja.Runtime, v goja.Value) bool {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false
	}
	ctor, ok := vm.Get("Error").(*goja.Object)
	if !ok {
		return false
	}
	return vm.InstanceOf(v, ctor)
}

// errorToJS converts a Go error into a JS value suitable for rejecting a
// promise with. A JSError unwraps to the exact object it was created from;
// a goja.Exception rethrows its original thrown value; anything else becomes
// a GoError.
func errorToJS(vm *goja.Runtime, err error) goja.Value {
	var jsErr *JSError
	if errors.As(err, &jsErr) && jsErr.value != nil {
		return jsErr.value
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Value()
	}
	return vm.NewGoError(err)
}

// RejectedPromise adapts a Go-side failure into an already-rejecting JS
// promise, by constructing a rejected future and feeding it through FromGo.
// This is the canonical way a Go error becomes visible to scripts: a raw Go
// error (or panic) must never cross the boundary unconverted.
//
// Must be called on the event loop goroutine.
func RejectedPromise[T any](b *Bridge, vm *goja.Runtime, err error, box Boxer[T]) (goja.Value, error) {
	return FromGo(b, vm, future.Rejected[T](err), box)
}
