package gojafutures

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/joeycumines/goja-futures/future"
)

// ToGo wraps a JS promise (any thenable) in a Go future that settles when
// the promise settles. The pending future is returned synchronously.
//
// Must be called on the event loop goroutine; vm must be the loop's runtime.
// Settlement is always observed on the loop (a JS guarantee), so the
// resulting future's continuation, if any, also runs there; Wait may be used
// from any goroutine.
//
// Rejection mapping: an Error instance becomes a *JSError carrying the exact
// object; any other reason becomes ErrNonErrorRejection. A promise that
// never settles leaves its token live indefinitely — JS promises are not
// cancelable, and neither is this.
func ToGo[T any](b *Bridge, vm *goja.Runtime, thenable goja.Value, box Boxer[T]) (*future.Future[T], error) {
	if box == nil && !isVoid[T]() {
		return nil, errors.New("gojafutures: nil boxer")
	}
	if thenable == nil || goja.IsUndefined(thenable) || goja.IsNull(thenable) {
		return nil, errors.New("gojafutures: value is not a thenable")
	}
	obj := thenable.ToObject(vm)
	thenFn, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		return nil, errors.New("gojafutures: value is not a thenable")
	}

	p := future.New[T]()
	token := b.handles.put(p)

	// The callbacks close over the token only; the promise is re-fetched
	// from the handle table at settlement, and taking it releases it. At
	// most one of the two fires, per the JS promise contract.
	onFulfilled := func(call goja.FunctionCall) goja.Value {
		v, ok := b.handles.take(token)
		if !ok {
			return goja.Undefined()
		}
		p := v.(*future.Promise[T])
		if isVoid[T]() {
			var zero T
			p.Resolve(zero)
			return goja.Undefined()
		}
		nv, err := box.FromJS(vm, call.Argument(0))
		if err != nil {
			p.Reject(fmt.Errorf("gojafutures: unbox fulfilled value: %w", err))
		} else {
			p.Resolve(nv)
		}
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		v, ok := b.handles.take(token)
		if !ok {
			return goja.Undefined()
		}
		p := v.(*future.Promise[T])
		reason := call.Argument(0)
		if isErrorValue(vm, reason) {
			p.Reject(newJSError(vm, reason))
		} else {
			p.Reject(ErrNonErrorRejection)
		}
		return goja.Undefined()
	}

	// then(fulfilled) followed by catch(rejected) on the derived promise;
	// onFulfilled never throws, so the catch only observes rejections of
	// the original.
	next, err := thenFn(obj, vm.ToValue(onFulfilled))
	if err != nil {
		b.handles.take(token)
		return nil, fmt.Errorf("gojafutures: then: %w", err)
	}
	nextObj := next.ToObject(vm)
	catchFn, ok := goja.AssertFunction(nextObj.Get("catch"))
	if !ok {
		b.handles.take(token)
		return nil, errors.New("gojafutures: thenable has no catch")
	}
	if _, err := catchFn(nextObj, vm.ToValue(onRejected)); err != nil {
		b.handles.take(token)
		return nil, fmt.Errorf("gojafutures: catch: %w", err)
	}

	return p.Future(), nil
}
