package gojafutures

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/goja-futures/future"
)

func TestRejectedPromise(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)
	ch := make(chan settlement, 2)

	err := b.RunOnLoopSync(func(vm *goja.Runtime) error {
		promise, err := RejectedPromise(b, vm, errors.New("sync failure"), StringBoxer{})
		if err != nil {
			return err
		}
		return observePromise(vm, promise, ch)
	})
	require.NoError(t, err)

	s := awaitSettlement(t, b, ch)
	require.False(t, s.fulfilled)
	require.True(t, s.isError, "scripts must observe an Error, never a raw Go failure")
	require.Contains(t, s.errMessage, "sync failure")
	require.Zero(t, b.Pending())
}

func TestRejectedPromise_Void(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)
	ch := make(chan settlement, 2)

	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		promise, err := RejectedPromise[Void](b, vm, errors.New("void failure"), VoidBoxer{})
		if err != nil {
			return err
		}
		return observePromise(vm, promise, ch)
	}))

	s := awaitSettlement(t, b, ch)
	require.False(t, s.fulfilled)
	require.Contains(t, s.errMessage, "void failure")
	require.Zero(t, b.Pending())
}

// A JS error that crossed into Go must cross back out as the exact same
// object, not a re-stringified copy.
func TestRejection_RoundTripsExactObject(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)
	matched := make(chan bool, 1)

	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		inner, err := vm.RunString(`
			globalThis.__original = new Error("carried across twice");
			Promise.reject(globalThis.__original);
		`)
		if err != nil {
			return err
		}
		fut, err := ToGo(b, vm, inner, StringBoxer{})
		if err != nil {
			return err
		}
		outer, err := FromGo(b, vm, fut, StringBoxer{})
		if err != nil {
			return err
		}

		obj := outer.ToObject(vm)
		catchFn, ok := goja.AssertFunction(obj.Get("catch"))
		if !ok {
			return errors.New("no catch")
		}
		_, err = catchFn(obj, vm.ToValue(func(call goja.FunctionCall) goja.Value {
			matched <- call.Argument(0).StrictEquals(vm.Get("__original"))
			return goja.Undefined()
		}))
		return err
	}))

	require.True(t, <-matched, "rejection must carry the original Error object")
	require.Zero(t, b.Pending())
}

func TestErrorToJS(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)

	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		// Plain Go error becomes a GoError (an Error instance).
		v := errorToJS(vm, errors.New("plain"))
		require.True(t, isErrorValue(vm, v))

		// JSError unwraps to its original value.
		orig, err := vm.RunString(`new Error("original")`)
		require.NoError(t, err)
		jsErr := newJSError(vm, orig)
		require.Equal(t, "gojafutures: js error: original", jsErr.Error())
		require.True(t, errorToJS(vm, jsErr).StrictEquals(orig))

		// Wrapping does not defeat unwrapping.
		wrapped := errors.Join(errors.New("outer"), jsErr)
		require.True(t, errorToJS(vm, wrapped).StrictEquals(orig))
		return nil
	}))
}

func TestIsErrorValue(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)

	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		for script, want := range map[string]bool{
			`new Error("e")`:     true,
			`new TypeError("t")`: true,
			`42`:                 false,
			`"string"`:           false,
			`null`:               false,
			`undefined`:          false,
			`({})`:               false,
		} {
			v, err := vm.RunString(script)
			require.NoError(t, err, script)
			require.Equal(t, want, isErrorValue(vm, v), script)
		}
		require.False(t, isErrorValue(vm, nil))
		return nil
	}))
}

func TestJSError_EmptyMessage(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)

	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		v, err := vm.RunString(`new Error()`)
		require.NoError(t, err)
		jsErr := newJSError(vm, v)
		require.NotEmpty(t, jsErr.Error())
		return nil
	}))
}

// Exception adaptation composes with the Host→Native direction: the bridged
// future of an adapted rejection carries the Go error's message.
func TestRejectedPromise_ObservableFromGoSide(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)

	var fut *future.Future[string]
	require.NoError(t, b.RunOnLoopSync(func(vm *goja.Runtime) error {
		promise, err := RejectedPromise(b, vm, errors.New("adapted"), StringBoxer{})
		if err != nil {
			return err
		}
		fut, err = ToGo(b, vm, promise, StringBoxer{})
		return err
	}))

	_, err := fut.Wait(waitCtx(t))
	require.Error(t, err)
	var jsErr *JSError
	require.ErrorAs(t, err, &jsErr)
	require.Contains(t, jsErr.Error(), "adapted")
	require.Zero(t, b.Pending())
}
