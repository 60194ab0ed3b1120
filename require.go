package gojafutures

import (
	"errors"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/goja-futures/future"
)

// moduleLoader returns the loader for the "goja:futures" native module,
// exposing the bridge to scripts.
//
// JavaScript API:
//
//	const futures = require('goja:futures');
//
//	// Promise fulfilled (with undefined) after ms milliseconds. The timer
//	// fires on a Go timer goroutine; settlement is marshalled back to the
//	// event loop by the bridge.
//	futures.delay(ms)
//
//	// Promise rejected with an Error carrying message after ms milliseconds.
//	futures.failAfter(ms, message)
//
//	// Number of in-flight bridged conversions.
//	futures.pending()
func (b *Bridge) moduleLoader() require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)

		_ = exports.Set("delay", func(call goja.FunctionCall) goja.Value {
			ms := call.Argument(0).ToInteger()
			if ms < 0 {
				panic(runtime.NewTypeError("delay requires a non-negative duration"))
			}
			p := future.New[Void]()
			time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
				p.Resolve(Void{})
			})
			promise, err := FromGo[Void](b, runtime, p.Future(), VoidBoxer{})
			if err != nil {
				panic(runtime.NewGoError(err))
			}
			return promise
		})

		_ = exports.Set("failAfter", func(call goja.FunctionCall) goja.Value {
			ms := call.Argument(0).ToInteger()
			if ms < 0 {
				panic(runtime.NewTypeError("failAfter requires a non-negative duration"))
			}
			message := call.Argument(1).String()
			p := future.New[Void]()
			time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
				p.Reject(errors.New(message))
			})
			promise, err := FromGo[Void](b, runtime, p.Future(), VoidBoxer{})
			if err != nil {
				panic(runtime.NewGoError(err))
			}
			return promise
		})

		_ = exports.Set("pending", func(call goja.FunctionCall) goja.Value {
			return runtime.ToValue(b.Pending())
		})
	}
}
