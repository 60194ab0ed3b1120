package gojafutures

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Boxer converts a single result type between its Go and JavaScript
// representations. One Boxer is supplied per bridged conversion; the bridge
// itself is type-agnostic.
//
// Both methods are only ever called on the event loop goroutine.
type Boxer[T any] interface {
	// ToJS boxes a Go value into its JavaScript representation.
	ToJS(vm *goja.Runtime, v T) (goja.Value, error)
	// FromJS unboxes a JavaScript value into its Go representation.
	FromJS(vm *goja.Runtime, v goja.Value) (T, error)
}

// Void is the "no value" result type. Bridging a Future[Void] fulfills the
// JS promise with undefined, and neither direction invokes the boxer.
type Void struct{}

// VoidBoxer is the no-op Boxer for Void. It exists so call sites stay
// uniform; the bridges skip it entirely.
type VoidBoxer struct{}

func (VoidBoxer) ToJS(vm *goja.Runtime, _ Void) (goja.Value, error) { return goja.Undefined(), nil }

func (VoidBoxer) FromJS(vm *goja.Runtime, _ goja.Value) (Void, error) { return Void{}, nil }

// isVoid reports whether T is the Void result type.
func isVoid[T any]() bool {
	var zero T
	_, ok := any(zero).(Void)
	return ok
}

// Int64Boxer boxes Go int64 as a JS number.
type Int64Boxer struct{}

func (Int64Boxer) ToJS(vm *goja.Runtime, v int64) (goja.Value, error) {
	return vm.ToValue(v), nil
}

func (Int64Boxer) FromJS(vm *goja.Runtime, v goja.Value) (int64, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("cannot unbox %v as int64", v)
	}
	return v.ToInteger(), nil
}

// Float64Boxer boxes Go float64 as a JS number.
type Float64Boxer struct{}

func (Float64Boxer) ToJS(vm *goja.Runtime, v float64) (goja.Value, error) {
	return vm.ToValue(v), nil
}

func (Float64Boxer) FromJS(vm *goja.Runtime, v goja.Value) (float64, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("cannot unbox %v as float64", v)
	}
	return v.ToFloat(), nil
}

// StringBoxer boxes Go string as a JS string.
type StringBoxer struct{}

func (StringBoxer) ToJS(vm *goja.Runtime, v string) (goja.Value, error) {
	return vm.ToValue(v), nil
}

func (StringBoxer) FromJS(vm *goja.Runtime, v goja.Value) (string, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", fmt.Errorf("cannot unbox %v as string", v)
	}
	return v.String(), nil
}

// BoolBoxer boxes Go bool as a JS boolean.
type BoolBoxer struct{}

func (BoolBoxer) ToJS(vm *goja.Runtime, v bool) (goja.Value, error) {
	return vm.ToValue(v), nil
}

func (BoolBoxer) FromJS(vm *goja.Runtime, v goja.Value) (bool, error) {
	if v == nil {
		return false, errors.New("cannot unbox nil as bool")
	}
	return v.ToBoolean(), nil
}

// AnyBoxer boxes arbitrary Go values via goja's default conversion rules
// (maps, slices, and primitives round-trip; behavior for other types follows
// goja.Runtime.ToValue / Value.Export).
type AnyBoxer struct{}

func (AnyBoxer) ToJS(vm *goja.Runtime, v any) (goja.Value, error) {
	return vm.ToValue(v), nil
}

func (AnyBoxer) FromJS(vm *goja.Runtime, v goja.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}
