package utils

import (
	"fmt"
	"reflect"

	"git.handmade.network/hmn/sassproc/src/oops"
)

// Returns the provided value, or a default value if the input was zero.
func OrDefault[T comparable](v T, def T) T {
	var zero T
	if v == zero {
		return def
	} else {
		return v
	}
}

// Returns the provided slice, or a default slice if the input was empty.
func SliceOrDefault[T any](v []T, def []T) []T {
	if len(v) == 0 {
		return def
	}
	return v
}

// Panics if err is non-nil. Typed nil pointers (e.g. a nil *MyError returned as an
// error) count as nil.
func Must[E error](err E) {
	if !isNil(err) {
		panic(err)
	}
}

func Must1[T any, E error](v T, err E) T {
	Must(err)
	return v
}

func isNil(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

/*
Recover a panic and convert it to a returned error. Call it like so:

	func MyFunc() (err error) {
		defer utils.RecoverPanicAsError(&err)
	}

If an error was already present, it stays in the chain behind the panicked value, so
errors.Is still finds it.
*/
func RecoverPanicAsError(err *error) {
	if r := recover(); r != nil {
		var recoveredErr error
		if rerr, ok := r.(error); ok {
			recoveredErr = rerr
		} else {
			recoveredErr = fmt.Errorf("panic with value: %v", r)
		}
		if *err != nil {
			recoveredErr = fmt.Errorf("%w (after error: %w)", recoveredErr, *err)
		}
		*err = oops.New(recoveredErr, "panic recovered as error")
	}
}
