// Package reflectx contains reflection helpers for working with function
// values, used to derive tool definitions from plain Go functions.
package reflectx

import (
	"reflect"
	"runtime"
	"strings"
)

// IsFunction reports whether the provided value is a function.
func IsFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

// FunctionName returns a short name for the provided function value. Named
// function types report their type name; ordinary and anonymous functions
// report the last path segment of their runtime symbol, with the method-value
// suffix trimmed.
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()

	if typ.Name() != "" {
		return typ.String()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return typ.String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = strings.TrimSuffix(name[lastDot+1:], "-fm")
	}
	return name
}

// IsRefinedType reports whether the provided reflect.Type matches the type of
// the generic parameter R.
func IsRefinedType[R any](value reflect.Type) bool {
	var toMatch R
	return reflect.TypeOf(toMatch) == value
}
