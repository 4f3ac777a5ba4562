package platform

import "fmt"

// Result is the value-or-failure returned across the adapter boundary.
type Result[T any] struct {
	Value T
	Err   error
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) Ok() bool {
	return r.Err == nil
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// Or returns the value, or def on failure.
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// Guard runs fn and turns a panic into a failed Result.
func Guard[T any](fn func() Result[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Fail[T](fmt.Errorf("adapter panic: %v", p))
		}
	}()
	return fn()
}
