// Package result provides a success/failure value for operations that report
// failures to their caller instead of aborting it.
package result

// Result holds either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure. A nil err is treated as a failure with no cause, so
// callers cannot accidentally build an Ok through Err.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNilFailure
	}
	return Result[T]{err: err}
}

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) IsErr() bool { return r.err != nil }

// Value returns the wrapped value; zero for a failure.
func (r Result[T]) Value() T { return r.value }

// Error returns the failure cause; nil for a success.
func (r Result[T]) Error() error { return r.err }

// Unwrap returns value and error in the usual Go shape.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }

type nilFailure struct{}

func (nilFailure) Error() string { return "failure without cause" }

var errNilFailure error = nilFailure{}
