package forensics

import (
	"context"
	"fmt"
	"time"
)

// Probe is the result of one guarded capture step.
type Probe[T any] struct {
	Value T
	Err   error
}

// OK reports whether the step produced a value.
func (p Probe[T]) OK() bool { return p.Err == nil }

// run executes fn under its own timeout. A panic inside fn becomes the
// probe's error.
func run[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (p Probe[T]) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			p = Probe[T]{Value: zero, Err: fmt.Errorf("probe panicked: %v", r)}
		}
	}()
	v, err := fn(ctx)
	return Probe[T]{Value: v, Err: err}
}
