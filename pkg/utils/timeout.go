package utils

import (
	"context"
	"time"
)

// WithTimeout runs fn under a derived deadline and reports ctx expiry
// even if fn ignores its context.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctxT, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctxT)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctxT.Done():
		var zero T
		return zero, ctxT.Err()
	}
}
