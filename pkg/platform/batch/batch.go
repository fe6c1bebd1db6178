// Package batch runs per-item work with failure isolation: one item's error
// or panic is recorded and the loop moves on.
package batch

import (
	"context"
	"errors"
	"fmt"
)

// ErrSkipped marks an item that needed no work. It is counted, not reported.
var ErrSkipped = errors.New("skipped")

// Result summarizes one batch run.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func (r Result) String() string {
	return fmt.Sprintf("total=%d succeeded=%d failed=%d skipped=%d", r.Total, r.Succeeded, r.Failed, r.Skipped)
}

// Add merges o into r.
func (r *Result) Add(o Result) {
	r.Total += o.Total
	r.Succeeded += o.Succeeded
	r.Failed += o.Failed
	r.Skipped += o.Skipped
}

// Each calls fn for every item in order. Failures and panics are passed to
// onErr and never stop the loop; a cancelled ctx does, and its error is
// returned with the partial result.
func Each[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error, onErr func(item T, err error)) (Result, error) {
	res := Result{Total: len(items)}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := safeCall(ctx, item, fn)
		switch {
		case err == nil:
			res.Succeeded++
		case errors.Is(err, ErrSkipped):
			res.Skipped++
		default:
			res.Failed++
			if onErr != nil {
				onErr(item, err)
			}
		}
	}
	return res, nil
}

func safeCall[T any](ctx context.Context, item T, fn func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}
