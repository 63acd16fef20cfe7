// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits the mix of file I/O and CGO parsing done per file.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed. It may be called from
// several goroutines at once.
type ProgressFunc func()

// Outcome is the result of processing one file.
type Outcome[T any] struct {
	Path  string
	Value T
	Err   error
}

// Workers resolves a requested worker count; n <= 0 selects 2x NumCPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// MapOrdered processes files in parallel and returns one Outcome per file in
// input order, however the work was scheduled. fn receives the file's index
// and path. A per-file error is recorded in its Outcome and does not stop the
// run; cancelling ctx does, and the context error is returned.
func MapOrdered[T any](ctx context.Context, files []string, maxWorkers int, fn func(int, string) (T, error), onProgress ProgressFunc) ([]Outcome[T], error) {
	if len(files) == 0 {
		return nil, ctx.Err()
	}

	outcomes := make([]Outcome[T], len(files))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(Workers(maxWorkers))
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := fn(i, path)
			outcomes[i] = Outcome[T]{Path: path, Value: value, Err: err}
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
