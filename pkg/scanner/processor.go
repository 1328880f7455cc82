package scanner

import (
	"context"
	"fmt"
	"sync"
)

// TaskFunc is the unit of work dispatched over a batch of directories.
type TaskFunc[R any] func(ctx context.Context, dir *WorkDir) (R, error)

// TaskResult pairs a directory with the value its task produced.
type TaskResult[R any] struct {
	Dir   *WorkDir
	Value R
}

// Batch tracks a set of tasks submitted by SubmitAll. Results are stored in
// submission-indexed slots, so Join returns them in submission order no
// matter which worker finished first.
type Batch[R any] struct {
	dirs    []*WorkDir
	results []R
	errs    []error
	wg      sync.WaitGroup
}

// SubmitAll schedules fn(ctx, dir) for every directory on a pool of
// max(1, maxWorkers) goroutines fed by an index channel. It returns
// immediately; call Join to wait for completion. Worker panics are recovered
// and converted into task errors, so a misbehaving callback can never take
// down the process.
func SubmitAll[R any](ctx context.Context, dirs []*WorkDir, fn TaskFunc[R], maxWorkers int) *Batch[R] {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(dirs) && len(dirs) > 0 {
		maxWorkers = len(dirs)
	}

	b := &Batch[R]{
		dirs:    dirs,
		results: make([]R, len(dirs)),
		errs:    make([]error, len(dirs)),
	}

	indexChan := make(chan int, len(dirs))
	for i := range dirs {
		indexChan <- i
	}
	close(indexChan)

	b.wg.Add(maxWorkers)
	for w := 0; w < maxWorkers; w++ {
		go func() {
			defer b.wg.Done()
			for i := range indexChan {
				b.runTask(ctx, i, fn)
			}
		}()
	}
	return b
}

// runTask executes a single task, recovering panics into its error slot.
func (b *Batch[R]) runTask(ctx context.Context, i int, fn TaskFunc[R]) {
	defer func() {
		if r := recover(); r != nil {
			b.errs[i] = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		b.errs[i] = err
		return
	}
	b.results[i], b.errs[i] = fn(ctx, b.dirs[i])
}

// Join waits for every task in the batch to finish, then returns all results
// in submission order. If any task failed, Join returns the first failure in
// submission order, wrapped in a *TaskError naming the originating
// directory; siblings still run to completion and no partial result slice is
// returned. Failures are attributed, never silently dropped.
func (b *Batch[R]) Join() ([]TaskResult[R], error) {
	b.wg.Wait()
	for i, err := range b.errs {
		if err != nil {
			return nil, &TaskError{Dir: b.dirs[i].Path(), Index: i, Err: err}
		}
	}
	out := make([]TaskResult[R], len(b.dirs))
	for i, dir := range b.dirs {
		out[i] = TaskResult[R]{Dir: dir, Value: b.results[i]}
	}
	return out, nil
}
