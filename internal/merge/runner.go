package merge

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the per-batch merge concurrency when none is configured.
const DefaultWorkers = 8

// Runner schedules one merge attempt per file with bounded parallelism and a
// wall-clock budget for the whole batch. One failing file never fails the
// batch: every input yields exactly one Result.
type Runner struct {
	merger     *AutoMerger
	workers    int64
	timeout    time.Duration // zero means no batch timeout
	onProgress func(ProgressEvent)
}

// NewRunner creates a Runner over the given merger. workers <= 0 selects
// DefaultWorkers. onProgress is called synchronously from worker goroutines;
// it may be nil.
func NewRunner(merger *AutoMerger, workers int, timeout time.Duration, onProgress func(ProgressEvent)) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		merger:     merger,
		workers:    int64(workers),
		timeout:    timeout,
		onProgress: onProgress,
	}
}

// Run merges every input concurrently and returns one Result per input, in
// input order. On batch timeout, attempts that completed keep their results
// and every attempt that did not complete is reported as a timeout failure
// for its file.
func (r *Runner) Run(ctx context.Context, inputs []Input) []Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	results := make([]Result, len(inputs))
	sem := semaphore.NewWeighted(r.workers)
	var g errgroup.Group

	for i, in := range inputs {
		r.emit(ProgressEvent{FilePath: in.FilePath, Status: ProgressPending})

		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch deadline hit before this file even started.
			results[i] = timeoutResult(ctx, in)
			r.emit(ProgressEvent{FilePath: in.FilePath, Status: ProgressFailed, Message: results[i].Error})
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			r.emit(ProgressEvent{FilePath: in.FilePath, Status: ProgressWorking})

			results[i] = r.mergeOne(ctx, in)

			if results[i].Success {
				r.emit(ProgressEvent{FilePath: in.FilePath, Status: ProgressComplete})
			} else {
				r.emit(ProgressEvent{FilePath: in.FilePath, Status: ProgressFailed, Message: results[i].Error})
			}
			return nil
		})
	}

	g.Wait()
	return results
}

// mergeOne runs a single attempt, abandoning it if the batch deadline
// passes. The attempt goroutine reads only the blobs it was given and writes
// only its own result slot, so abandoning it is safe.
func (r *Runner) mergeOne(ctx context.Context, in Input) Result {
	done := make(chan Result, 1)
	go func() {
		done <- r.merger.Merge(ctx, in)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return timeoutResult(ctx, in)
	}
}

func timeoutResult(ctx context.Context, in Input) Result {
	return Result{
		FilePath: in.FilePath,
		Error:    "merge timed out: " + ctx.Err().Error(),
	}
}

func (r *Runner) emit(ev ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(ev)
	}
}
