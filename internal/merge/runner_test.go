package merge

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeInputs builds n diverged single-task inputs so every merge escalates.
func makeInputs(n int) []Input {
	inputs := make([]Input, n)
	for i := range inputs {
		path := "file-" + strconv.Itoa(i) + ".go"
		inputs[i] = singleTask(path, "main "+path, "task "+path, "base", true)
	}
	return inputs
}

func resultByPath(t *testing.T, results []Result, path string) Result {
	t.Helper()
	for _, res := range results {
		if res.FilePath == path {
			return res
		}
	}
	t.Fatalf("no result for %s", path)
	return Result{}
}

func TestRunner_OneResultPerFile(t *testing.T) {
	m := NewAutoMerger(&funcResolver{resolve: func(_ context.Context, req ResolveRequest) (string, error) {
		return "resolved " + req.FilePath, nil
	}})
	r := NewRunner(m, 4, 0, nil)

	inputs := makeInputs(17)
	results := r.Run(context.Background(), inputs)

	require.Len(t, results, len(inputs))
	for _, in := range inputs {
		res := resultByPath(t, results, in.FilePath)
		assert.True(t, res.Success)
		assert.Equal(t, "resolved "+in.FilePath, res.MergedContent)
	}
}

func TestRunner_OneFailureDoesNotPoisonBatch(t *testing.T) {
	m := NewAutoMerger(&funcResolver{resolve: func(_ context.Context, req ResolveRequest) (string, error) {
		if req.FilePath == "file-3.go" {
			return "", errors.New("resolver exploded")
		}
		return "resolved", nil
	}})
	r := NewRunner(m, 4, 0, nil)

	results := r.Run(context.Background(), makeInputs(8))

	require.Len(t, results, 8)
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
			assert.Equal(t, "file-3.go", res.FilePath)
			assert.Equal(t, "resolver exploded", res.Error)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	const workers = 3
	var mu sync.Mutex
	inFlight, peak := 0, 0

	m := NewAutoMerger(&funcResolver{resolve: func(context.Context, ResolveRequest) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "resolved", nil
	}})
	r := NewRunner(m, workers, 0, nil)

	results := r.Run(context.Background(), makeInputs(12))
	require.Len(t, results, 12)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, workers)
}

func TestRunner_TimeoutMarksUnfinishedFiles(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	// A resolver stub that never returns, ignoring cancellation.
	m := NewAutoMerger(&funcResolver{resolve: func(context.Context, ResolveRequest) (string, error) {
		<-block
		return "", errors.New("unreachable")
	}})
	r := NewRunner(m, 2, 100*time.Millisecond, nil)

	start := time.Now()
	results := r.Run(context.Background(), makeInputs(5))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second, "Run must return shortly after the timeout bound")
	require.Len(t, results, 5)
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "timed out")
	}
}

func TestRunner_CompletedResultsSurviveTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	m := NewAutoMerger(&funcResolver{resolve: func(_ context.Context, req ResolveRequest) (string, error) {
		if req.FilePath == "file-0.go" {
			return "resolved fast", nil
		}
		<-block
		return "", errors.New("unreachable")
	}})
	r := NewRunner(m, 4, 150*time.Millisecond, nil)

	results := r.Run(context.Background(), makeInputs(4))
	require.Len(t, results, 4)

	fast := resultByPath(t, results, "file-0.go")
	assert.True(t, fast.Success)
	assert.Equal(t, "resolved fast", fast.MergedContent)

	for _, res := range results {
		if res.FilePath == "file-0.go" {
			continue
		}
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "timed out")
	}
}

func TestRunner_EmitsProgressEvents(t *testing.T) {
	var mu sync.Mutex
	events := make(map[ProgressStatus]int)

	m := NewAutoMerger(nil)
	r := NewRunner(m, 2, 0, func(ev ProgressEvent) {
		mu.Lock()
		events[ev.Status]++
		mu.Unlock()
	})

	// Identical sides merge instantly; diverged content fails without a
	// resolver.
	inputs := []Input{
		singleTask("ok.go", "same", "same", "", false),
		singleTask("bad.go", "main", "task", "base", true),
	}
	r.Run(context.Background(), inputs)

	assert.Equal(t, 2, events[ProgressPending])
	assert.Equal(t, 2, events[ProgressWorking])
	assert.Equal(t, 1, events[ProgressComplete])
	assert.Equal(t, 1, events[ProgressFailed])
}
