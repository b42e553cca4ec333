//go:build cgo

package evolution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/reconcile/internal/semantic"
)

// newTestKuzuStore creates a fresh in-memory KuzuStore with an initialized
// schema and registers a cleanup to close it.
func newTestKuzuStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestKuzuStore_EvolutionRoundTrip(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	ev := NewFileEvolution("src/app.py", "abc123", "def f(): pass", "hash-base")
	require.NoError(t, s.PutEvolution(ctx, ev))

	got, err := s.GetEvolution(ctx, "src/app.py")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "src/app.py", got.FilePath)
	assert.Equal(t, "abc123", got.BaselineCommit)
	assert.Equal(t, "def f(): pass", got.BaselineContent)
	assert.Equal(t, "hash-base", got.BaselineHash)

	missing, err := s.GetEvolution(ctx, "other.py")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestKuzuStore_SnapshotOrderAndUpsert(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	ev := NewFileEvolution("src/app.py", "abc123", "", "hash-base")
	require.NoError(t, s.PutEvolution(ctx, ev))

	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)

	first := &TaskSnapshot{
		TaskID:            "task-1",
		TaskIntent:        "add helper",
		StartedAt:         started,
		CompletedAt:       &completed,
		ContentHashBefore: "hash-base",
		ContentHashAfter:  "hash-1",
		Changes: []semantic.Change{{
			Type:     semantic.ChangeAddFunction,
			Target:   "helper",
			Location: semantic.FunctionLocation("helper"),
		}},
	}
	second := &TaskSnapshot{
		TaskID:            "task-2",
		StartedAt:         started,
		ContentHashBefore: "hash-base",
		ContentHashAfter:  "hash-base",
	}
	require.NoError(t, s.PutSnapshot(ctx, "src/app.py", first))
	require.NoError(t, s.PutSnapshot(ctx, "src/app.py", second))

	got, err := s.GetEvolution(ctx, "src/app.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1", "task-2"}, got.TaskIDs())
	assert.Equal(t, first, got.Snapshot("task-1"))
	assert.Equal(t, second, got.Snapshot("task-2"))

	// Replacing task-1's snapshot keeps its insertion position.
	replacement := &TaskSnapshot{
		TaskID:            "task-1",
		StartedAt:         started,
		ContentHashBefore: "hash-base",
		ContentHashAfter:  "hash-9",
	}
	require.NoError(t, s.PutSnapshot(ctx, "src/app.py", replacement))

	got, err = s.GetEvolution(ctx, "src/app.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1", "task-2"}, got.TaskIDs())
	assert.Equal(t, "hash-9", got.Snapshot("task-1").ContentHashAfter)
}

func TestKuzuStore_RemoveTaskAndEvolution(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	for _, path := range []string{"a.go", "b.go"} {
		require.NoError(t, s.PutEvolution(ctx, NewFileEvolution(path, "c1", "", "h")))
		require.NoError(t, s.PutSnapshot(ctx, path, &TaskSnapshot{
			TaskID:    "task-1",
			StartedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		}))
	}

	require.NoError(t, s.RemoveTask(ctx, "task-1"))

	got, err := s.GetEvolution(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, 0, got.SnapshotCount())

	require.NoError(t, s.RemoveEvolution(ctx, "a.go"))
	got, err = s.GetEvolution(ctx, "a.go")
	require.NoError(t, err)
	assert.Nil(t, got)

	evs, err := s.ListEvolutions(ctx)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "b.go", evs[0].FilePath)
}
