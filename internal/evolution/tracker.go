package evolution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dusk-indust/reconcile/internal/conflict"
	"github.com/dusk-indust/reconcile/internal/contenthash"
	"github.com/dusk-indust/reconcile/internal/semantic"
)

// ErrNoBaseline is returned when a modification or merge is requested for a
// file whose baseline was never captured.
var ErrNoBaseline = errors.New("no baseline captured for file")

// Tracker owns the per-file evolution history: baseline capture, per-task
// snapshots, and queries over that history. Mutating operations must be
// serialized per file path by the caller; reads may run concurrently with
// each other.
type Tracker struct {
	store    Store
	analyzer semantic.Analyzer
	detector *conflict.Detector

	// readFile reads working-tree content at baseline capture time.
	// Injected for tests; defaults to os.ReadFile.
	readFile func(path string) ([]byte, error)
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithFileReader overrides how baseline content is read from the working
// tree.
func WithFileReader(read func(path string) ([]byte, error)) TrackerOption {
	return func(t *Tracker) { t.readFile = read }
}

// NewTracker creates a Tracker over the given store and analyzer.
func NewTracker(store Store, analyzer semantic.Analyzer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:    store,
		analyzer: analyzer,
		detector: conflict.NewDetector(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CaptureBaselines creates or reuses a FileEvolution for each path, records
// the content on disk at call time as the baseline if none exists yet, and
// inserts an empty snapshot for taskID. A file missing from disk gets an
// empty baseline.
func (t *Tracker) CaptureBaselines(ctx context.Context, taskID string, paths []string, intent string) (map[string]*FileEvolution, error) {
	out := make(map[string]*FileEvolution, len(paths))
	now := time.Now().UTC()

	for _, path := range paths {
		ev, err := t.store.GetEvolution(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("capture baseline %s: %w", path, err)
		}
		if ev == nil {
			content := ""
			if data, err := t.readFile(path); err == nil {
				content = string(data)
			}
			ev = NewFileEvolution(path, "worktree", content, contenthash.Hash(content))
			if err := t.store.PutEvolution(ctx, ev); err != nil {
				return nil, fmt.Errorf("capture baseline %s: %w", path, err)
			}
		}

		if ev.Snapshot(taskID) == nil {
			snap := &TaskSnapshot{
				TaskID:            taskID,
				TaskIntent:        intent,
				StartedAt:         now,
				ContentHashBefore: ev.BaselineHash,
				ContentHashAfter:  ev.BaselineHash,
			}
			if err := t.store.PutSnapshot(ctx, path, snap); err != nil {
				return nil, fmt.Errorf("capture baseline %s: %w", path, err)
			}
		}
		out[path] = ev
	}
	return out, nil
}

// RecordModification analyzes a task's edit and updates its snapshot.
// Repeated calls for the same task and file re-analyze against the original
// baseline content, not the previous call's old text, so the snapshot always
// reflects the full cumulative change since baseline.
func (t *Tracker) RecordModification(ctx context.Context, taskID, path, oldContent, newContent string) (*TaskSnapshot, error) {
	ev, err := t.store.GetEvolution(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("record modification %s: %w", path, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("record modification %s: %w", path, ErrNoBaseline)
	}

	analysis, err := t.analyzer.Analyze(ctx, path, ev.BaselineContent, newContent)
	if err != nil {
		return nil, fmt.Errorf("record modification %s: %w", path, err)
	}

	now := time.Now().UTC()
	snap := ev.Snapshot(taskID)
	if snap == nil {
		// The task captured its own baseline from an earlier point; chain
		// from the content it reports as its starting text.
		snap = &TaskSnapshot{
			TaskID:            taskID,
			StartedAt:         now,
			ContentHashBefore: contenthash.Hash(oldContent),
		}
	}
	snap.ContentHashAfter = contenthash.Hash(newContent)
	snap.CompletedAt = &now
	snap.Changes = analysis.Changes

	if err := t.store.PutSnapshot(ctx, path, snap); err != nil {
		return nil, fmt.Errorf("record modification %s: %w", path, err)
	}
	return snap, nil
}

// TaskModifications returns the snapshots a task recorded, keyed by file
// path. Baseline-only snapshots (no modification yet) are excluded.
func (t *Tracker) TaskModifications(ctx context.Context, taskID string) (map[string]*TaskSnapshot, error) {
	evs, err := t.store.ListEvolutions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*TaskSnapshot)
	for _, ev := range evs {
		if snap := ev.Snapshot(taskID); snap != nil && snap.Modified() {
			out[ev.FilePath] = snap
		}
	}
	return out, nil
}

// FilesModifiedByTasks returns, for each file modified by at least one of
// the given tasks, the set of those tasks that modified it.
func (t *Tracker) FilesModifiedByTasks(ctx context.Context, taskIDs []string) (map[string]map[string]bool, error) {
	want := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}

	evs, err := t.store.ListEvolutions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]bool)
	for _, ev := range evs {
		for _, snap := range ev.Snapshots() {
			if !want[snap.TaskID] || !snap.Modified() {
				continue
			}
			if out[ev.FilePath] == nil {
				out[ev.FilePath] = make(map[string]bool)
			}
			out[ev.FilePath][snap.TaskID] = true
		}
	}
	return out, nil
}

// ConflictingFiles returns the files touched by more than one of the given
// tasks whose snapshots genuinely conflict, evaluated pairwise by the
// conflict detector. Files whose concurrent edits are auto-mergeable are not
// included.
func (t *Tracker) ConflictingFiles(ctx context.Context, taskIDs []string) (map[string]bool, error) {
	modified, err := t.FilesModifiedByTasks(ctx, taskIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool)
	for path, tasks := range modified {
		if len(tasks) < 2 {
			continue
		}
		ev, err := t.store.GetEvolution(ctx, path)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		var snaps []*TaskSnapshot
		for _, snap := range ev.Snapshots() {
			if tasks[snap.TaskID] {
				snaps = append(snaps, snap)
			}
		}
		if t.verdictFor(snaps) == conflict.VerdictRequiresResolution {
			out[path] = true
		}
	}
	return out, nil
}

// FileVerdict returns the pairwise-reduced conflict verdict for a file
// across the given tasks.
func (t *Tracker) FileVerdict(ctx context.Context, path string, taskIDs []string) (conflict.Verdict, error) {
	ev, err := t.store.GetEvolution(ctx, path)
	if err != nil {
		return conflict.VerdictNone, err
	}
	if ev == nil {
		return conflict.VerdictNone, fmt.Errorf("verdict %s: %w", path, ErrNoBaseline)
	}
	want := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}
	var snaps []*TaskSnapshot
	for _, snap := range ev.Snapshots() {
		if want[snap.TaskID] {
			snaps = append(snaps, snap)
		}
	}
	return t.verdictFor(snaps), nil
}

// verdictFor reduces pairwise verdicts across all snapshot pairs.
func (t *Tracker) verdictFor(snaps []*TaskSnapshot) conflict.Verdict {
	verdict := conflict.VerdictNone
	for i := 0; i < len(snaps); i++ {
		for j := i + 1; j < len(snaps); j++ {
			v := t.detector.Decide(snaps[i].Changes, snaps[j].Changes)
			verdict = conflict.Worst(verdict, v)
		}
	}
	return verdict
}

// CleanupTask removes the task's snapshots from every evolution. With
// removeBaselines set, evolutions no longer referenced by any remaining task
// are discarded as well.
func (t *Tracker) CleanupTask(ctx context.Context, taskID string, removeBaselines bool) error {
	if err := t.store.RemoveTask(ctx, taskID); err != nil {
		return fmt.Errorf("cleanup task %s: %w", taskID, err)
	}
	if !removeBaselines {
		return nil
	}
	evs, err := t.store.ListEvolutions(ctx)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if ev.SnapshotCount() == 0 {
			if err := t.store.RemoveEvolution(ctx, ev.FilePath); err != nil {
				return fmt.Errorf("cleanup task %s: %w", taskID, err)
			}
		}
	}
	return nil
}

// Evolution returns the tracked evolution for a path, or nil.
func (t *Tracker) Evolution(ctx context.Context, path string) (*FileEvolution, error) {
	return t.store.GetEvolution(ctx, path)
}

// Summary aggregates counts over the tracked history.
func (t *Tracker) Summary(ctx context.Context) (*Summary, error) {
	evs, err := t.store.ListEvolutions(ctx)
	if err != nil {
		return nil, err
	}
	s := &Summary{TotalFilesTracked: len(evs)}
	tasks := make(map[string]bool)
	for _, ev := range evs {
		n := ev.SnapshotCount()
		s.TotalSnapshots += n
		if n > 1 {
			s.FilesWithMultipleTasks++
		}
		for _, id := range ev.TaskIDs() {
			tasks[id] = true
		}
	}
	s.TotalTasks = len(tasks)
	return s, nil
}
