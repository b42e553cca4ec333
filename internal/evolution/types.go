// Package evolution tracks how files evolve from a captured baseline through
// independent task edits. It owns all FileEvolution and TaskSnapshot
// instances; other components receive read-only views.
package evolution

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/reconcile/internal/semantic"
)

// TaskSnapshot records one task's cumulative effect on one file since the
// baseline was captured. CompletedAt is nil while the task is still in
// progress for the file.
type TaskSnapshot struct {
	TaskID            string            `json:"taskId"`
	TaskIntent        string            `json:"taskIntent,omitempty"`
	StartedAt         time.Time         `json:"startedAt"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
	ContentHashBefore string            `json:"contentHashBefore"`
	ContentHashAfter  string            `json:"contentHashAfter"`
	Changes           []semantic.Change `json:"changes,omitempty"`
}

// Modified reports whether the task has recorded a modification for the file
// rather than just capturing the baseline.
func (s *TaskSnapshot) Modified() bool {
	return s.CompletedAt != nil
}

// Record serializes the snapshot to its structured record form.
func (s *TaskSnapshot) Record() ([]byte, error) {
	return json.Marshal(s)
}

// SnapshotFromRecord decodes a snapshot record. Unknown fields are ignored
// for forward compatibility.
func SnapshotFromRecord(data []byte) (*TaskSnapshot, error) {
	var s TaskSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FileEvolution aggregates a file's baseline and every task snapshot that
// touched it. Snapshots keep insertion order and hold at most one entry per
// task.
type FileEvolution struct {
	FilePath        string
	BaselineCommit  string // opaque reference to the pre-task state
	BaselineContent string
	BaselineHash    string

	order     []string
	snapshots map[string]*TaskSnapshot
}

// NewFileEvolution creates an evolution with no snapshots.
func NewFileEvolution(path, baselineCommit, baselineContent, baselineHash string) *FileEvolution {
	return &FileEvolution{
		FilePath:        path,
		BaselineCommit:  baselineCommit,
		BaselineContent: baselineContent,
		BaselineHash:    baselineHash,
		snapshots:       make(map[string]*TaskSnapshot),
	}
}

// Snapshot returns the snapshot for taskID, or nil.
func (e *FileEvolution) Snapshot(taskID string) *TaskSnapshot {
	return e.snapshots[taskID]
}

// Snapshots returns all snapshots in insertion order.
func (e *FileEvolution) Snapshots() []*TaskSnapshot {
	out := make([]*TaskSnapshot, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.snapshots[id])
	}
	return out
}

// TaskIDs returns the ids of all tasks that touched the file, in insertion
// order.
func (e *FileEvolution) TaskIDs() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// SetSnapshot inserts or replaces the snapshot for snap.TaskID, preserving
// the original insertion position on replacement.
func (e *FileEvolution) SetSnapshot(snap *TaskSnapshot) {
	if e.snapshots == nil {
		e.snapshots = make(map[string]*TaskSnapshot)
	}
	if _, exists := e.snapshots[snap.TaskID]; !exists {
		e.order = append(e.order, snap.TaskID)
	}
	e.snapshots[snap.TaskID] = snap
}

// RemoveSnapshot deletes the snapshot for taskID if present.
func (e *FileEvolution) RemoveSnapshot(taskID string) {
	if _, exists := e.snapshots[taskID]; !exists {
		return
	}
	delete(e.snapshots, taskID)
	for i, id := range e.order {
		if id == taskID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// SnapshotCount returns the number of tasks that touched the file.
func (e *FileEvolution) SnapshotCount() int {
	return len(e.order)
}

// Summary aggregates tracker-wide counts for reporting.
type Summary struct {
	TotalFilesTracked      int `json:"totalFilesTracked"`
	TotalTasks             int `json:"totalTasks"`
	TotalSnapshots         int `json:"totalSnapshots"`
	FilesWithMultipleTasks int `json:"filesWithMultipleTasks"`
}
