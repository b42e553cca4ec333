// Package merge combines independently produced task edits into merged file
// content, escalating to an external resolver only when edits genuinely
// conflict.
package merge

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dusk-indust/reconcile/internal/semantic"
)

// ErrResolutionRequired is returned when a merge needs the external resolver
// and none is available.
var ErrResolutionRequired = errors.New("merge requires external resolution")

// Resolver is the external collaborator that merges genuinely conflicting
// edits. It is treated as opaque, possibly slow, and possibly unavailable.
type Resolver interface {
	// Resolve returns merged file content or an error. Implementations must
	// honor context cancellation.
	Resolve(ctx context.Context, req ResolveRequest) (string, error)
}

// ResolveRequest carries everything the resolver needs for one file.
type ResolveRequest struct {
	FilePath    string            `json:"filePath"`
	MainContent string            `json:"mainContent"`
	TaskContent string            `json:"taskContent"`
	BaseContent string            `json:"baseContent,omitempty"`
	HasBase     bool              `json:"hasBase"`
	Changes     []semantic.Change `json:"changes,omitempty"`
}

// TaskVersion is one task's version of a file.
type TaskVersion struct {
	TaskID  string
	Content string
}

// Input is one per-file merge job: fold one or more task versions into the
// main content.
type Input struct {
	FilePath    string
	MainContent string
	Tasks       []TaskVersion
	BaseContent string
	HasBase     bool

	// AutoMergeable is set when the conflict detector ruled the edits
	// additive and disjoint; it allows the deterministic patch-based text
	// combine before any escalation.
	AutoMergeable bool

	// Changes are the semantic changes involved, forwarded to the resolver
	// on escalation.
	Changes []semantic.Change
}

// Result is the per-file merge outcome.
type Result struct {
	FilePath      string `json:"filePath"`
	MergedContent string `json:"mergedContent,omitempty"`
	Success       bool   `json:"success"`
	WasAutoMerged bool   `json:"wasAutoMerged"`
	Error         string `json:"error,omitempty"`
	Diff          string `json:"diff,omitempty"`
}

// AutoMerger decides per file whether a merge can be produced without the
// resolver, and escalates when it cannot. Safe for concurrent use.
type AutoMerger struct {
	resolver      Resolver // may be nil
	resolverCalls atomic.Int64
}

// NewAutoMerger creates an AutoMerger. A nil resolver disables escalation:
// conflicting files then fail with ErrResolutionRequired.
func NewAutoMerger(resolver Resolver) *AutoMerger {
	return &AutoMerger{resolver: resolver}
}

// ResolverCalls returns how many resolver escalations have been attempted,
// including failed ones.
func (m *AutoMerger) ResolverCalls() int64 {
	return m.resolverCalls.Load()
}

// Merge folds every task version into the main content in order. The first
// failing fold fails the file.
func (m *AutoMerger) Merge(ctx context.Context, in Input) Result {
	merged := in.MainContent
	// A file counts as auto-merged only when every fold stayed on the
	// deterministic ladder.
	autoMerged := len(in.Tasks) > 0

	for _, tv := range in.Tasks {
		step, err := m.mergeOnce(ctx, in, merged, tv.Content)
		if err != nil {
			return Result{FilePath: in.FilePath, Error: err.Error()}
		}
		merged = step.content
		autoMerged = autoMerged && step.auto
	}

	return Result{
		FilePath:      in.FilePath,
		MergedContent: merged,
		Success:       true,
		WasAutoMerged: autoMerged,
	}
}

type mergeStep struct {
	content string
	auto    bool
}

// mergeOnce runs the merge decision ladder for one main/task pair. Textual
// equality checks are strictly cheaper than anything semantic and always
// short-circuit first.
func (m *AutoMerger) mergeOnce(ctx context.Context, in Input, main, task string) (mergeStep, error) {
	// (1) Both sides identical: nothing to merge.
	if main == task {
		return mergeStep{content: main, auto: true}, nil
	}
	// (2) Task side unchanged from base: keep main.
	if in.HasBase && task == in.BaseContent {
		return mergeStep{content: main, auto: true}, nil
	}
	// (3) Main side unchanged from base: take the task's version.
	if in.HasBase && main == in.BaseContent {
		return mergeStep{content: task, auto: true}, nil
	}
	// (4) Both sides diverged. Disjoint additive edits combine by applying
	// the task's patch against main; everything else escalates.
	if in.AutoMergeable && in.HasBase {
		if merged, ok := applyPatch(in.BaseContent, main, task); ok {
			return mergeStep{content: merged, auto: true}, nil
		}
	}
	return m.escalate(ctx, in, main, task)
}

// escalate hands the file to the external resolver.
func (m *AutoMerger) escalate(ctx context.Context, in Input, main, task string) (mergeStep, error) {
	if m.resolver == nil {
		return mergeStep{}, ErrResolutionRequired
	}
	m.resolverCalls.Add(1)
	merged, err := m.resolver.Resolve(ctx, ResolveRequest{
		FilePath:    in.FilePath,
		MainContent: main,
		TaskContent: task,
		BaseContent: in.BaseContent,
		HasBase:     in.HasBase,
		Changes:     in.Changes,
	})
	if err != nil {
		return mergeStep{}, err
	}
	return mergeStep{content: merged}, nil
}

// applyPatch builds the base→proposed patch and applies it to current.
// Returns ok=false if any hunk fails to apply cleanly.
func applyPatch(base, current, proposed string) (string, bool) {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(base, proposed)
	merged, applied := dmp.PatchApply(patches, current)
	for _, ok := range applied {
		if !ok {
			return "", false
		}
	}
	return merged, true
}
