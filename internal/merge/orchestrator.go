package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dusk-indust/reconcile/internal/conflict"
	"github.com/dusk-indust/reconcile/internal/evolution"
)

// FileVersions holds the three texts the version-control collaborator
// supplies for one file and task.
type FileVersions struct {
	Main    string
	Task    string
	Base    string
	HasBase bool
}

// VCS is the version-control collaborator. It derives file versions from a
// task's branch and the target branch.
type VCS interface {
	// ChangedFiles lists the files the task's branch changed relative to the
	// target branch.
	ChangedFiles(ctx context.Context, taskBranch string) ([]string, error)

	// FileVersions returns the main, task, and merge-base versions of one
	// file.
	FileVersions(ctx context.Context, taskBranch, path string) (*FileVersions, error)
}

// TaskMergeRequest names one task participating in a multi-task merge and
// where its file content lives. Files takes precedence over Branch.
type TaskMergeRequest struct {
	TaskID string `json:"taskId"`
	Branch string `json:"branch,omitempty"`
	// Files maps path to the task's version of that file.
	Files map[string]string `json:"files,omitempty"`
}

// Config holds orchestrator settings.
type Config struct {
	Workers   int
	Timeout   time.Duration
	DryRun    bool
	WriteRoot string // working tree that merged files are written into
	EmitDiffs bool   // attach unified diffs to successful results
}

// Orchestrator composes the tracker, conflict detector, auto-merger, and
// parallel runner into task-level merge operations.
type Orchestrator struct {
	cfg        Config
	tracker    *evolution.Tracker
	merger     *AutoMerger
	vcs        VCS // may be nil when requests carry file content directly
	onProgress func(ProgressEvent)
}

// NewOrchestrator wires an orchestrator. vcs and onProgress may be nil.
func NewOrchestrator(cfg Config, tracker *evolution.Tracker, merger *AutoMerger, vcs VCS, onProgress func(ProgressEvent)) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		tracker:    tracker,
		merger:     merger,
		vcs:        vcs,
		onProgress: onProgress,
	}
}

// MergeTask merges a single task's branch against the target branch: every
// changed file runs through the auto-merge ladder. Merged files are written
// back unless dry-run is set.
func (o *Orchestrator) MergeTask(ctx context.Context, taskID, taskBranch string) (*Report, error) {
	report := newReport([]string{taskID})
	if o.vcs == nil {
		return report, fmt.Errorf("merge task %s: no version-control collaborator configured", taskID)
	}
	start := time.Now()
	callsBefore := o.merger.ResolverCalls()

	paths, err := o.vcs.ChangedFiles(ctx, taskBranch)
	if err != nil {
		return report, fmt.Errorf("merge task %s: %w", taskID, err)
	}
	if len(paths) == 0 {
		report.Success = true
		return report, nil
	}

	var inputs []Input
	var preFailed []Result
	for _, path := range paths {
		versions, err := o.vcs.FileVersions(ctx, taskBranch, path)
		if err != nil {
			preFailed = append(preFailed, Result{FilePath: path, Error: err.Error()})
			continue
		}
		in := Input{
			FilePath:    path,
			MainContent: versions.Main,
			Tasks:       []TaskVersion{{TaskID: taskID, Content: versions.Task}},
			BaseContent: versions.Base,
			HasBase:     versions.HasBase,
		}
		if ev, err := o.tracker.Evolution(ctx, path); err == nil && ev != nil {
			if snap := ev.Snapshot(taskID); snap != nil {
				in.Changes = snap.Changes
			}
		}
		inputs = append(inputs, in)
	}

	results := o.run(ctx, inputs)
	o.attachDiffs(inputs, results)
	results = append(results, preFailed...)

	report.finish(results, o.merger.ResolverCalls()-callsBefore, time.Since(start).Seconds())
	if _, err := o.WriteMergedFiles(report); err != nil {
		return report, err
	}
	return report, nil
}

// MergeTasks merges every file touched by the given tasks. Files whose
// concurrent edits are compatible merge automatically; incompatible files
// run through resolver escalation and fail when no resolver is available.
func (o *Orchestrator) MergeTasks(ctx context.Context, requests []TaskMergeRequest) (*Report, error) {
	taskIDs := make([]string, 0, len(requests))
	byTask := make(map[string]TaskMergeRequest, len(requests))
	for _, req := range requests {
		taskIDs = append(taskIDs, req.TaskID)
		byTask[req.TaskID] = req
	}
	report := newReport(taskIDs)
	if len(requests) == 0 {
		report.Success = true
		return report, nil
	}
	start := time.Now()
	callsBefore := o.merger.ResolverCalls()

	modified, err := o.tracker.FilesModifiedByTasks(ctx, taskIDs)
	if err != nil {
		return report, fmt.Errorf("merge tasks: %w", err)
	}
	paths := make([]string, 0, len(modified))
	for path := range modified {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var inputs []Input
	var preFailed []Result
	for _, path := range paths {
		in, err := o.buildFileInput(ctx, path, modified[path], byTask)
		if err != nil {
			preFailed = append(preFailed, Result{FilePath: path, Error: err.Error()})
			continue
		}
		inputs = append(inputs, *in)
	}

	results := o.run(ctx, inputs)
	o.attachDiffs(inputs, results)
	results = append(results, preFailed...)

	report.finish(results, o.merger.ResolverCalls()-callsBefore, time.Since(start).Seconds())
	if _, err := o.WriteMergedFiles(report); err != nil {
		return report, err
	}
	return report, nil
}

// buildFileInput assembles the per-file merge job for a multi-task merge:
// task versions fold into the baseline in snapshot insertion order.
func (o *Orchestrator) buildFileInput(ctx context.Context, path string, tasks map[string]bool, byTask map[string]TaskMergeRequest) (*Input, error) {
	ev, err := o.tracker.Evolution(ctx, path)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, evolution.ErrNoBaseline
	}

	participating := make([]string, 0, len(tasks))
	for id := range tasks {
		participating = append(participating, id)
	}
	verdict, err := o.tracker.FileVerdict(ctx, path, participating)
	if err != nil {
		return nil, err
	}

	in := &Input{
		FilePath:      path,
		MainContent:   ev.BaselineContent,
		BaseContent:   ev.BaselineContent,
		HasBase:       true,
		AutoMergeable: verdict != conflict.VerdictRequiresResolution,
	}
	for _, snap := range ev.Snapshots() {
		if !tasks[snap.TaskID] || !snap.Modified() {
			continue
		}
		content, err := o.taskContent(ctx, byTask[snap.TaskID], path)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", snap.TaskID, err)
		}
		in.Tasks = append(in.Tasks, TaskVersion{TaskID: snap.TaskID, Content: content})
		in.Changes = append(in.Changes, snap.Changes...)
	}
	return in, nil
}

// taskContent locates one task's version of a file: inline content first,
// then the version-control collaborator.
func (o *Orchestrator) taskContent(ctx context.Context, req TaskMergeRequest, path string) (string, error) {
	if content, ok := req.Files[path]; ok {
		return content, nil
	}
	if o.vcs != nil && req.Branch != "" {
		versions, err := o.vcs.FileVersions(ctx, req.Branch, path)
		if err != nil {
			return "", err
		}
		return versions.Task, nil
	}
	return "", fmt.Errorf("no content source for %s", path)
}

// FilePlan describes one file in a merge preview.
type FilePlan struct {
	FilePath string           `json:"filePath"`
	TaskIDs  []string         `json:"taskIds"`
	Verdict  conflict.Verdict `json:"verdict"`
}

// Preview is the read-only merge plan for a set of tasks.
type Preview struct {
	Tasks        []string           `json:"tasks"`
	FilesToMerge []FilePlan         `json:"filesToMerge"`
	Summary      *evolution.Summary `json:"summary"`
}

// PreviewMerge reports what a multi-task merge would do, without writing
// anything.
func (o *Orchestrator) PreviewMerge(ctx context.Context, taskIDs []string) (*Preview, error) {
	modified, err := o.tracker.FilesModifiedByTasks(ctx, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("preview merge: %w", err)
	}
	summary, err := o.tracker.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("preview merge: %w", err)
	}

	preview := &Preview{Tasks: taskIDs, Summary: summary}
	paths := make([]string, 0, len(modified))
	for path := range modified {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		ids := make([]string, 0, len(modified[path]))
		for id := range modified[path] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		verdict, err := o.tracker.FileVerdict(ctx, path, ids)
		if err != nil {
			return nil, fmt.Errorf("preview merge %s: %w", path, err)
		}
		preview.FilesToMerge = append(preview.FilesToMerge, FilePlan{
			FilePath: path,
			TaskIDs:  ids,
			Verdict:  verdict,
		})
	}
	return preview, nil
}

// WriteMergedFiles writes every successful result's merged content into the
// configured working tree and returns the written paths. No-op under
// dry-run.
func (o *Orchestrator) WriteMergedFiles(report *Report) ([]string, error) {
	if o.cfg.DryRun {
		return nil, nil
	}
	var written []string
	for _, res := range report.Results {
		if !res.Success {
			continue
		}
		target := res.FilePath
		if o.cfg.WriteRoot != "" {
			target = filepath.Join(o.cfg.WriteRoot, res.FilePath)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("write merged %s: %w", res.FilePath, err)
		}
		if err := os.WriteFile(target, []byte(res.MergedContent), 0o644); err != nil {
			return written, fmt.Errorf("write merged %s: %w", res.FilePath, err)
		}
		written = append(written, target)
	}
	return written, nil
}

// run executes the merge batch with the configured bounds.
func (o *Orchestrator) run(ctx context.Context, inputs []Input) []Result {
	runner := NewRunner(o.merger, o.cfg.Workers, o.cfg.Timeout, o.onProgress)
	return runner.Run(ctx, inputs)
}

// attachDiffs adds a unified diff from each file's pre-merge main content to
// its merged content, for preview and verbose display.
func (o *Orchestrator) attachDiffs(inputs []Input, results []Result) {
	if !o.cfg.EmitDiffs {
		return
	}
	mains := make(map[string]string, len(inputs))
	for _, in := range inputs {
		mains[in.FilePath] = in.MainContent
	}
	for i, res := range results {
		if !res.Success {
			continue
		}
		// The diff is best-effort display data; an error leaves it empty.
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(mains[res.FilePath]),
			B:        difflib.SplitLines(res.MergedContent),
			FromFile: "a/" + res.FilePath,
			ToFile:   "b/" + res.FilePath,
			Context:  3,
		})
		if err == nil {
			results[i].Diff = diff
		}
	}
}
