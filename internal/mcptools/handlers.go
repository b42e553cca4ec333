package mcptools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/reconcile/internal/evolution"
	"github.com/dusk-indust/reconcile/internal/merge"
)

// MergeService holds the evolution tracker and merge orchestrator used by
// MCP tool handlers.
type MergeService struct {
	tracker   *evolution.Tracker
	orch      *merge.Orchestrator
	reportDir string // merge reports are persisted here when non-empty
}

// NewMergeService creates a MergeService with the given tracker and
// orchestrator.
func NewMergeService(tracker *evolution.Tracker, orch *merge.Orchestrator) *MergeService {
	return &MergeService{tracker: tracker, orch: orch}
}

// SetReportDir sets the directory merge reports are written into.
func (s *MergeService) SetReportDir(dir string) {
	s.reportDir = dir
}

// CaptureBaselines records the pre-task state of the files a task is about
// to modify.
func (s *MergeService) CaptureBaselines(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CaptureBaselinesInput,
) (*mcp.CallToolResult, CaptureBaselinesOutput, error) {
	if input.TaskID == "" {
		return nil, CaptureBaselinesOutput{}, fmt.Errorf("taskId is required")
	}
	if len(input.Files) == 0 {
		return nil, CaptureBaselinesOutput{}, fmt.Errorf("files is required")
	}

	tracked, err := s.tracker.CaptureBaselines(ctx, input.TaskID, input.Files, input.Intent)
	if err != nil {
		return nil, CaptureBaselinesOutput{}, err
	}
	return nil, CaptureBaselinesOutput{FilesTracked: len(tracked)}, nil
}

// RecordModification analyzes one task edit against the file's baseline and
// stores the resulting snapshot.
func (s *MergeService) RecordModification(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecordModificationInput,
) (*mcp.CallToolResult, RecordModificationOutput, error) {
	if input.TaskID == "" || input.FilePath == "" {
		return nil, RecordModificationOutput{}, fmt.Errorf("taskId and filePath are required")
	}

	snap, err := s.tracker.RecordModification(ctx, input.TaskID, input.FilePath, input.OldContent, input.NewContent)
	if err != nil {
		return nil, RecordModificationOutput{}, err
	}
	return nil, RecordModificationOutput{
		FilePath:    input.FilePath,
		ChangeCount: len(snap.Changes),
		ContentHash: snap.ContentHashAfter,
	}, nil
}

// PreviewMerge reports what merging the given tasks would do, without
// writing anything.
func (s *MergeService) PreviewMerge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PreviewMergeInput,
) (*mcp.CallToolResult, PreviewMergeOutput, error) {
	if len(input.TaskIDs) == 0 {
		return nil, PreviewMergeOutput{}, fmt.Errorf("taskIds is required")
	}
	preview, err := s.orch.PreviewMerge(ctx, input.TaskIDs)
	if err != nil {
		return nil, PreviewMergeOutput{}, err
	}
	return nil, PreviewMergeOutput{Preview: preview}, nil
}

// MergeTasks merges every file the given tasks touched and persists the
// report when a report directory is configured.
func (s *MergeService) MergeTasks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MergeTasksInput,
) (*mcp.CallToolResult, MergeTasksOutput, error) {
	if len(input.Tasks) == 0 {
		return nil, MergeTasksOutput{}, fmt.Errorf("tasks is required")
	}

	report, err := s.orch.MergeTasks(ctx, input.Tasks)
	if err != nil {
		return nil, MergeTasksOutput{Report: report}, err
	}

	out := MergeTasksOutput{Report: report}
	if s.reportDir != "" {
		path, err := report.Save(s.reportDir)
		if err != nil {
			return nil, out, fmt.Errorf("save report: %w", err)
		}
		out.ReportPath = path
	}
	return nil, out, nil
}

// EvolutionSummary reports aggregate statistics over all tracked files.
func (s *MergeService) EvolutionSummary(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EvolutionSummaryInput,
) (*mcp.CallToolResult, EvolutionSummaryOutput, error) {
	summary, err := s.tracker.Summary(ctx)
	if err != nil {
		return nil, EvolutionSummaryOutput{}, err
	}
	return nil, EvolutionSummaryOutput{Summary: summary}, nil
}

// ConflictingFiles lists the files whose concurrent edits by the given
// tasks need resolution.
func (s *MergeService) ConflictingFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConflictingFilesInput,
) (*mcp.CallToolResult, ConflictingFilesOutput, error) {
	if len(input.TaskIDs) == 0 {
		return nil, ConflictingFilesOutput{}, fmt.Errorf("taskIds is required")
	}

	conflicted, err := s.tracker.ConflictingFiles(ctx, input.TaskIDs)
	if err != nil {
		return nil, ConflictingFilesOutput{}, err
	}
	modified, err := s.tracker.FilesModifiedByTasks(ctx, input.TaskIDs)
	if err != nil {
		return nil, ConflictingFilesOutput{}, err
	}

	paths := make([]string, 0, len(conflicted))
	for path := range conflicted {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := ConflictingFilesOutput{Total: len(paths)}
	for _, path := range paths {
		ids := make([]string, 0, len(modified[path]))
		for id := range modified[path] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		verdict, err := s.tracker.FileVerdict(ctx, path, ids)
		if err != nil {
			return nil, ConflictingFilesOutput{}, err
		}
		out.Conflicts = append(out.Conflicts, FileConflict{
			FilePath: path,
			TaskIDs:  ids,
			Verdict:  verdict,
		})
	}
	return nil, out, nil
}
