package mcptools

import (
	"github.com/dusk-indust/reconcile/internal/conflict"
	"github.com/dusk-indust/reconcile/internal/evolution"
	"github.com/dusk-indust/reconcile/internal/merge"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// CaptureBaselinesInput is the input for the capture_baselines MCP tool.
type CaptureBaselinesInput struct {
	TaskID string   `json:"taskId" jsonschema:"the task about to modify files"`
	Files  []string `json:"files" jsonschema:"file paths the task plans to modify"`
	Intent string   `json:"intent,omitempty" jsonschema:"short description of what the task intends to do"`
}

// CaptureBaselinesOutput is the result of the capture_baselines MCP tool.
type CaptureBaselinesOutput struct {
	FilesTracked int `json:"filesTracked"`
}

// RecordModificationInput is the input for the record_modification MCP tool.
type RecordModificationInput struct {
	TaskID     string `json:"taskId" jsonschema:"the task that made the edit"`
	FilePath   string `json:"filePath" jsonschema:"path of the modified file"`
	OldContent string `json:"oldContent" jsonschema:"file content before the edit"`
	NewContent string `json:"newContent" jsonschema:"file content after the edit"`
}

// RecordModificationOutput is the result of the record_modification MCP tool.
type RecordModificationOutput struct {
	FilePath    string `json:"filePath"`
	ChangeCount int    `json:"changeCount"`
	ContentHash string `json:"contentHash"`
}

// PreviewMergeInput is the input for the preview_merge MCP tool.
type PreviewMergeInput struct {
	TaskIDs []string `json:"taskIds" jsonschema:"tasks whose edits would be merged"`
}

// PreviewMergeOutput is the result of the preview_merge MCP tool.
type PreviewMergeOutput struct {
	Preview *merge.Preview `json:"preview"`
}

// MergeTasksInput is the input for the merge_tasks MCP tool.
type MergeTasksInput struct {
	Tasks []merge.TaskMergeRequest `json:"tasks" jsonschema:"tasks to merge, each naming its branch or carrying file content inline"`
}

// MergeTasksOutput is the result of the merge_tasks MCP tool.
type MergeTasksOutput struct {
	Report     *merge.Report `json:"report"`
	ReportPath string        `json:"reportPath,omitempty"`
}

// EvolutionSummaryInput is the input for the evolution_summary MCP tool.
type EvolutionSummaryInput struct{}

// EvolutionSummaryOutput is the result of the evolution_summary MCP tool.
type EvolutionSummaryOutput struct {
	Summary *evolution.Summary `json:"summary"`
}

// ConflictingFilesInput is the input for the conflicting_files MCP tool.
type ConflictingFilesInput struct {
	TaskIDs []string `json:"taskIds" jsonschema:"tasks to check for incompatible concurrent edits"`
}

// FileConflict describes one file needing resolution before merge.
type FileConflict struct {
	FilePath string           `json:"filePath"`
	TaskIDs  []string         `json:"taskIds"`
	Verdict  conflict.Verdict `json:"verdict"`
}

// ConflictingFilesOutput is the result of the conflicting_files MCP tool.
type ConflictingFilesOutput struct {
	Conflicts []FileConflict `json:"conflicts"`
	Total     int            `json:"total"`
}
