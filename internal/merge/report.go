package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Stats aggregates counters for one merge run.
type Stats struct {
	FilesProcessed  int     `json:"filesProcessed"`
	FilesAutoMerged int     `json:"filesAutoMerged"`
	AICallsMade     int     `json:"aiCallsMade"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Report is the outcome of a merge run, suitable for JSON persistence and
// CLI/status-line consumption.
type Report struct {
	ReportID    string   `json:"reportId"`
	TasksMerged []string `json:"tasksMerged"`
	Success     bool     `json:"success"`
	Results     []Result `json:"results,omitempty"`
	Stats       Stats    `json:"stats"`
}

// newReport creates an empty report for the given tasks.
func newReport(taskIDs []string) *Report {
	return &Report{
		ReportID:    uuid.NewString(),
		TasksMerged: taskIDs,
	}
}

// finish fills the report from per-file results.
func (r *Report) finish(results []Result, aiCalls int64, seconds float64) {
	r.Results = results
	r.Success = true
	r.Stats = Stats{
		FilesProcessed:  len(results),
		AICallsMade:     int(aiCalls),
		DurationSeconds: seconds,
	}
	for _, res := range results {
		if res.WasAutoMerged {
			r.Stats.FilesAutoMerged++
		}
		if !res.Success {
			r.Success = false
		}
	}
}

// FailedFiles returns the per-file errors, keyed by path.
func (r *Report) FailedFiles() map[string]string {
	out := make(map[string]string)
	for _, res := range r.Results {
		if !res.Success {
			out[res.FilePath] = res.Error
		}
	}
	return out
}

// Record serializes the report to its structured record form.
func (r *Report) Record() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ReportFromRecord decodes a report record. Unknown fields are ignored for
// forward compatibility.
func ReportFromRecord(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Save writes the report as <reportID>.json under dir, creating it if
// needed, and returns the file path.
func (r *Report) Save(dir string) (string, error) {
	data, err := r.Record()
	if err != nil {
		return "", fmt.Errorf("report: encode: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}
	path := filepath.Join(dir, r.ReportID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("report: write: %w", err)
	}
	return path, nil
}

// LoadReport reads a report file written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read: %w", err)
	}
	return ReportFromRecord(data)
}
