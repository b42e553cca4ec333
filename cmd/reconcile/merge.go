package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dusk-indust/reconcile/internal/merge"
)

func runMerge(ctx context.Context, a *app, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return fmt.Errorf("merge: at least one task ID is required")
	}

	var report *merge.Report
	var err error
	if len(taskIDs) == 1 && a.flags.Branch != "" {
		report, err = a.orch.MergeTask(ctx, taskIDs[0], a.flags.Branch)
	} else {
		requests := make([]merge.TaskMergeRequest, len(taskIDs))
		for i, id := range taskIDs {
			requests[i] = merge.TaskMergeRequest{
				TaskID: id,
				Branch: a.flags.BranchPrefix + id,
			}
		}
		report, err = a.orch.MergeTasks(ctx, requests)
	}
	if err != nil {
		return err
	}

	printReport(a, report)

	if path, err := report.Save(a.reportDir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: save report: %v\n", err)
	} else if a.flags.Verbose {
		fmt.Printf("report written to %s\n", path)
	}

	if !report.Success {
		return fmt.Errorf("%d file(s) failed to merge", len(report.FailedFiles()))
	}
	return nil
}

func printReport(a *app, report *merge.Report) {
	for _, res := range report.Results {
		switch {
		case res.Success && res.WasAutoMerged:
			fmt.Printf("  merged   %s\n", res.FilePath)
		case res.Success:
			fmt.Printf("  resolved %s\n", res.FilePath)
		default:
			fmt.Printf("  failed   %s: %s\n", res.FilePath, res.Error)
		}
		if a.flags.Verbose && res.Diff != "" {
			fmt.Println(res.Diff)
		}
	}

	stats := report.Stats
	fmt.Printf("\n%d file(s) processed, %d auto-merged, %d resolver call(s), %.1fs\n",
		stats.FilesProcessed, stats.FilesAutoMerged, stats.AICallsMade, stats.DurationSeconds)
	if a.flags.DryRun {
		fmt.Println("dry run: no files written")
	}
}
