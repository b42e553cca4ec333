package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/reconcile/internal/conflict"
)

func runPreview(ctx context.Context, a *app, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return fmt.Errorf("preview: at least one task ID is required")
	}

	preview, err := a.orch.PreviewMerge(ctx, taskIDs)
	if err != nil {
		return err
	}

	if len(preview.FilesToMerge) == 0 {
		fmt.Println("No tracked modifications for these tasks.")
		return nil
	}

	fmt.Printf("Merge plan for %s:\n\n", strings.Join(taskIDs, ", "))
	needsResolution := 0
	for _, plan := range preview.FilesToMerge {
		fmt.Printf("  %-20s %s (%s)\n", plan.Verdict, plan.FilePath, strings.Join(plan.TaskIDs, ", "))
		if plan.Verdict == conflict.VerdictRequiresResolution {
			needsResolution++
		}
	}

	fmt.Printf("\n%d file(s) to merge, %d need resolution\n", len(preview.FilesToMerge), needsResolution)
	if s := preview.Summary; s != nil {
		fmt.Printf("%d file(s) tracked across %d task(s)\n", s.TotalFilesTracked, s.TotalTasks)
	}
	return nil
}
