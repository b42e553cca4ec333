package main

import (
	"context"
	"fmt"
	"strings"
)

func runStatus(ctx context.Context, a *app) error {
	evs, err := a.store.ListEvolutions(ctx)
	if err != nil {
		return err
	}

	if len(evs) == 0 {
		fmt.Println("No files tracked.")
		fmt.Println("Run 'reconcile track <task-id> <file>...' before a task starts editing.")
		return nil
	}

	for _, ev := range evs {
		var modified []string
		for _, snap := range ev.Snapshots() {
			if snap.Modified() {
				modified = append(modified, snap.TaskID)
			}
		}
		state := "baseline only"
		if len(modified) > 0 {
			state = "modified by " + strings.Join(modified, ", ")
		}
		fmt.Printf("  %-40s %s\n", ev.FilePath, state)

		if len(modified) > 1 {
			verdict, err := a.tracker.FileVerdict(ctx, ev.FilePath, modified)
			if err != nil {
				return err
			}
			fmt.Printf("  %-40s verdict: %s\n", "", verdict)
		}
	}

	summary, err := a.tracker.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d file(s) tracked, %d task(s), %d file(s) touched by multiple tasks\n",
		summary.TotalFilesTracked, summary.TotalTasks, summary.FilesWithMultipleTasks)
	return nil
}
