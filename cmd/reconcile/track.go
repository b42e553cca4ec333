package main

import (
	"context"
	"fmt"
	"os"
)

func runTrack(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("track: usage: reconcile track <task-id> <file>...")
	}
	taskID, files := args[0], args[1:]

	tracked, err := a.tracker.CaptureBaselines(ctx, taskID, files, "")
	if err != nil {
		return err
	}
	fmt.Printf("tracking %d file(s) for %s\n", len(tracked), taskID)
	return nil
}

func runRecord(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("record: usage: reconcile record <task-id> <file>...")
	}
	taskID, files := args[0], args[1:]

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("record %s: %w", path, err)
		}
		snap, err := a.tracker.RecordModification(ctx, taskID, path, "", string(content))
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d change(s)\n", path, len(snap.Changes))
	}
	return nil
}
