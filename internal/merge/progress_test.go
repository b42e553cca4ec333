package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	pr.Emit(ProgressEvent{FilePath: "a.go", Status: ProgressWorking})

	ev := <-pr.Subscribe()
	assert.Equal(t, "a.go", ev.FilePath)
	assert.Equal(t, ProgressWorking, ev.Status)
}

func TestProgressReporter_DropsWhenFull(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// With no consumer, emits beyond the buffer must not block.
	for i := 0; i < 200; i++ {
		pr.Emit(ProgressEvent{FilePath: "a.go", Status: ProgressPending})
	}

	require.Len(t, pr.Subscribe(), 64)
}

func TestFormatProgress(t *testing.T) {
	assert.Contains(t, FormatProgress(ProgressEvent{FilePath: "a.go", Status: ProgressPending}), "pending")
	assert.Contains(t, FormatProgress(ProgressEvent{FilePath: "a.go", Status: ProgressComplete}), "merged")
	failed := FormatProgress(ProgressEvent{FilePath: "a.go", Status: ProgressFailed, Message: "boom"})
	assert.Contains(t, failed, "failed")
	assert.Contains(t, failed, "boom")
}
