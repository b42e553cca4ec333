// Package resolver provides external conflict resolvers for merges the
// auto-merge ladder cannot settle.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dusk-indust/reconcile/internal/merge"
)

// CommandResolver shells out to a configured command to resolve a conflicted
// file. The resolve request is written to the command's stdin as JSON and
// the merged file content is read from stdout.
type CommandResolver struct {
	// Command is the executable to invoke.
	Command string
	// Args are passed to the command before the request is piped in.
	Args []string
	// Timeout bounds a single invocation. Zero means no per-call bound
	// beyond the caller's context.
	Timeout time.Duration
}

var _ merge.Resolver = (*CommandResolver)(nil)

// NewCommandResolver parses a shell-style command line into a resolver.
// Returns nil when the line is empty, which callers treat as "no resolver
// configured".
func NewCommandResolver(line string, timeout time.Duration) *CommandResolver {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &CommandResolver{
		Command: fields[0],
		Args:    fields[1:],
		Timeout: timeout,
	}
}

// Available checks that the configured command can be found on PATH.
func (r *CommandResolver) Available() bool {
	_, err := exec.LookPath(r.Command)
	return err == nil
}

// Resolve invokes the command with the request on stdin and returns its
// stdout as the merged content.
func (r *CommandResolver) Resolve(ctx context.Context, req merge.ResolveRequest) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("resolver: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	// Cancellation kills only the direct child. A surviving grandchild can
	// hold the stdout/stderr pipes open, which would block Wait past the
	// deadline; WaitDelay caps that wait so Resolve returns on time.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("resolver: %s timed out after %v", r.Command, r.Timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("resolver: %s cancelled", r.Command)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("resolver: %s failed: %w: %s", r.Command, err, msg)
		}
		return "", fmt.Errorf("resolver: %s failed: %w", r.Command, err)
	}

	merged := stdout.String()
	if merged == "" {
		return "", fmt.Errorf("resolver: %s produced no output for %s", r.Command, req.FilePath)
	}
	return merged, nil
}
