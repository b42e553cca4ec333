// Package vcs supplies file versions from a git repository for merging.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dusk-indust/reconcile/internal/merge"
)

// Git reads changed files and per-revision file content from a git working
// tree using the git CLI.
type Git struct {
	// Dir is the repository working tree.
	Dir string
	// MainBranch is the merge target, typically "main".
	MainBranch string
}

var _ merge.VCS = (*Git)(nil)

// NewGit creates a Git collaborator rooted at dir. Returns an error when dir
// is not inside a git working tree.
func NewGit(dir, mainBranch string) (*Git, error) {
	g := &Git{Dir: dir, MainBranch: mainBranch}
	if _, err := g.run(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("git: %s is not a repository: %w", dir, err)
	}
	return g, nil
}

// ChangedFiles lists the files the task branch changed since it diverged
// from the main branch.
func (g *Git) ChangedFiles(ctx context.Context, taskBranch string) ([]string, error) {
	out, err := g.run(ctx, "diff", "--name-only", g.MainBranch+"..."+taskBranch)
	if err != nil {
		return nil, fmt.Errorf("git: changed files for %s: %w", taskBranch, err)
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// FileVersions returns the main, task, and merge-base versions of one file.
// A file absent at a revision, such as one the task newly added, comes back
// as empty content.
func (g *Git) FileVersions(ctx context.Context, taskBranch, path string) (*merge.FileVersions, error) {
	main, err := g.showFile(ctx, g.MainBranch, path)
	if err != nil {
		return nil, err
	}
	task, err := g.showFile(ctx, taskBranch, path)
	if err != nil {
		return nil, err
	}

	versions := &merge.FileVersions{Main: main, Task: task}
	baseRev, err := g.run(ctx, "merge-base", g.MainBranch, taskBranch)
	if err != nil {
		// No common ancestor. Merge proceeds without a base.
		return versions, nil
	}
	base, err := g.showFile(ctx, strings.TrimSpace(baseRev), path)
	if err != nil {
		return nil, err
	}
	versions.Base = base
	versions.HasBase = true
	return versions, nil
}

// showFile returns the file's content at the given revision, or empty when
// the file does not exist there.
func (g *Git) showFile(ctx context.Context, rev, path string) (string, error) {
	if _, err := g.run(ctx, "cat-file", "-e", rev+":"+path); err != nil {
		return "", nil
	}
	out, err := g.run(ctx, "show", rev+":"+path)
	if err != nil {
		return "", fmt.Errorf("git: show %s:%s: %w", rev, path, err)
	}
	return out, nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
