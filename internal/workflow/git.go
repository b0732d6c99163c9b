package workflow

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// GitClient runs read-only git commands in the workspace. It backs up the
// code host backend: when that backend is unavailable, branch and commit
// information still comes from the local repository.
type GitClient struct {
	root string
}

// NewGitClient creates a client rooted at root, defaulting to the
// current directory.
func NewGitClient(root string) *GitClient {
	if root == "" {
		root, _ = os.Getwd()
	}
	return &GitClient{root: root}
}

func (g *GitClient) run(ctx context.Context, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// IsRepository reports whether the root contains a git repository.
func (g *GitClient) IsRepository() bool {
	_, err := os.Stat(filepath.Join(g.root, ".git"))
	return err == nil
}

// CurrentBranch returns the checked-out branch name, empty on failure.
func (g *GitClient) CurrentBranch(ctx context.Context) string {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// RecentCommits returns up to count commits, newest first.
func (g *GitClient) RecentCommits(ctx context.Context, count int) []Commit {
	if count <= 0 {
		count = 10
	}
	out := g.run(ctx, "log", "-"+strconv.Itoa(count), "--format=%H %s", "--no-decorate")
	if out == "" {
		return nil
	}
	return parseCommitLog(out)
}
