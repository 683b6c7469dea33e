// Package gitops keeps a data directory's config, category chart and
// activity log under git so changes made from the CLI can be reviewed.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNothingToCommit is returned by Commit when the tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Author identifies who made a commit.
type Author struct {
	Name  string
	Email string
}

// DefaultAuthor signs commits made by the CLI when no user is known.
var DefaultAuthor = Author{Name: "Nuacha", Email: "nuacha@localhost"}

// Available reports whether a git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Init creates a repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, Author{}, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// Commit stages everything under dir and commits it as author, returning
// the short hash.
func Commit(ctx context.Context, dir, message string, author Author) (string, error) {
	if author.Name == "" {
		author = DefaultAuthor
	}
	if _, err := run(ctx, dir, author, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	status, err := run(ctx, dir, author, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if len(strings.TrimSpace(string(status))) == 0 {
		return "", ErrNothingToCommit
	}

	if _, err := run(ctx, dir, author, "commit", "--quiet", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	out, err := run(ctx, dir, author, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// run executes git in dir with author and committer set from the
// environment, so commits work without a global git identity.
func run(ctx context.Context, dir string, author Author, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if author.Name != "" {
		cmd.Env = append(cmd.Env,
			"GIT_AUTHOR_NAME="+author.Name,
			"GIT_AUTHOR_EMAIL="+author.Email,
			"GIT_COMMITTER_NAME="+author.Name,
			"GIT_COMMITTER_EMAIL="+author.Email,
		)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err)
	}
	return out, nil
}
