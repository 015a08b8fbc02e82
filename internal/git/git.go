// Package git auto-commits generation output after a run.
package git

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoChanges is returned when the staged paths contain nothing to
// commit.
var ErrNoChanges = errors.New("no changes to commit")

// maxMessageLen bounds the run summary portion of commit messages.
const maxMessageLen = 50

// CommitResult represents the outcome of a commit operation.
type CommitResult struct {
	Hash    string
	Message string
}

// AutoCommit stages everything under dir (relative to the repository
// root) and commits it with a formatted message. dir is usually the
// output directory, so artifacts, manifests and run summaries land in
// one commit. Returns ErrNoChanges when the staged paths are clean.
func AutoCommit(repoPath, dir, summary string) (*CommitResult, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	if dir == "" {
		err = worktree.AddWithOptions(&git.AddOptions{All: true})
	} else {
		err = worktree.AddWithOptions(&git.AddOptions{Path: dir})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	staged := false
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		return nil, ErrNoChanges
	}

	message := formatCommitMessage(summary)
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "qgen",
			Email: "qgen@lexlabs.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &CommitResult{Hash: hash.String(), Message: message}, nil
}

// formatCommitMessage creates a commit message with the format:
// "qgen: <summary truncated to 50 chars>"
func formatCommitMessage(summary string) string {
	if len(summary) > maxMessageLen {
		summary = summary[:maxMessageLen]
	}
	return fmt.Sprintf("qgen: %s", summary)
}

// Info describes the repository a run is committing into.
type Info struct {
	Branch string
	Dirty  bool
}

// Describe reports the current branch and whether the worktree has
// uncommitted changes. Returns nil without error when repoPath is not
// inside a git repository, so callers can treat "no repo" as a normal
// condition.
func Describe(repoPath string) (*Info, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &Info{Branch: head.Name().Short(), Dirty: !status.IsClean()}, nil
}
