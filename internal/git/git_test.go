package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestFormatCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{
			name:    "short summary",
			summary: "japanese: 12 validated",
			want:    "qgen: japanese: 12 validated",
		},
		{
			name:    "exactly 50 chars",
			summary: "12345678901234567890123456789012345678901234567890",
			want:    "qgen: 12345678901234567890123456789012345678901234567890",
		},
		{
			name:    "truncate long summary",
			summary: "japanese run with a remarkably verbose summary line that keeps going",
			want:    "qgen: japanese run with a remarkably verbose summary l",
		},
		{
			name:    "empty summary",
			summary: "",
			want:    "qgen: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatCommitMessage(tt.summary)
			if got != tt.want {
				t.Errorf("formatCommitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

// createTestRepo creates a temporary git repository with one commit.
func createTestRepo(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := git.PlainInit(tmpDir, false)
	if err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	initialFile := filepath.Join(tmpDir, "README.md")
	if err := os.WriteFile(initialFile, []byte("# Test Repo\n"), 0644); err != nil {
		t.Fatalf("Failed to create initial file: %v", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		t.Fatalf("Failed to add file: %v", err)
	}
	_, err = worktree.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@test.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to create initial commit: %v", err)
	}

	return tmpDir
}

// writeOutput drops a fake batch artifact under output/ in the repo.
func writeOutput(t *testing.T, repoPath, name string) {
	t.Helper()
	dir := filepath.Join(repoPath, "output", "japanese", "n5")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
}

func TestAutoCommit_OutputChanges(t *testing.T) {
	repoPath := createTestRepo(t)
	writeOutput(t, repoPath, "japanese-n5-mcq-0001.json")

	result, err := AutoCommit(repoPath, "output", "japanese: 1 validated")
	if err != nil {
		t.Fatalf("AutoCommit() unexpected error: %v", err)
	}
	if result.Hash == "" {
		t.Error("AutoCommit() Hash is empty")
	}
	if result.Message != "qgen: japanese: 1 validated" {
		t.Errorf("AutoCommit() Message = %q", result.Message)
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("Failed to open repo: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Failed to get HEAD: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("Failed to get commit: %v", err)
	}
	if commit.Message != "qgen: japanese: 1 validated" {
		t.Errorf("Commit message = %q", commit.Message)
	}
}

func TestAutoCommit_NoChanges(t *testing.T) {
	repoPath := createTestRepo(t)

	_, err := AutoCommit(repoPath, "", "nothing to see")
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("AutoCommit() error = %v, want ErrNoChanges", err)
	}
}

func TestAutoCommit_ScopedToDir(t *testing.T) {
	repoPath := createTestRepo(t)
	writeOutput(t, repoPath, "japanese-n5-mcq-0001.json")

	// An unrelated change outside the staged dir must not be committed.
	unrelated := filepath.Join(repoPath, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("scratch\n"), 0644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	if _, err := AutoCommit(repoPath, "output", "scoped commit"); err != nil {
		t.Fatalf("AutoCommit() unexpected error: %v", err)
	}

	repo, _ := git.PlainOpen(repoPath)
	worktree, _ := repo.Worktree()
	status, err := worktree.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	st := status.File("notes.txt")
	if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
		t.Error("unrelated file was swept into the commit")
	}
}

func TestAutoCommit_NotARepo(t *testing.T) {
	_, err := AutoCommit(t.TempDir(), "output", "test")
	if err == nil {
		t.Error("AutoCommit() expected error for non-repo directory, got nil")
	}
}

func TestDescribe(t *testing.T) {
	repoPath := createTestRepo(t)

	info, err := Describe(repoPath)
	if err != nil {
		t.Fatalf("Describe() unexpected error: %v", err)
	}
	if info == nil {
		t.Fatal("Describe() = nil for a real repository")
	}
	if info.Branch == "" {
		t.Error("Describe() Branch is empty")
	}
	if info.Dirty {
		t.Error("Describe() Dirty = true for clean repo")
	}

	writeOutput(t, repoPath, "japanese-n5-mcq-0001.json")
	info, err = Describe(repoPath)
	if err != nil {
		t.Fatalf("Describe() unexpected error: %v", err)
	}
	if !info.Dirty {
		t.Error("Describe() Dirty = false after new files")
	}
}

func TestDescribe_NotARepo(t *testing.T) {
	info, err := Describe(t.TempDir())
	if err != nil {
		t.Errorf("Describe() error = %v, want nil for non-repo", err)
	}
	if info != nil {
		t.Errorf("Describe() = %+v, want nil for non-repo", info)
	}
}
