package codex

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexlabs/qgen/internal/engine"
)

func TestBuildArgs_Default(t *testing.T) {
	e := New()
	args := e.BuildArgs()

	joined := strings.Join(args, " ")
	if !strings.HasPrefix(joined, "exec --json") {
		t.Errorf("BuildArgs() = %q, want exec --json prefix", joined)
	}
	if args[len(args)-1] != "-" {
		t.Errorf("BuildArgs() last arg = %q, want %q (stdin prompt)", args[len(args)-1], "-")
	}
}

func TestBuildArgs_ModelBeforeStdinMarker(t *testing.T) {
	e := NewWithConfig(engine.Config{Model: "o4-mini"})
	args := e.BuildArgs()

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--model o4-mini") {
		t.Errorf("BuildArgs() = %q, want --model o4-mini", joined)
	}
	if args[len(args)-1] != "-" {
		t.Errorf("BuildArgs() last arg = %q, want %q", args[len(args)-1], "-")
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "codex" {
		t.Errorf("Name() = %q, want %q", got, "codex")
	}
}

func TestGenerate_MissingPromptFile(t *testing.T) {
	e := New()
	missing := filepath.Join(t.TempDir(), "no-such-prompt.md")

	result := e.Generate(context.Background(), missing)
	if result.Error == nil {
		t.Fatal("Generate() with missing prompt file returned nil error")
	}
}
