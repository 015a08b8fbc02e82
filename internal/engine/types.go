package engine

import (
	"context"
	"time"
)

// Result represents the outcome of one generation call.
type Result struct {
	Output   string        // Raw stdout from the engine CLI
	Tokens   int           // Total tokens used (if the CLI reports usage)
	Duration time.Duration // How long the call took
	Error    error         // Launch, exit, timeout, or overflow error
}

// Engine defines the interface for external generative CLI tools.
type Engine interface {
	// Name returns the engine identifier (e.g., "claude", "codex")
	Name() string

	// Generate runs the CLI once with the prompt staged at promptFile
	// and returns its raw stdout. The prompt travels over stdin so
	// large prompts never hit argv length limits.
	Generate(ctx context.Context, promptFile string) Result
}

// Config carries per-run engine settings.
type Config struct {
	Model   string        // Model override passed to the CLI, if set
	Timeout time.Duration // Wall-clock limit per call; DefaultTimeout when zero
}

// DefaultTimeout for one generation call.
const DefaultTimeout = 5 * time.Minute

// MaxOutputBytes bounds captured stdout per call.
const MaxOutputBytes = 10 << 20
