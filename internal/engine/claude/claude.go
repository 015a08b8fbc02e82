package claude

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lexlabs/qgen/internal/engine"
)

func init() {
	engine.RegisterEngine("claude", func(cfg engine.Config) engine.Engine {
		return NewWithConfig(cfg)
	})
}

// Engine generates question batches using the Claude Code CLI.
type Engine struct {
	Model   string
	Timeout time.Duration
}

// New creates a Claude engine with default settings.
func New() *Engine {
	return NewWithConfig(engine.Config{})
}

// NewWithConfig creates a Claude engine with explicit settings.
func NewWithConfig(cfg engine.Config) *Engine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = engine.DefaultTimeout
	}
	return &Engine{Model: cfg.Model, Timeout: timeout}
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "claude"
}

// CLICommand returns the CLI executable name.
func (e *Engine) CLICommand() string {
	return "claude"
}

// BuildArgs returns the CLI arguments for a single JSON-mode call.
// With no prompt argument, -p reads the prompt from stdin.
func (e *Engine) BuildArgs() []string {
	args := []string{"-p", "--output-format", "json"}
	if e.Model != "" {
		args = append(args, "--model", e.Model)
	}
	return args
}

// Generate runs one prompt through the Claude Code CLI.
func (e *Engine) Generate(ctx context.Context, promptFile string) engine.Result {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = engine.DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()

	promptIn, err := os.Open(promptFile)
	if err != nil {
		return engine.Result{Error: fmt.Errorf("failed to open prompt file: %w", err)}
	}
	defer promptIn.Close()

	cmd := exec.CommandContext(ctx, e.CLICommand(), e.BuildArgs()...)

	// Feed the prompt over stdin from a regular file.
	//
	// When Claude Code CLI detects a TTY (terminal), it displays
	// interactive hints like "ctrl+b to run in background". These hints
	// are written directly to /dev/tty, bypassing stdout/stderr
	// redirection. With a regular file on stdin and a detached session,
	// the CLI skips TTY detection and emits only its JSON result.
	// Stdin delivery also keeps large prompts clear of argv limits.
	cmd.Stdin = promptIn
	cmd.SysProcAttr = newSysProcAttr()
	setupProcessCleanup(cmd)

	stdout := engine.NewBoundedBuffer(engine.MaxOutputBytes)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	duration := time.Since(startTime)
	output := stdout.String()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return engine.Result{
				Output:   output,
				Duration: duration,
				Error:    fmt.Errorf("generation timed out after %s", timeout),
			}
		}
		return engine.Result{
			Output:   output,
			Duration: duration,
			Error:    fmt.Errorf("generation failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String())),
		}
	}
	if stdout.Truncated() {
		return engine.Result{
			Output:   output,
			Duration: duration,
			Error:    fmt.Errorf("output exceeded %d bytes", engine.MaxOutputBytes),
		}
	}

	return engine.Result{
		Output:   output,
		Duration: duration,
	}
}
