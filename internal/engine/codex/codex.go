package codex

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
	engine.RegisterEngine("codex", func(cfg engine.Config) engine.Engine {
		return NewWithConfig(cfg)
	})
}

// Engine generates question batches using the OpenAI Codex CLI.
type Engine struct {
	Model   string
	Timeout time.Duration
}

// New creates a Codex engine with default settings.
func New() *Engine {
	return NewWithConfig(engine.Config{})
}

// NewWithConfig creates a Codex engine with explicit settings.
func NewWithConfig(cfg engine.Config) *Engine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = engine.DefaultTimeout
	}
	return &Engine{Model: cfg.Model, Timeout: timeout}
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "codex"
}

// CLICommand returns the CLI executable name.
func (e *Engine) CLICommand() string {
	return "codex"
}

// BuildArgs returns the CLI arguments for a single JSON-mode call.
// The trailing "-" makes codex exec read the prompt from stdin.
func (e *Engine) BuildArgs() []string {
	args := []string{"exec", "--json"}
	if e.Model != "" {
		args = append(args, "--model", e.Model)
	}
	return append(args, "-")
}

// Generate runs one prompt through the Codex CLI.
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

	// Feed the prompt over stdin from a regular file and detach from
	// the controlling terminal so the CLI skips its interactive hints.
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

	c := collapseOutput(output)
	if c.failure != "" {
		return engine.Result{
			Output:   output,
			Tokens:   c.tokens,
			Duration: duration,
			Error:    fmt.Errorf("generation failed: %s", c.failure),
		}
	}
	if c.text == "" {
		// No agent message in the stream; hand the raw output to the
		// payload parser and let it decide.
		c.text = output
	}

	return engine.Result{
		Output:   c.text,
		Tokens:   c.tokens,
		Duration: duration,
	}
}
