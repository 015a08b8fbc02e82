package cmd

import (
	"github.com/lexlabs/qgen/internal/engine"

	// Register available engines.
	_ "github.com/lexlabs/qgen/internal/engine/claude"
	_ "github.com/lexlabs/qgen/internal/engine/codex"
)

// newEngine creates an engine by name with the model override applied.
func newEngine(name, model string) (engine.Engine, error) {
	return engine.NewWithConfig(name, engine.Config{Model: model})
}
