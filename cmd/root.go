package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verboseFlag bool
	logJSONFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "qgen",
	Short: "qgen - Batch question generator for language learning",
	Long: `qgen generates language-learning questions in validated batches
using AI generation engines like the Claude CLI.

Workflow:
  qgen init                           Scaffold .qgen/ with config and curriculum
  qgen plan -l japanese               Preview the batch matrix
  qgen generate -l japanese           Generate, validate and persist batches
  qgen validate -l japanese           Re-check persisted artifacts
  qgen export -l japanese --db bank.db   Feed the question bank

Commands:
  init        Scaffold the .qgen/ directory from embedded defaults
  plan        Print the planned batch matrix without generating
  generate    Run the generation pipeline for one language (resumable)
  validate    Re-run validation over persisted artifacts
  export      Export validated questions to a database or workbook
  archive     Move a language's outputs into .qgen/archive/
  config      Show current configuration
  version     Show version info

Quick Start:
  1. qgen init
  2. qgen generate --language japanese --trial 2
  3. qgen export --language japanese --xlsx review.xlsx`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is the normal case.
		godotenv.Load()
		setupLogging()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Emit logs as JSON")
}

// setupLogging routes structured logs to stderr so stdout stays clean
// for command output.
func setupLogging() {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logJSONFlag {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
