package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/executor"
	"github.com/lexlabs/qgen/internal/git"
	"github.com/lexlabs/qgen/internal/manifest"
	"github.com/lexlabs/qgen/internal/planner"
	"github.com/lexlabs/qgen/internal/prompt"
	"github.com/lexlabs/qgen/internal/question"
	"github.com/lexlabs/qgen/internal/runner"
	"github.com/lexlabs/qgen/internal/validate"
)

// Generate command flags
var (
	// Batch selection
	generateLanguageFlag string
	generateLevelFlag    string
	generateTypeFlag     string
	generateTrialFlag    int

	// Engine and dispatch overrides
	generateEngineFlag      string
	generateModelFlag       string
	generateParallelismFlag int
	generateCommitFlag      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the generation pipeline",
	Long: `Run the full generation pipeline for one language.

Each planned batch flows through prompt assembly, engine generation,
validation, duplicate detection, and artifact persistence. The manifest
under output/<language>/ records every outcome, so an interrupted or
partially failed run picks up where it left off: completed batches are
skipped, failed batches are retried.

Examples:
  qgen generate -l japanese               # Full matrix for Japanese
  qgen generate -l japanese --trial 2     # Smoke-test two batches
  qgen generate -l japanese --level N5    # One level only
  qgen generate -l japanese -e codex      # Use the Codex CLI
  qgen generate -l japanese -p 2          # Two batches in flight
`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateLanguageFlag, "language", "l", "", "Language to generate (required)")
	generateCmd.Flags().StringVar(&generateLevelFlag, "level", "", "Only generate this level (e.g. N5)")
	generateCmd.Flags().StringVar(&generateTypeFlag, "type", "", "Only generate this question type (e.g. mcq)")
	generateCmd.Flags().IntVar(&generateTrialFlag, "trial", 0, "Cap the run at N batches (0=full matrix)")

	generateCmd.Flags().StringVarP(&generateEngineFlag, "engine", "e", "", "Engine to use (claude, codex); overrides config")
	generateCmd.Flags().StringVar(&generateModelFlag, "model", "", "Model override passed to the engine CLI")
	generateCmd.Flags().IntVarP(&generateParallelismFlag, "parallelism", "p", 0, "Concurrent batches, capped at 4; overrides config")
	generateCmd.Flags().BoolVar(&generateCommitFlag, "commit", false, "Auto-commit output after the run")

	generateCmd.MarkFlagRequired("language")
	rootCmd.AddCommand(generateCmd)
}

// runSettings are the effective engine and dispatch settings after flag
// overrides are applied over the config.
type runSettings struct {
	engineName  string
	model       string
	parallelism int
	commit      bool
}

// resolveRunSettings merges config values with command-line overrides.
// Flags win; the model default follows the chosen engine, not the
// configured one.
func resolveRunSettings(cfg *config.Config, engineFlag, modelFlag string, parallelismFlag int, commitFlag bool) runSettings {
	s := runSettings{
		engineName:  cfg.Engine,
		parallelism: cfg.Parallelism,
		commit:      cfg.Commit || commitFlag,
	}
	if engineFlag != "" {
		s.engineName = engineFlag
	}
	s.model = cfg.ModelFor(s.engineName)
	if modelFlag != "" {
		s.model = modelFlag
	}
	if parallelismFlag > 0 {
		s.parallelism = parallelismFlag
	}
	return s
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(assets.QgenDir); os.IsNotExist(err) {
		return fmt.Errorf(".qgen/ not found - run 'qgen init' first")
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	settings := resolveRunSettings(cfg, generateEngineFlag, generateModelFlag, generateParallelismFlag, generateCommitFlag)

	spec, err := curriculum.Load(assets.QgenDir, generateLanguageFlag)
	if err != nil {
		return err
	}

	planned, err := planner.Plan(spec, planner.Filter{
		Level: generateLevelFlag,
		Type:  generateTypeFlag,
		Trial: generateTrialFlag,
	})
	if err != nil {
		return err
	}
	if len(planned) == 0 {
		return fmt.Errorf("nothing to generate: the filters matched no batches")
	}

	// Side tables load up front; a malformed grammar or vocab file
	// fails the run before any batch is dispatched.
	asm, err := buildAssembler(assets.QgenDir, spec, planned)
	if err != nil {
		return err
	}

	eng, err := newEngine(settings.engineName, settings.model)
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.OutputDir)
	man, err := manifest.Load(filepath.Join(store.LanguageDir(spec.Language), manifest.FileName))
	if err != nil {
		return err
	}

	logger := slog.Default().With("language", spec.Language)

	// Auto-commit needs a repository; degrade to a plain run without one.
	var commitRepo string
	if settings.commit {
		info, err := git.Describe(".")
		switch {
		case err != nil:
			logger.Warn("auto-commit disabled", "error", err)
		case info == nil:
			logger.Warn("auto-commit disabled: not a git repository")
		default:
			logger.Info("auto-commit enabled", "branch", info.Branch, "dirty", info.Dirty)
			commitRepo = "."
		}
	}

	r := &runner.Runner{
		Assembler:   asm,
		Generator:   executor.New(eng, logger),
		Validator:   validate.New(spec.TranslationTargets),
		Manifest:    man,
		Store:       store,
		Hashes:      dedup.NewSet(),
		Display:     engine.NewDisplay(os.Stdout),
		Logger:      logger,
		Language:    spec.Language,
		EngineName:  eng.Name(),
		SchemaRef:   filepath.Join(assets.QgenDir, assets.SchemaFile),
		Parallelism: settings.parallelism,
		CommitRepo:  commitRepo,
	}

	// Ctrl-C stops dispatching new batches; in-flight ones settle and
	// the manifest stays consistent for the next resume.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sum, err := r.Run(ctx, planned)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("run interrupted: %d of %d batches settled - rerun to resume", sum.Executed, sum.Planned-sum.Skipped)
		}
		return err
	}

	// Batch failures are reported, not raised: the exit code stays zero
	// so a partial run can be retried from the manifest.
	if sum.Failed > 0 {
		fmt.Printf("\nRerun 'qgen generate -l %s' to retry the %d failed batches.\n", spec.Language, sum.Failed)
	}
	return nil
}

// buildAssembler loads the prompt template and warms the side tables
// for every planned level.
func buildAssembler(qgenDir string, spec *curriculum.Spec, planned []planner.BatchSpec) (*prompt.Assembler, error) {
	tmpl, err := prompt.LoadTemplate(filepath.Join(qgenDir, assets.PromptFile))
	if err != nil {
		return nil, err
	}
	asm := prompt.NewAssembler(tmpl, spec)
	if err := asm.Preload(plannedLevels(planned)); err != nil {
		return nil, err
	}
	return asm, nil
}

// plannedLevels collects each level once, in plan order.
func plannedLevels(planned []planner.BatchSpec) []question.Level {
	seen := make(map[question.Level]bool, len(planned))
	var levels []question.Level
	for _, b := range planned {
		if !seen[b.Level] {
			seen[b.Level] = true
			levels = append(levels, b.Level)
		}
	}
	return levels
}
