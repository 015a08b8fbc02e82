package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/manifest"
	"github.com/lexlabs/qgen/internal/output"
	"github.com/lexlabs/qgen/internal/planner"
)

// Plan command flags
var (
	planLanguageFlag string
	planLevelFlag    string
	planTypeFlag     string
	planTrialFlag    int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the planned batch matrix without generating",
	Long: `Print the batch matrix a generate run would execute, without
calling any engine.

Each row is one batch with its deterministic id, level, question type,
target skill, and assigned topic. Batches already recorded in the
manifest are marked, so the plan doubles as a resume preview.

Examples:
  qgen plan -l japanese               # Full matrix for Japanese
  qgen plan -l japanese --level N5    # One level only
  qgen plan -l japanese --trial 2     # What a trial run would cover`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planLanguageFlag, "language", "l", "", "Language to plan (required)")
	planCmd.Flags().StringVar(&planLevelFlag, "level", "", "Only plan this level (e.g. N5)")
	planCmd.Flags().StringVar(&planTypeFlag, "type", "", "Only plan this question type (e.g. mcq)")
	planCmd.Flags().IntVar(&planTrialFlag, "trial", 0, "Cap the plan at N batches (0=full matrix)")

	planCmd.MarkFlagRequired("language")
	rootCmd.AddCommand(planCmd)
}

// planStats aggregates what a resumed run would do with the planned
// batches.
type planStats struct {
	complete int // validated or generated, skipped on resume
	failed   int // recorded failures, retried on resume
	fresh    int // no manifest entry yet
}

// planRows builds the dry-run table plus resume stats from the planned
// matrix and the recorded batch states.
func planRows(batches []planner.BatchSpec, man *manifest.Manifest) ([][]string, planStats) {
	rows := make([][]string, 0, len(batches))
	var stats planStats

	for _, b := range batches {
		status := man.StatusOf(b.BatchID)
		display := "-"
		switch status {
		case manifest.StatusValidated, manifest.StatusGenerated:
			stats.complete++
			display = status.String()
		case manifest.StatusFailed:
			stats.failed++
			display = status.String()
		default:
			stats.fresh++
		}

		rows = append(rows, []string{
			b.BatchID,
			string(b.Level),
			string(b.Type),
			string(b.TargetSkill),
			b.Topic,
			display,
		})
	}
	return rows, stats
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	spec, err := curriculum.Load(assets.QgenDir, planLanguageFlag)
	if err != nil {
		return err
	}

	batches, err := planner.Plan(spec, planner.Filter{
		Level: planLevelFlag,
		Type:  planTypeFlag,
		Trial: planTrialFlag,
	})
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("nothing to plan: the filters matched no batches")
	}

	store := artifact.NewStore(cfg.OutputDir)
	man, err := manifest.Load(filepath.Join(store.LanguageDir(spec.Language), manifest.FileName))
	if err != nil {
		return err
	}

	rows, stats := planRows(batches, man)

	p := output.New(os.Stdout)
	p.Header("Planned batches for %s (%s)", spec.Name, spec.Language)
	p.Table([]string{"BATCH", "LEVEL", "TYPE", "SKILL", "TOPIC", "STATUS"}, rows)
	p.BatchCount(len(batches), len(batches)*planner.QuestionsPerBatch)
	if stats.complete > 0 || stats.failed > 0 {
		p.ResumeNote(stats.complete, stats.failed, stats.fresh)
	}

	return nil
}
