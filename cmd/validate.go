package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/validate"
)

// Validate command flags
var (
	validateLanguageFlag string
	validateLevelFlag    string
)

// maxIssueLines bounds the per-question issues printed before eliding.
const maxIssueLines = 20

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-run validation over persisted artifacts",
	Long: `Re-run every validation rule over the artifacts already on disk,
without calling any engine.

Checks per question:
  - Required fields for the question type (options, answer, points)
  - The correct answer appears among the options
  - Blank marker present for fill-in questions
  - Difficulty matches the batch's level
  - Translations cover every configured UI language
  - Content duplicates across all scanned batches

Artifacts and the manifest are never modified. Exit status is 0 only
when every scanned batch is clean.

Examples:
  qgen validate -l japanese               # All levels
  qgen validate -l japanese --level N5    # One level`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateLanguageFlag, "language", "l", "", "Language whose artifacts to validate (required)")
	validateCmd.Flags().StringVar(&validateLevelFlag, "level", "", "Only validate this level (e.g. N5)")

	validateCmd.MarkFlagRequired("language")
	rootCmd.AddCommand(validateCmd)
}

// checkResult aggregates a full artifact scan.
type checkResult struct {
	batches    int
	questions  int
	dirty      int // batches with at least one error or duplicate
	errors     int
	duplicates int
	unreadable int
	issues     []string
}

// clean reports whether the scan found nothing wrong.
func (r checkResult) clean() bool {
	return r.errors == 0 && r.duplicates == 0 && r.unreadable == 0
}

func (r checkResult) summary() string {
	return fmt.Sprintf("%d batches, %d questions scanned", r.batches, r.questions)
}

// detail names what is wrong, empty when clean.
func (r checkResult) detail() string {
	var parts []string
	if r.errors > 0 {
		parts = append(parts, fmt.Sprintf("%d validation errors", r.errors))
	}
	if r.duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates", r.duplicates))
	}
	if r.unreadable > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable artifacts", r.unreadable))
	}
	return strings.Join(parts, ", ")
}

// addIssue appends up to maxIssueLines issue lines, then one elision
// marker.
func (r *checkResult) addIssue(line string) {
	if len(r.issues) < maxIssueLines {
		r.issues = append(r.issues, line)
		return
	}
	if len(r.issues) == maxIssueLines {
		r.issues = append(r.issues, "... more issues elided")
	}
}

// checkArtifacts re-validates every artifact in path order, carrying
// the duplicate set across batches exactly like a generation run does.
// An unreadable artifact counts against a clean result instead of
// aborting the scan.
func checkArtifacts(paths []string, v *validate.Validator) checkResult {
	var res checkResult
	seen := dedup.NewSet()

	for _, path := range paths {
		bf, err := artifact.Read(path)
		if err != nil {
			res.unreadable++
			res.addIssue(fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}

		res.batches++
		res.questions += len(bf.Questions)

		vr := v.ValidateBatch(bf.Questions, validate.Expected{Type: bf.Type, Level: bf.Level}, seen)
		seen.AddAll(vr.Hashes)

		if len(vr.Errors) == 0 && len(vr.HashConflicts) == 0 {
			continue
		}
		res.dirty++
		res.errors += len(vr.Errors)
		res.duplicates += len(vr.HashConflicts)
		for _, iss := range vr.Errors {
			res.addIssue(fmt.Sprintf("%s q%d %s: %s", bf.BatchID, iss.QuestionIndex, iss.Field, iss.Message))
		}
		for _, h := range vr.HashConflicts {
			res.addIssue(fmt.Sprintf("%s: duplicate content %s", bf.BatchID, h[:8]))
		}
	}
	return res
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	// Translation coverage follows the curriculum when it is available;
	// otherwise the validator's default UI languages apply.
	var targets []string
	if spec, err := curriculum.Load(assets.QgenDir, validateLanguageFlag); err == nil {
		targets = spec.TranslationTargets
	}

	store := artifact.NewStore(cfg.OutputDir)
	paths, err := store.List(validateLanguageFlag, strings.ToLower(validateLevelFlag))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no artifacts found for %s under %s - run 'qgen generate' first", validateLanguageFlag, cfg.OutputDir)
	}

	display := engine.NewDisplay(os.Stdout)
	display.ShowCommandHeader("Validate", fmt.Sprintf("%d artifacts under %s", len(paths), store.LanguageDir(validateLanguageFlag)))

	res := checkArtifacts(paths, validate.New(targets))

	if res.clean() {
		display.ShowCommandSuccess("All batches are clean", res.summary())
		return nil
	}

	display.ShowCommandError(fmt.Sprintf("Validation failed: %s", res.detail()), res.issues)
	os.Exit(1)
	return nil
}
