package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/engine"
	"github.com/lexlabs/qgen/internal/export"
	"github.com/lexlabs/qgen/internal/question"
)

// Export command flags
var (
	exportLanguageFlag string
	exportLevelFlag    string
	exportDBFlag       string
	exportXLSXFlag     string
	exportAllFlag      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export validated questions to a database or workbook",
	Long: `Export a language's validated questions out of the artifact tree.

Targets:
  --db <dsn>     database/sql sink; the DSN scheme picks the driver:
                   bank.db or sqlite:bank.db         embedded sqlite
                   postgres://user:pw@host/db        Postgres (pgx)
                   libsql://name.turso.io?authToken  hosted libsql
                 Questions land in one 'questions' table, upserted by
                 content hash, so re-exports refresh instead of duplicate.
  --xlsx <path>  reviewer workbook with one sheet per level

Only questions from batches that passed validation are exported unless
--all is set. Duplicate content across batches is exported once.

Examples:
  qgen export -l japanese --db bank.db
  qgen export -l japanese --db postgres://qgen@localhost/bank
  qgen export -l japanese --xlsx review.xlsx --level N5
  qgen export -l japanese --db bank.db --all`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportLanguageFlag, "language", "l", "", "Language to export (required)")
	exportCmd.Flags().StringVar(&exportLevelFlag, "level", "", "Only export this level (e.g. N5)")
	exportCmd.Flags().StringVar(&exportDBFlag, "db", "", "Database DSN to export into")
	exportCmd.Flags().StringVar(&exportXLSXFlag, "xlsx", "", "Workbook path to export into")
	exportCmd.Flags().BoolVar(&exportAllFlag, "all", false, "Include batches that did not pass validation")

	exportCmd.MarkFlagRequired("language")
	rootCmd.AddCommand(exportCmd)
}

// resolveExportTarget enforces that exactly one sink is selected.
func resolveExportTarget(dbDSN, xlsxPath string) error {
	if dbDSN == "" && xlsxPath == "" {
		return fmt.Errorf("no export target: pass --db <dsn> or --xlsx <path>")
	}
	if dbDSN != "" && xlsxPath != "" {
		return fmt.Errorf("conflicting export targets: pass only one of --db and --xlsx")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := resolveExportTarget(exportDBFlag, exportXLSXFlag); err != nil {
		return err
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.OutputDir)
	res, err := export.Collect(store, export.Options{
		Language: exportLanguageFlag,
		Level:    question.Level(strings.ToUpper(exportLevelFlag)),
		All:      exportAllFlag,
	})
	if err != nil {
		return err
	}
	if len(res.Rows) == 0 {
		return fmt.Errorf("no exportable questions for %s under %s - run 'qgen generate' first", exportLanguageFlag, cfg.OutputDir)
	}

	var target string
	if exportDBFlag != "" {
		target = exportDBFlag
		db, err := export.OpenDB(exportDBFlag)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := export.ToDB(context.Background(), db, res.Rows); err != nil {
			return err
		}
	} else {
		target = exportXLSXFlag
		if err := export.ToXLSX(res.Rows, exportXLSXFlag); err != nil {
			return err
		}
	}

	display := engine.NewDisplay(os.Stdout)
	display.ShowCommandSuccess("Export complete",
		fmt.Sprintf("%d questions from %d batches into %s", len(res.Rows), res.Batches, target))
	if res.Skipped > 0 {
		display.ShowInfo("%d batches skipped (not validated); use --all to include them", res.Skipped)
	}
	if res.Duplicates > 0 {
		display.ShowInfo("%d duplicate questions collapsed", res.Duplicates)
	}
	return nil
}
