package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/archive"
	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
)

// Archive command flags
var (
	archiveLanguageFlag string
	archiveNameFlag     string
	archiveVerboseFlag  bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive a language's generated output",
	Long: `Move a language's generated output into .qgen/archive/<date>-<name>/.

Archives the whole output/<language>/ tree: the manifest, run summaries,
and every level's batch artifacts. The next generate run for that
language starts from a clean slate.

Use --name to set the archive name, or you will be prompted interactively.`,
	RunE: runArchive,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all archives",
	Long: `List all archived outputs with date, name, language, and batch stats.

Use --verbose for detailed output including the archive path.`,
	RunE: runArchiveList,
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore an archived output",
	Long: `Move an archive's files back into the output directory.

If the language currently has generated output, it is auto-archived
first so nothing is overwritten.

The name argument is the archive directory name (e.g., 2026-01-15-pre-refresh).
Use 'qgen archive list' to see available archives.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchiveRestore,
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveLanguageFlag, "language", "l", "", "Language whose output to archive (required)")
	archiveCmd.Flags().StringVar(&archiveNameFlag, "name", "", "Archive name (default: the language)")
	archiveCmd.MarkFlagRequired("language")

	archiveListCmd.Flags().BoolVarP(&archiveVerboseFlag, "verbose", "v", false, "Show detailed output")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveRestoreCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	return runArchiveCreate(assets.QgenDir, cfg.OutputDir, archiveLanguageFlag, archiveNameFlag, os.Stdin, os.Stdout)
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	return runArchiveListFn(assets.QgenDir, archiveVerboseFlag, os.Stdout)
}

func runArchiveRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	return runArchiveRestoreFn(assets.QgenDir, cfg.OutputDir, args[0], os.Stdout)
}

func runArchiveCreate(qgenDir, outputDir, language, name string, in io.Reader, out io.Writer) error {
	if _, err := os.Stat(qgenDir); os.IsNotExist(err) {
		return fmt.Errorf(".qgen/ not found - run 'qgen init' first")
	}

	if name == "" {
		name = promptForName(language, in, out)
	}

	_, err := archive.Create(qgenDir, outputDir, language, name, out)
	return err
}

func runArchiveListFn(qgenDir string, verbose bool, out io.Writer) error {
	if _, err := os.Stat(qgenDir); os.IsNotExist(err) {
		return fmt.Errorf(".qgen/ not found - run 'qgen init' first")
	}

	archives, err := archive.List(qgenDir)
	if err != nil {
		return err
	}

	archive.FormatList(archives, out, verbose)
	return nil
}

func runArchiveRestoreFn(qgenDir, outputDir, name string, out io.Writer) error {
	if _, err := os.Stat(qgenDir); os.IsNotExist(err) {
		return fmt.Errorf(".qgen/ not found - run 'qgen init' first")
	}

	return archive.Restore(qgenDir, outputDir, name, out)
}

// promptForName asks the user for an archive name with a default suggestion.
func promptForName(defaultName string, in io.Reader, out io.Writer) string {
	if defaultName != "" {
		fmt.Fprintf(out, "Archive name [%s]: ", defaultName)
	} else {
		fmt.Fprint(out, "Archive name: ")
	}

	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultName
	}
	return input
}
