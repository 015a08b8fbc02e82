package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/assets"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold the .qgen/ directory",
	Long: `Scaffold the .qgen/ directory in the current project.

Creates:
  .qgen/
    config.yaml                 # Tool configuration
    prompt.md                   # Generation prompt template
    questions.schema.json       # Structural schema for engine output
    curricula/japanese.yaml     # Starter curriculum (Japanese N5)
    grammar/japanese/n5.yaml    # Level grammar constraints
    vocab/japanese/n5.yaml      # Level vocabulary pools
    archive/                    # Archived outputs

After init, adjust the curriculum and run 'qgen generate --language japanese'.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	return initQgenDir(".", os.Stdout)
}

// initQgenDir writes the embedded scaffold under baseDir/.qgen.
func initQgenDir(baseDir string, w io.Writer) error {
	configDir := filepath.Join(baseDir, assets.QgenDir)
	archiveDir := filepath.Join(configDir, assets.ArchiveDir)

	// Never overwrite an existing setup.
	if _, err := os.Stat(configDir); err == nil {
		return fmt.Errorf(".qgen/ already exists")
	}

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Scaffold entries carry relative paths like curricula/japanese.yaml,
	// so parent directories are created per file.
	for filename, content := range assets.DefaultFiles() {
		filePath := filepath.Join(configDir, filename)
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}

	gitkeepPath := filepath.Join(archiveDir, ".gitkeep")
	if err := os.WriteFile(gitkeepPath, []byte(""), 0644); err != nil {
		return fmt.Errorf("failed to write .gitkeep: %w", err)
	}

	fmt.Fprintln(w, "Initialized .qgen/")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Created:")
	fmt.Fprintln(w, "  .qgen/config.yaml              - Tool configuration (engine, parallelism)")
	fmt.Fprintln(w, "  .qgen/prompt.md                - Generation prompt template")
	fmt.Fprintln(w, "  .qgen/questions.schema.json    - Structural schema for engine output")
	fmt.Fprintln(w, "  .qgen/curricula/japanese.yaml  - Starter curriculum (Japanese N5)")
	fmt.Fprintln(w, "  .qgen/grammar/, .qgen/vocab/   - Level grammar and vocabulary tables")
	fmt.Fprintln(w, "  .qgen/archive/                 - Archived previous outputs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Review .qgen/curricula/japanese.yaml")
	fmt.Fprintln(w, "  2. Run: qgen generate --language japanese --trial 2")

	return nil
}
