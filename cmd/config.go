package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Show the current qgen configuration.

Displays settings from .qgen/config.yaml if present,
otherwise shows default values.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	return printConfig(".", os.Stdout)
}

func printConfig(baseDir string, w io.Writer) error {
	configPath := filepath.Join(baseDir, assets.QgenDir, assets.ConfigFile)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "No .qgen/config.yaml found (using defaults)")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'qgen init' to create a configuration file.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Default settings:")
		printResolved(w, config.Default())
		return nil
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	fmt.Fprintln(w, "Current configuration (.qgen/config.yaml):")
	fmt.Fprintln(w)
	fmt.Fprintln(w, string(content))

	// The file may omit keys or ask for more parallelism than allowed,
	// so show what actually takes effect.
	cfg, err := config.Load(baseDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Resolved settings:")
	printResolved(w, cfg)

	return nil
}

func printResolved(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "  engine: %s\n", cfg.Engine)
	fmt.Fprintf(w, "  parallelism: %d\n", cfg.Parallelism)
	fmt.Fprintf(w, "  outputDir: %s\n", cfg.OutputDir)
	fmt.Fprintf(w, "  commit: %t\n", cfg.Commit)
}
