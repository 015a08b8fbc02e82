// Package archive moves a language's generated outputs out of the live
// output tree into .qgen/archive/ and back.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lexlabs/qgen/internal/manifest"
)

// MetaFile records what an archive holds so list and restore work
// without re-reading every artifact.
const MetaFile = "archive.json"

// Meta is the archive's self-description.
type Meta struct {
	Language   string    `json:"language"`
	ArchivedAt time.Time `json:"archivedAt"`
	Validated  int       `json:"validated"`
	Generated  int       `json:"generated"`
	Failed     int       `json:"failed"`
}

// Info describes one archive on disk.
type Info struct {
	Name string
	Path string
	Meta Meta
}

// Create moves everything under outputDir/<language>/ (manifest, run
// summaries, level directories) into qgenDir/archive/<date>-<name>/ and
// returns the archive directory path.
func Create(qgenDir, outputDir, language, name string, w io.Writer) (string, error) {
	langDir := filepath.Join(outputDir, language)
	manifestPath := filepath.Join(langDir, manifest.FileName)
	if !fileExists(manifestPath) {
		return "", fmt.Errorf("no generated output to archive for language %s (no %s found)", language, manifest.FileName)
	}

	meta := Meta{Language: language, ArchivedAt: time.Now().UTC()}
	if man, err := manifest.Load(manifestPath); err == nil {
		meta.Validated, meta.Generated, meta.Failed = man.Counts()
	}

	datePart := time.Now().Format("2006-01-02")
	archiveDir := filepath.Join(qgenDir, "archive", fmt.Sprintf("%s-%s", datePart, name))
	archiveDir = resolveCollision(archiveDir)

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	entries, err := os.ReadDir(langDir)
	if err != nil {
		return "", fmt.Errorf("failed to read output directory: %w", err)
	}

	moved := 0
	for _, e := range entries {
		src := filepath.Join(langDir, e.Name())
		dst := filepath.Join(archiveDir, e.Name())
		if err := moveEntry(src, dst); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", e.Name(), err)
		}
		fmt.Fprintf(w, "  archived %s\n", e.Name())
		moved++
	}

	if moved == 0 {
		os.Remove(archiveDir)
		return "", fmt.Errorf("no output files found to archive")
	}

	// The language dir is empty now; leave the output root in place.
	os.Remove(langDir)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(archiveDir, MetaFile), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive metadata: %w", err)
	}

	fmt.Fprintf(w, "  archived to %s\n", filepath.Base(archiveDir))
	return archiveDir, nil
}

// List returns every archive under qgenDir/archive, sorted by name.
// The date prefix makes that chronological order.
func List(qgenDir string) ([]Info, error) {
	dir := filepath.Join(qgenDir, "archive")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info := Info{Name: e.Name(), Path: filepath.Join(dir, e.Name())}
		// Metadata is best effort; a meta-less archive still lists.
		if data, err := os.ReadFile(filepath.Join(info.Path, MetaFile)); err == nil {
			json.Unmarshal(data, &info.Meta)
		}
		archives = append(archives, info)
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].Name < archives[j].Name })
	return archives, nil
}

// FormatList renders the archive listing.
func FormatList(archives []Info, w io.Writer, verbose bool) {
	if len(archives) == 0 {
		fmt.Fprintln(w, "No archives found.")
		return
	}

	for _, a := range archives {
		lang := a.Meta.Language
		if lang == "" {
			lang = "unknown"
		}
		stats := fmt.Sprintf("%d validated, %d with warnings, %d failed",
			a.Meta.Validated, a.Meta.Generated, a.Meta.Failed)
		fmt.Fprintf(w, "  %-36s %-12s %s\n", a.Name, lang, stats)
		if verbose {
			fmt.Fprintf(w, "      path: %s\n", a.Path)
			if !a.Meta.ArchivedAt.IsZero() {
				fmt.Fprintf(w, "      archived: %s\n", a.Meta.ArchivedAt.Format(time.RFC3339))
			}
		}
	}
}

// Restore moves an archive's contents back under outputDir/<language>/.
// If that language already has live output, it is auto-archived first
// under the name "auto-saved".
func Restore(qgenDir, outputDir, name string, w io.Writer) error {
	archiveDir := filepath.Join(qgenDir, "archive", name)
	if !dirExists(archiveDir) {
		return fmt.Errorf("archive %s does not exist", name)
	}

	var meta Meta
	data, err := os.ReadFile(filepath.Join(archiveDir, MetaFile))
	if err != nil {
		return fmt.Errorf("archive %s has no metadata, cannot determine its language", name)
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Language == "" {
		return fmt.Errorf("archive %s has unreadable metadata", name)
	}

	langDir := filepath.Join(outputDir, meta.Language)
	if fileExists(filepath.Join(langDir, manifest.FileName)) {
		if _, err := Create(qgenDir, outputDir, meta.Language, "auto-saved", w); err != nil {
			return fmt.Errorf("failed to auto-archive current output: %w", err)
		}
	}

	if err := os.MkdirAll(langDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	for _, e := range entries {
		if e.Name() == MetaFile {
			continue
		}
		src := filepath.Join(archiveDir, e.Name())
		dst := filepath.Join(langDir, e.Name())
		if err := moveEntry(src, dst); err != nil {
			return fmt.Errorf("failed to restore %s: %w", e.Name(), err)
		}
		fmt.Fprintf(w, "  restored %s\n", e.Name())
	}

	os.Remove(filepath.Join(archiveDir, MetaFile))
	if err := os.Remove(archiveDir); err != nil {
		return fmt.Errorf("failed to remove emptied archive: %w", err)
	}

	fmt.Fprintf(w, "  restored %s into %s\n", name, langDir)
	return nil
}

// resolveCollision appends -2, -3, etc. if the directory already exists.
func resolveCollision(dir string) string {
	if !dirExists(dir) {
		return dir
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", dir, i)
		if !dirExists(candidate) {
			return candidate
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
