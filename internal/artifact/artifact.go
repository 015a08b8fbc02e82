// Package artifact persists generated question batches as JSON files
// under the output directory hierarchy.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/planner"
	"github.com/lexlabs/qgen/internal/question"
	"github.com/lexlabs/qgen/internal/validate"
)

// Summary is the lightweight validation outcome embedded in each
// artifact. The full per-question error list stays in the process logs.
type Summary struct {
	Valid      bool `json:"valid"`
	ErrorCount int  `json:"errorCount"`
	DupeCount  int  `json:"dupeCount"`
}

// BatchFile is the persisted output of one generated batch. Written
// once per batch; a retry of the same batch overwrites it.
type BatchFile struct {
	BatchID     string              `json:"batchId"`
	Language    string              `json:"language"`
	Level       question.Level      `json:"level"`
	Type        question.Type       `json:"type"`
	Topic       string              `json:"topic"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Questions   []question.Question `json:"questions"`
	Validation  Summary             `json:"validation"`
}

// New assembles the artifact for one generated batch.
func New(batch planner.BatchSpec, questions []question.Question, res *validate.Result) *BatchFile {
	bf := &BatchFile{
		BatchID:     batch.BatchID,
		Language:    batch.Language,
		Level:       batch.Level,
		Type:        batch.Type,
		Topic:       batch.Topic,
		GeneratedAt: time.Now().UTC(),
		Questions:   questions,
	}
	if res != nil {
		bf.Validation = Summary{
			Valid:      res.Valid,
			ErrorCount: len(res.Errors),
			DupeCount:  len(res.HashConflicts),
		}
	}
	return bf
}

// Store reads and writes batch artifacts under one output root.
type Store struct {
	Root string
}

// NewStore creates a store rooted at the given output directory.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// LanguageDir returns the directory holding a language's artifacts,
// manifest and run summary.
func (s *Store) LanguageDir(language string) string {
	return filepath.Join(s.Root, language)
}

// Path returns the artifact location for a batch.
func (s *Store) Path(language string, level question.Level, batchID string) string {
	return filepath.Join(s.Root, language, curriculum.LevelKey(level), batchID+".json")
}

// Write persists the batch file, creating level directories as needed,
// and returns the path it wrote.
func (s *Store) Write(bf *BatchFile) (string, error) {
	path := s.Path(bf.Language, bf.Level, bf.BatchID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch %s: %w", bf.BatchID, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write batch artifact: %w", err)
	}
	return path, nil
}

// Read loads one artifact from disk.
func Read(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch artifact: %w", err)
	}
	var bf BatchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse batch artifact %s: %w", filepath.Base(path), err)
	}
	return &bf, nil
}

// List returns the sorted artifact paths for a language. levelKey
// narrows the scan to one level directory when non-empty. Files at the
// language root (manifest, run summary) are never included.
func (s *Store) List(language, levelKey string) ([]string, error) {
	langDir := s.LanguageDir(language)

	var levelDirs []string
	if levelKey != "" {
		levelDirs = []string{filepath.Join(langDir, levelKey)}
	} else {
		entries, err := os.ReadDir(langDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to read output directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				levelDirs = append(levelDirs, filepath.Join(langDir, e.Name()))
			}
		}
	}

	var paths []string
	for _, dir := range levelDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read level directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}
