// Package manifest tracks per-batch generation state across runs. The
// manifest file is the single source of truth for resumability: it is
// flushed after every completed batch so a crash loses at most the
// in-flight work.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/planner"
)

// FileName is the manifest file kept at each language's output root.
const FileName = "manifest.json"

// Status is the persisted lifecycle state of one batch.
type Status string

const (
	// StatusAbsent is the implicit state of a batch with no entry yet.
	StatusAbsent Status = ""

	StatusGenerated Status = "generated"
	StatusValidated Status = "validated"
	StatusFailed    Status = "failed"
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	if s == StatusAbsent {
		return "absent"
	}
	return string(s)
}

// validTransitions defines the explicit allow-list of status
// transitions. validated is terminal: a batch that needs regeneration
// after that point must have its entry removed by hand.
var validTransitions = map[Status]map[Status]bool{
	StatusAbsent: {
		StatusGenerated: true,
		StatusFailed:    true,
	},
	StatusGenerated: {
		StatusValidated: true,
		StatusFailed:    true,
	},
	StatusFailed: {
		StatusGenerated: true,
		StatusFailed:    true,
	},
	StatusValidated: {},
}

// Transition validates whether a batch may move from one status to
// another. Returns nil if the transition is allowed, or an error
// describing the invalid transition.
func Transition(from, to Status) error {
	if targets, ok := validTransitions[from]; ok {
		if targets[to] {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition: %s → %s", from, to)
}

// Entry is the durable record for one batch.
type Entry struct {
	BatchID       string    `json:"batchId"`
	Status        Status    `json:"status"`
	OutputFile    string    `json:"outputFile,omitempty"`
	Error         string    `json:"error,omitempty"`
	QuestionCount int       `json:"questionCount,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Manifest is the per-language batch state map. Safe for concurrent
// use by the runner's batch goroutines.
type Manifest struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
}

// Load reads the manifest at path. A missing file yields an empty
// manifest, not an error; the first Save creates it.
func Load(path string) (*Manifest, error) {
	m := &Manifest{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Path returns the file this manifest persists to.
func (m *Manifest) Path() string { return m.path }

// Get returns the entry for a batch.
func (m *Manifest) Get(batchID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[batchID]
	return e, ok
}

// StatusOf returns a batch's current status, StatusAbsent when the
// batch has no entry.
func (m *Manifest) StatusOf(batchID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[batchID].Status
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns a snapshot of all entries sorted by batchId.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out
}

// Counts tallies entries per status for the end-of-run summary.
func (m *Manifest) Counts() (validated, generated, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		switch e.Status {
		case StatusValidated:
			validated++
		case StatusGenerated:
			generated++
		case StatusFailed:
			failed++
		}
	}
	return validated, generated, failed
}

// MarkGenerated records a batch whose artifact was written. Batches
// that also pass validation are promoted with MarkValidated; the rest
// stay generated so a reviewer can inspect the persisted artifact.
func (m *Manifest) MarkGenerated(batchID, outputFile string, questionCount int) error {
	return m.apply(batchID, StatusGenerated, func(e *Entry) {
		e.OutputFile = outputFile
		e.QuestionCount = questionCount
		e.Error = ""
	})
}

// MarkValidated promotes a generated batch to the terminal validated
// status.
func (m *Manifest) MarkValidated(batchID string) error {
	return m.apply(batchID, StatusValidated, func(e *Entry) {
		e.Error = ""
	})
}

// MarkFailed records a batch failure with its truncated error text.
func (m *Manifest) MarkFailed(batchID, errMsg string) error {
	return m.apply(batchID, StatusFailed, func(e *Entry) {
		e.Error = errMsg
	})
}

func (m *Manifest) apply(batchID string, to Status, update func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entries[batchID]
	if err := Transition(e.Status, to); err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}

	e.BatchID = batchID
	e.Status = to
	e.Timestamp = time.Now().UTC()
	if update != nil {
		update(&e)
	}
	m.entries[batchID] = e
	return nil
}

// Pending filters the planned batches down to the ones a run must
// execute: failed entries are rescheduled, absent batches are
// scheduled, generated and validated batches are skipped.
func (m *Manifest) Pending(planned []planner.BatchSpec) []planner.BatchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []planner.BatchSpec
	for _, b := range planned {
		switch m.entries[b.BatchID].Status {
		case StatusGenerated, StatusValidated:
			continue
		default:
			out = append(out, b)
		}
	}
	return out
}

// RebuildHashes reconstructs the deduplication hash set from every
// artifact referenced by a generated or validated entry. It must run
// before any batch is dispatched in a resumed run, otherwise duplicate
// detection silently loses the history of prior runs.
//
// An entry whose artifact cannot be read is logged and skipped; its
// hash contribution is lost but the run proceeds.
func (m *Manifest) RebuildHashes(set *dedup.Set, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	m.mu.Lock()
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	hashed := 0
	for _, e := range entries {
		if e.Status != StatusGenerated && e.Status != StatusValidated {
			continue
		}
		if e.OutputFile == "" {
			continue
		}

		bf, err := artifact.Read(e.OutputFile)
		if err != nil {
			logger.Warn("skipping unreadable artifact during hash recovery",
				"batchId", e.BatchID,
				"outputFile", e.OutputFile,
				"error", err)
			continue
		}
		for i := range bf.Questions {
			set.Add(dedup.Hash(&bf.Questions[i]))
		}
		hashed += len(bf.Questions)
	}
	return hashed
}

// Save flushes the manifest atomically: the new contents are staged in
// a temp file in the manifest's directory and renamed over the old
// file, so a crash never leaves a torn manifest.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to stage manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
