// Package dedup fingerprints question content so the pipeline can spot
// the model regenerating the same material across batches and runs.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/lexlabs/qgen/internal/question"
)

// Hash computes the canonical content hash of a question.
//
// Only the semantically meaningful fields participate: type, trimmed
// question text, trimmed passage (or empty), trimmed correct answer,
// and the trimmed option set in sorted order. Formatting-only changes
// (whitespace, option order) never change the hash, and the
// serialization is byte-stable so hashes survive process restarts.
func Hash(q *question.Question) string {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = strings.TrimSpace(o)
	}
	sort.Strings(opts)

	canonical := []string{
		string(q.Type),
		strings.TrimSpace(q.Question),
		strings.TrimSpace(q.PassageText),
		strings.TrimSpace(q.CorrectAnswer),
	}
	canonical = append(canonical, opts...)

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Set is the accumulated hash set shared across batches. Safe for
// concurrent use; union merges are commutative so batch completion
// order doesn't matter.
type Set struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

// NewSet creates an empty hash set.
func NewSet() *Set {
	return &Set{hashes: make(map[string]struct{})}
}

// Add inserts a hash and reports whether it was newly added.
func (s *Set) Add(h string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[h]; ok {
		return false
	}
	s.hashes[h] = struct{}{}
	return true
}

// AddAll inserts every hash in hs.
func (s *Set) AddAll(hs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hs {
		s.hashes[h] = struct{}{}
	}
}

// Contains reports whether a hash is present.
func (s *Set) Contains(h string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashes[h]
	return ok
}

// Len returns the number of accumulated hashes.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Check hashes every question in order and reports duplicates.
//
// A question is a duplicate when its hash was already accumulated from
// an earlier batch (or a prior run, via manifest recovery) or when it
// matches an earlier question in this same slice. Check never mutates
// seen: the caller merges the returned hashes into the shared set only
// after the batch's own validation completes.
func Check(questions []question.Question, seen *Set) (hashes, conflicts []string) {
	local := make(map[string]struct{}, len(questions))

	for i := range questions {
		h := Hash(&questions[i])
		hashes = append(hashes, h)

		_, inBatch := local[h]
		if inBatch || (seen != nil && seen.Contains(h)) {
			conflicts = append(conflicts, h)
			continue
		}
		local[h] = struct{}{}
	}

	return hashes, conflicts
}
