// Package export loads persisted batch artifacts and feeds them to a
// question-bank database or a reviewer spreadsheet.
package export

import (
	"github.com/lexlabs/qgen/internal/artifact"
	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/question"
)

// Row is one exportable question together with its batch provenance.
type Row struct {
	Hash     string
	BatchID  string
	Language string
	Level    question.Level
	Topic    string
	Question question.Question
}

// Options narrow the artifact scan.
type Options struct {
	Language string
	Level    question.Level // zero value scans every level
	All      bool           // include batches that did not pass validation
}

// Result holds the collected rows and the collection counts.
type Result struct {
	Rows       []Row
	Batches    int // artifacts that contributed rows
	Skipped    int // artifacts excluded because validation did not pass
	Duplicates int // questions dropped as repeats of an earlier row
}

// Collect flattens a language's artifacts into export rows.
//
// Only batches that passed validation contribute unless opts.All is
// set. When the same content hash appears more than once across the
// scanned artifacts, the first occurrence wins and later copies are
// counted in Duplicates. Artifacts are scanned in path order, so the
// output is deterministic for a given output tree.
func Collect(store *artifact.Store, opts Options) (*Result, error) {
	var levelKey string
	if opts.Level != "" {
		levelKey = curriculum.LevelKey(opts.Level)
	}
	paths, err := store.List(opts.Language, levelKey)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	seen := dedup.NewSet()
	for _, path := range paths {
		bf, err := artifact.Read(path)
		if err != nil {
			return nil, err
		}
		if !bf.Validation.Valid && !opts.All {
			res.Skipped++
			continue
		}
		res.Batches++
		for i := range bf.Questions {
			h := dedup.Hash(&bf.Questions[i])
			if !seen.Add(h) {
				res.Duplicates++
				continue
			}
			res.Rows = append(res.Rows, Row{
				Hash:     h,
				BatchID:  bf.BatchID,
				Language: bf.Language,
				Level:    bf.Level,
				Topic:    bf.Topic,
				Question: bf.Questions[i],
			})
		}
	}
	return res, nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
