// Package assets holds the embedded defaults qgen init scaffolds into
// a fresh .qgen/ directory.
package assets

import (
	_ "embed"
	"path/filepath"
)

//go:embed prompt.md
var DefaultPrompt string

//go:embed config.yaml
var DefaultConfig string

//go:embed questions.schema.json
var DefaultSchema string

//go:embed curriculum.yaml
var DefaultCurriculum string

//go:embed grammar.yaml
var DefaultGrammar string

//go:embed vocab.yaml
var DefaultVocab string

// QgenDir is the name of the qgen configuration directory.
const QgenDir = ".qgen"

// File and directory names under .qgen/, used consistently across the
// codebase.
const (
	ConfigFile   = "config.yaml"
	PromptFile   = "prompt.md"
	SchemaFile   = "questions.schema.json"
	CurriculaDir = "curricula"
	GrammarDir   = "grammar"
	VocabDir     = "vocab"
	ArchiveDir   = "archive"
)

// DefaultFiles returns the scaffold qgen init writes, keyed by path
// relative to .qgen/. The starter curriculum covers Japanese N5 so a
// fresh install can generate immediately.
func DefaultFiles() map[string]string {
	return map[string]string{
		ConfigFile: DefaultConfig,
		PromptFile: DefaultPrompt,
		SchemaFile: DefaultSchema,
		filepath.Join(CurriculaDir, "japanese.yaml"):     DefaultCurriculum,
		filepath.Join(GrammarDir, "japanese", "n5.yaml"): DefaultGrammar,
		filepath.Join(VocabDir, "japanese", "n5.yaml"):   DefaultVocab,
	}
}
