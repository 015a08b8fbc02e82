// Package prompt turns a planned batch plus curriculum side tables
// into the single opaque prompt string handed to the model.
package prompt

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/planner"
	"github.com/lexlabs/qgen/internal/question"
)

// DefaultVocabSampleSize is how many topic words a prompt offers the
// model to build questions around.
const DefaultVocabSampleSize = 10

// maxMustTest caps how many grammar points a batch foregrounds as the
// primary test target.
const maxMustTest = 3

// Assembler renders prompts for one curriculum, caching the per-level
// grammar and vocabulary side tables as batches touch them.
type Assembler struct {
	tmpl            *Template
	spec            *curriculum.Spec
	VocabSampleSize int

	mu      sync.Mutex
	grammar map[question.Level]*curriculum.GrammarConstraints
	vocab   map[question.Level]curriculum.VocabTable
}

// NewAssembler creates an assembler for a template and curriculum.
func NewAssembler(tmpl *Template, spec *curriculum.Spec) *Assembler {
	return &Assembler{
		tmpl:            tmpl,
		spec:            spec,
		VocabSampleSize: DefaultVocabSampleSize,
		grammar:         make(map[question.Level]*curriculum.GrammarConstraints),
		vocab:           make(map[question.Level]curriculum.VocabTable),
	}
}

// Preload loads the side tables for every level up front so file
// problems abort the run before any batch is dispatched.
func (a *Assembler) Preload(levels []question.Level) error {
	for _, lvl := range levels {
		if _, err := a.grammarFor(lvl); err != nil {
			return err
		}
		if _, err := a.vocabFor(lvl); err != nil {
			return err
		}
	}
	return nil
}

// Assemble renders the prompt for one batch.
//
// Grammar must-test selection is deterministic per batch id, so a
// retried batch foregrounds the same grammar points. Vocabulary
// sampling is deliberately unseeded: retries of the same batch are
// expected to produce legitimately different content.
func (a *Assembler) Assemble(batch planner.BatchSpec) (string, error) {
	grammar, err := a.grammarFor(batch.Level)
	if err != nil {
		return "", err
	}
	vocab, err := a.vocabFor(batch.Level)
	if err != nil {
		return "", err
	}

	mustTest := rotateMustTest(grammar.Allowed, batch.BatchID)
	sample := sampleVocab(vocab[batch.Topic], a.VocabSampleSize)
	anchor := curriculum.AnchorFor(batch.Level)

	values := map[string]string{
		"language":         a.spec.Language,
		"languageName":     a.spec.Name,
		"level":            string(batch.Level),
		"levelLabel":       batch.LevelLabel,
		"questionType":     string(batch.Type),
		"targetSkill":      string(batch.TargetSkill),
		"topic":            batch.Topic,
		"learningGoal":     batch.LearningGoal,
		"grammarPoints":    formatMustTest(mustTest),
		"vocabSample":      strings.Join(sample, ", "),
		"difficultyAnchor": formatAnchor(anchor),
		"distractorRules":  distractorRules[batch.Type],
		"grammarAllowed":   formatPatterns(grammar.Allowed),
		"grammarForbidden": formatPatterns(grammar.Forbidden),
		"goalDirective":    goalDirective(batch.LearningGoal),
		"culturalContext":  a.spec.CulturalContext,
	}

	return a.tmpl.Render(values), nil
}

func (a *Assembler) grammarFor(lvl question.Level) (*curriculum.GrammarConstraints, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gc, ok := a.grammar[lvl]; ok {
		return gc, nil
	}
	gc, err := curriculum.LoadGrammar(a.spec.GrammarPath(lvl))
	if err != nil {
		return nil, err
	}
	a.grammar[lvl] = gc
	return gc, nil
}

func (a *Assembler) vocabFor(lvl question.Level) (curriculum.VocabTable, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if vt, ok := a.vocab[lvl]; ok {
		return vt, nil
	}
	vt, err := curriculum.LoadVocab(a.spec.VocabPath(lvl))
	if err != nil {
		return nil, err
	}
	a.vocab[lvl] = vt
	return vt, nil
}

// rotateMustTest picks up to maxMustTest consecutive allowed grammar
// entries, starting at an offset derived from the batch id's trailing
// digits. Across many batches at one level, every grammar point gets a
// turn as the primary target instead of the first three hogging it.
func rotateMustTest(allowed []curriculum.GrammarEntry, batchID string) []curriculum.GrammarEntry {
	if len(allowed) == 0 {
		return nil
	}
	count := maxMustTest
	if count > len(allowed) {
		count = len(allowed)
	}
	span := len(allowed) - count + 1
	if span < 1 {
		span = 1
	}
	start := trailingSeq(batchID) % span
	return allowed[start : start+count]
}

// trailingSeq parses the last four digits of a batch id. Malformed ids
// rotate from zero rather than failing the batch.
func trailingSeq(batchID string) int {
	i := len(batchID)
	for i > 0 && batchID[i-1] >= '0' && batchID[i-1] <= '9' {
		i--
	}
	digits := batchID[i:]
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// sampleVocab returns the whole pool when it fits, otherwise an
// unseeded shuffle prefix.
func sampleVocab(words []string, size int) []string {
	if len(words) <= size {
		return append([]string(nil), words...)
	}
	shuffled := append([]string(nil), words...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:size]
}

func formatMustTest(entries []curriculum.GrammarEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", e.Pattern, e.Description)
		if e.Example != "" {
			fmt.Fprintf(&b, " (e.g. %s)", e.Example)
		}
	}
	return b.String()
}

func formatPatterns(entries []curriculum.GrammarEntry) string {
	if len(entries) == 0 {
		return ""
	}
	patterns := make([]string, len(entries))
	for i, e := range entries {
		patterns[i] = e.Pattern
	}
	return strings.Join(patterns, ", ")
}

func formatAnchor(a curriculum.Anchor) string {
	return fmt.Sprintf("Difficulty: %s. Grammar in scope: %s. Vocabulary: %s. Sentence length: %s.",
		a.Description, a.Grammar, a.VocabHint, a.SentenceLength)
}

func goalDirective(goal string) string {
	if goal == "" {
		return ""
	}
	return fmt.Sprintf("Every question should help the learner make progress on: %s.", goal)
}

// distractorRules tells the model how to build wrong options for the
// choice-based question types. Free-response types have no entry.
var distractorRules = map[question.Type]string{
	question.TypeMCQ: "Wrong options must be the same word class and register as the correct answer, " +
		"plausible at this level, and clearly incorrect in meaning. Never make an option partially correct.",
	question.TypeComprehension: "Wrong options must reference details that appear in the passage but do not " +
		"answer the question. Avoid options that are obviously absurd.",
	question.TypeListening: "Wrong options should be phonetically or thematically close to the correct answer " +
		"so the learner must actually parse the passage.",
}
