// Package validate checks the structural and semantic correctness of
// generated question batches.
package validate

import (
	"fmt"
	"strings"

	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/question"
)

// Issue pinpoints one rule violation. QuestionIndex is -1 for
// batch-level problems.
type Issue struct {
	QuestionIndex int    `json:"questionIndex"`
	Field         string `json:"field"`
	Message       string `json:"message"`
}

// Result is the outcome of validating one batch.
type Result struct {
	Valid         bool     `json:"valid"`
	Errors        []Issue  `json:"errors"`
	QuestionCount int      `json:"questionCount"`
	HashConflicts []string `json:"hashConflicts"`

	// Hashes are the content hashes of every question in batch order.
	// The runner merges them into the shared set once the batch has
	// been persisted; they are not part of the serialized result.
	Hashes []string `json:"-"`
}

// Expected pins the selectors every question in a batch must match.
// Zero values disable the corresponding check.
type Expected struct {
	Type  question.Type
	Level question.Level
}

// Validator runs the per-question rule set.
type Validator struct {
	uiLanguages []string
}

// New creates a Validator that enforces translation completeness over
// the given UI languages, falling back to the default set when none
// are supplied.
func New(uiLanguages []string) *Validator {
	if len(uiLanguages) == 0 {
		uiLanguages = curriculum.DefaultTranslationTargets
	}
	return &Validator{uiLanguages: uiLanguages}
}

// ValidateBatch runs every rule against every question and folds in
// duplicate detection against the accumulated hash set.
//
// Rules never short-circuit: a single bad question reports one Issue
// per violated rule so a content author sees the full damage at once.
// The only exception is an empty batch, which returns immediately with
// a single batch-level error.
func (v *Validator) ValidateBatch(questions []question.Question, exp Expected, seen *dedup.Set) *Result {
	if len(questions) == 0 {
		return &Result{
			Valid:  false,
			Errors: []Issue{{QuestionIndex: -1, Field: "questions", Message: "batch contains no questions"}},
		}
	}

	r := &Result{QuestionCount: len(questions)}

	for i := range questions {
		r.Errors = append(r.Errors, v.checkQuestion(i, &questions[i], exp)...)
	}

	hashes, conflicts := dedup.Check(questions, seen)
	r.Hashes = hashes
	r.HashConflicts = conflicts

	r.Valid = len(r.Errors) == 0 && len(r.HashConflicts) == 0
	return r
}

// checkQuestion applies the full rule set to one question.
func (v *Validator) checkQuestion(i int, q *question.Question, exp Expected) []Issue {
	var issues []Issue
	add := func(field, message string) {
		issues = append(issues, Issue{QuestionIndex: i, Field: field, Message: message})
	}

	// Required fields against the closed sets.
	if !q.Type.Valid() {
		add("type", fmt.Sprintf("unknown question type %q", q.Type))
	}
	if !q.TargetSkill.Valid() {
		add("targetSkill", fmt.Sprintf("unknown target skill %q", q.TargetSkill))
	}
	if !q.Difficulty.Valid() {
		add("difficulty", fmt.Sprintf("unknown difficulty level %q", q.Difficulty))
	}
	if strings.TrimSpace(q.Question) == "" {
		add("question", "question text must not be empty")
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		add("correctAnswer", "correct answer must not be empty")
	}
	if q.Points <= 0 {
		add("points", "points must be a positive number")
	}

	// Batch consistency.
	if exp.Type != "" && q.Type != exp.Type {
		add("type", fmt.Sprintf("batch expects type %s, got %s", exp.Type, q.Type))
	}
	if exp.Level != "" && q.Difficulty != exp.Level {
		add("difficulty", fmt.Sprintf("batch expects level %s, got %s", exp.Level, q.Difficulty))
	}

	// Choice questions: exactly 4 distinct options containing the
	// correct answer verbatim.
	if q.Type.IsChoice() {
		if len(q.Options) != 4 {
			add("options", fmt.Sprintf("%s questions must have exactly 4 options (got %d)", q.Type, len(q.Options)))
		}
		seen := make(map[string]bool, len(q.Options))
		unique := true
		for _, opt := range q.Options {
			if seen[opt] {
				unique = false
			}
			seen[opt] = true
		}
		if !unique {
			add("options", "MCQ options must be unique")
		}
		if len(q.Options) > 0 && !seen[q.CorrectAnswer] {
			add("correctAnswer", "correct answer must appear in the options")
		}
	}

	if q.Type == question.TypeFillBlank {
		if !strings.Contains(q.Question, question.BlankMarker) && !strings.Contains(q.PassageText, question.BlankMarker) {
			add("question", fmt.Sprintf("fill_blank questions must contain the %s marker", question.BlankMarker))
		}
	}

	if q.Type.NeedsTranslation() {
		found := false
		for _, tr := range q.Translations {
			if strings.TrimSpace(tr) != "" {
				found = true
				break
			}
		}
		if !found {
			add("translations", "at least one non-empty translation is required")
		}
	}

	if q.Type.NeedsPassage() && strings.TrimSpace(q.PassageText) == "" {
		add("passageText", fmt.Sprintf("%s questions require a passage", q.Type))
	}

	// Translation completeness over the UI language set. A missing map
	// is one error, not one per language.
	if len(q.Translations) == 0 {
		add("translations", "translations map is missing")
	} else {
		for _, lang := range v.uiLanguages {
			if strings.TrimSpace(q.Translations[lang]) == "" {
				add("translations", fmt.Sprintf("missing %s translation", lang))
			}
		}
	}

	// Option translations are optional as a whole; once present they
	// must cover every UI language.
	if q.Type.IsChoice() && len(q.OptionTranslations) > 0 {
		for _, lang := range v.uiLanguages {
			if len(q.OptionTranslations[lang]) == 0 {
				add("optionTranslations", fmt.Sprintf("missing %s option translations", lang))
			}
		}
	}

	if len(q.GrammarTags) == 0 {
		add("grammarTags", "grammar tags must not be empty")
	}
	if len(q.VocabularyTags) == 0 {
		add("vocabularyTags", "vocabulary tags must not be empty")
	}
	if len(q.TopicTags) == 0 {
		add("topicTags", "topic tags must not be empty")
	}

	return issues
}
