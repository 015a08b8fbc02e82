package validate

import (
	"strings"
	"testing"

	"github.com/lexlabs/qgen/internal/dedup"
	"github.com/lexlabs/qgen/internal/question"
)

func validMCQ() question.Question {
	return question.Question{
		Type:           question.TypeMCQ,
		TargetSkill:    question.SkillVocabulary,
		Difficulty:     question.LevelN5,
		Question:       "What does 水 mean?",
		Translations:   map[string]string{"en": "What does 水 mean?"},
		Options:        []string{"water", "fire", "tree", "stone"},
		CorrectAnswer:  "water",
		Points:         1,
		GrammarTags:    []string{"noun"},
		VocabularyTags: []string{"水"},
		TopicTags:      []string{"nature"},
	}
}

func hasIssue(issues []Issue, field, substr string) bool {
	for _, iss := range issues {
		if iss.Field == field && strings.Contains(iss.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateBatch_CleanBatch(t *testing.T) {
	v := New([]string{"en"})
	res := v.ValidateBatch([]question.Question{validMCQ()}, Expected{Type: question.TypeMCQ, Level: question.LevelN5}, dedup.NewSet())

	if !res.Valid {
		t.Fatalf("Valid = false, errors = %v", res.Errors)
	}
	if res.QuestionCount != 1 {
		t.Errorf("QuestionCount = %d, want 1", res.QuestionCount)
	}
	if len(res.Hashes) != 1 {
		t.Errorf("Hashes = %d, want one per question", len(res.Hashes))
	}
}

func TestValidateBatch_EmptyBatch(t *testing.T) {
	v := New([]string{"en"})
	res := v.ValidateBatch(nil, Expected{}, dedup.NewSet())

	if res.Valid {
		t.Error("Valid = true for an empty batch")
	}
	if len(res.Errors) != 1 || res.Errors[0].QuestionIndex != -1 {
		t.Errorf("Errors = %v, want one batch-level issue", res.Errors)
	}
}

func TestValidateBatch_Rules(t *testing.T) {
	exp := Expected{Type: question.TypeMCQ, Level: question.LevelN5}

	tests := []struct {
		name        string
		mutate      func(q *question.Question)
		exp         Expected
		wantField   string
		wantMessage string
	}{
		{
			name:        "unknown type",
			mutate:      func(q *question.Question) { q.Type = "essay" },
			exp:         Expected{},
			wantField:   "type",
			wantMessage: "unknown question type",
		},
		{
			name:        "unknown skill",
			mutate:      func(q *question.Question) { q.TargetSkill = "telepathy" },
			exp:         exp,
			wantField:   "targetSkill",
			wantMessage: "unknown target skill",
		},
		{
			name:        "unknown difficulty",
			mutate:      func(q *question.Question) { q.Difficulty = "N6" },
			exp:         Expected{Type: question.TypeMCQ},
			wantField:   "difficulty",
			wantMessage: "unknown difficulty",
		},
		{
			name:        "blank question text",
			mutate:      func(q *question.Question) { q.Question = "   " },
			exp:         exp,
			wantField:   "question",
			wantMessage: "must not be empty",
		},
		{
			name:        "blank correct answer",
			mutate:      func(q *question.Question) { q.CorrectAnswer = "" },
			exp:         exp,
			wantField:   "correctAnswer",
			wantMessage: "must not be empty",
		},
		{
			name:        "zero points",
			mutate:      func(q *question.Question) { q.Points = 0 },
			exp:         exp,
			wantField:   "points",
			wantMessage: "positive",
		},
		{
			name:        "type differs from the batch",
			mutate:      func(q *question.Question) {},
			exp:         Expected{Type: question.TypeFillBlank, Level: question.LevelN5},
			wantField:   "type",
			wantMessage: "batch expects type fill_blank",
		},
		{
			name:        "level differs from the batch",
			mutate:      func(q *question.Question) {},
			exp:         Expected{Type: question.TypeMCQ, Level: question.LevelN4},
			wantField:   "difficulty",
			wantMessage: "batch expects level N4",
		},
		{
			name:        "wrong option count",
			mutate:      func(q *question.Question) { q.Options = q.Options[:3]; q.CorrectAnswer = q.Options[0] },
			exp:         exp,
			wantField:   "options",
			wantMessage: "mcq questions must have exactly 4 options",
		},
		{
			name: "option count issue names the violating type",
			mutate: func(q *question.Question) {
				q.Type = question.TypeComprehension
				q.PassageText = "犬が公園で遊んでいます。"
				q.Options = q.Options[:3]
				q.CorrectAnswer = q.Options[0]
			},
			exp:         Expected{Type: question.TypeComprehension, Level: question.LevelN5},
			wantField:   "options",
			wantMessage: "comprehension questions must have exactly 4 options",
		},
		{
			name:        "duplicate options",
			mutate:      func(q *question.Question) { q.Options = []string{"water", "water", "tree", "stone"} },
			exp:         exp,
			wantField:   "options",
			wantMessage: "unique",
		},
		{
			name:        "answer missing from the options",
			mutate:      func(q *question.Question) { q.CorrectAnswer = "ice" },
			exp:         exp,
			wantField:   "correctAnswer",
			wantMessage: "must appear in the options",
		},
		{
			name: "fill_blank without marker",
			mutate: func(q *question.Question) {
				q.Type = question.TypeFillBlank
				q.Options = nil
				q.Question = "Complete the sentence"
			},
			exp:         Expected{Type: question.TypeFillBlank, Level: question.LevelN5},
			wantField:   "question",
			wantMessage: "___",
		},
		{
			name: "translation type without translations",
			mutate: func(q *question.Question) {
				q.Type = question.TypeTranslation
				q.Options = nil
				q.Translations = map[string]string{"en": "  "}
			},
			exp:         Expected{Type: question.TypeTranslation, Level: question.LevelN5},
			wantField:   "translations",
			wantMessage: "at least one non-empty translation",
		},
		{
			name: "passage type without passage",
			mutate: func(q *question.Question) {
				q.Type = question.TypeComprehension
			},
			exp:         Expected{Type: question.TypeComprehension, Level: question.LevelN5},
			wantField:   "passageText",
			wantMessage: "require a passage",
		},
		{
			name:        "missing translations map",
			mutate:      func(q *question.Question) { q.Translations = nil },
			exp:         exp,
			wantField:   "translations",
			wantMessage: "missing",
		},
		{
			name: "partial option translations",
			mutate: func(q *question.Question) {
				q.OptionTranslations = map[string][]string{"es": {"agua", "fuego", "árbol", "piedra"}}
			},
			exp:         exp,
			wantField:   "optionTranslations",
			wantMessage: "missing en option translations",
		},
		{
			name:        "empty grammar tags",
			mutate:      func(q *question.Question) { q.GrammarTags = nil },
			exp:         exp,
			wantField:   "grammarTags",
			wantMessage: "must not be empty",
		},
		{
			name:        "empty vocabulary tags",
			mutate:      func(q *question.Question) { q.VocabularyTags = nil },
			exp:         exp,
			wantField:   "vocabularyTags",
			wantMessage: "must not be empty",
		},
		{
			name:        "empty topic tags",
			mutate:      func(q *question.Question) { q.TopicTags = nil },
			exp:         exp,
			wantField:   "topicTags",
			wantMessage: "must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New([]string{"en"})
			q := validMCQ()
			tt.mutate(&q)

			res := v.ValidateBatch([]question.Question{q}, tt.exp, dedup.NewSet())
			if res.Valid {
				t.Fatal("Valid = true, want validation failure")
			}
			if !hasIssue(res.Errors, tt.wantField, tt.wantMessage) {
				t.Errorf("no issue on %q containing %q, got %v", tt.wantField, tt.wantMessage, res.Errors)
			}
			for _, iss := range res.Errors {
				if iss.QuestionIndex != 0 {
					t.Errorf("QuestionIndex = %d, want 0", iss.QuestionIndex)
				}
			}
		})
	}
}

func TestValidateBatch_DuplicateOptionsSingleIssue(t *testing.T) {
	v := New([]string{"en"})
	q := validMCQ()
	q.Options = []string{"water", "water", "tree", "stone"}

	res := v.ValidateBatch([]question.Question{q}, Expected{Type: question.TypeMCQ, Level: question.LevelN5}, dedup.NewSet())
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly the uniqueness issue", res.Errors)
	}
	if res.Errors[0].Field != "options" {
		t.Errorf("Field = %q, want options", res.Errors[0].Field)
	}
}

func TestValidateBatch_FillBlankMarkerInQuestion(t *testing.T) {
	v := New([]string{"en"})
	q := validMCQ()
	q.Type = question.TypeFillBlank
	q.Options = nil
	q.Question = "水 means ___ in English."
	q.Translations = map[string]string{"en": "水 means ___ in English."}

	res := v.ValidateBatch([]question.Question{q}, Expected{Type: question.TypeFillBlank, Level: question.LevelN5}, dedup.NewSet())
	if !res.Valid {
		t.Errorf("Valid = false with the marker in the question text, errors = %v", res.Errors)
	}
}

func TestValidateBatch_UILanguageCoverage(t *testing.T) {
	v := New([]string{"en", "es"})
	q := validMCQ() // only carries an en translation

	res := v.ValidateBatch([]question.Question{q}, Expected{Type: question.TypeMCQ, Level: question.LevelN5}, dedup.NewSet())
	if res.Valid {
		t.Fatal("Valid = true with a missing UI language")
	}
	if !hasIssue(res.Errors, "translations", "missing es translation") {
		t.Errorf("errors = %v, want a missing-es issue", res.Errors)
	}
	if hasIssue(res.Errors, "translations", "missing en translation") {
		t.Error("en translation flagged missing although present")
	}
}

func TestValidateBatch_RulesDoNotShortCircuit(t *testing.T) {
	v := New([]string{"en"})
	q := validMCQ()
	q.Question = ""
	q.Points = -1
	q.GrammarTags = nil

	res := v.ValidateBatch([]question.Question{q}, Expected{Type: question.TypeMCQ, Level: question.LevelN5}, dedup.NewSet())
	if len(res.Errors) < 3 {
		t.Errorf("Errors = %v, want one issue per violated rule", res.Errors)
	}
}

func TestValidateBatch_DuplicateDetection(t *testing.T) {
	v := New([]string{"en"})
	q := validMCQ()
	seen := dedup.NewSet()
	seen.Add(dedup.Hash(&q))

	res := v.ValidateBatch([]question.Question{q}, Expected{Type: question.TypeMCQ, Level: question.LevelN5}, seen)
	if res.Valid {
		t.Error("Valid = true for a known-content question")
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want duplicates kept out of the rule errors", res.Errors)
	}
	if len(res.HashConflicts) != 1 {
		t.Errorf("HashConflicts = %v, want one", res.HashConflicts)
	}
}
