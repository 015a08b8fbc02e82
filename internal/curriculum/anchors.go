package curriculum

import "github.com/lexlabs/qgen/internal/question"

// Anchor pins a difficulty level to concrete guidance the prompt hands
// the model: what the level means, which grammar is in scope, how
// ambitious the vocabulary may be, how long sentences should run.
type Anchor struct {
	Description    string
	Grammar        string
	VocabHint      string
	SentenceLength string
}

var anchors = map[question.Level]Anchor{
	question.LevelA1: {
		Description:    "beginner",
		Grammar:        "simple present, basic articles, simple questions",
		VocabHint:      "very common words only",
		SentenceLength: "very short (5-8 words)",
	},
	question.LevelA2: {
		Description:    "elementary",
		Grammar:        "past simple, comparatives, basic modals (can, must)",
		VocabHint:      "everyday vocabulary, common phrasal expressions",
		SentenceLength: "short (8-12 words)",
	},
	question.LevelB1: {
		Description:    "intermediate",
		Grammar:        "present perfect, conditionals, passive voice",
		VocabHint:      "broader vocabulary including some abstract concepts",
		SentenceLength: "medium (10-18 words)",
	},
	question.LevelB2: {
		Description:    "upper intermediate",
		Grammar:        "all conditionals, reported speech, complex clauses",
		VocabHint:      "idiomatic expressions, formal and informal registers",
		SentenceLength: "medium to long (15-25 words)",
	},
	question.LevelC1: {
		Description:    "advanced",
		Grammar:        "inversion, cleft sentences, nuanced modality",
		VocabHint:      "sophisticated vocabulary, collocations, nuance",
		SentenceLength: "can be complex (20+ words)",
	},
	question.LevelC2: {
		Description:    "mastery",
		Grammar:        "full native-like range, literary structures",
		VocabHint:      "precise, idiomatic, register-aware word choice",
		SentenceLength: "natural native-length sentences",
	},
	question.LevelN5: {
		Description:    "absolute beginner",
		Grammar:        "basic です/ます forms, simple particles (は、が、を、に、で), present/past tense",
		VocabHint:      "use only common everyday words",
		SentenceLength: "short (5-10 words)",
	},
	question.LevelN4: {
		Description:    "elementary",
		Grammar:        "て-form, たい form, potential form, basic conditionals",
		VocabHint:      "everyday vocabulary with some compound words",
		SentenceLength: "short to medium (8-15 words)",
	},
	question.LevelN3: {
		Description:    "intermediate",
		Grammar:        "passive, causative, various conditionals, より comparisons",
		VocabHint:      "broader vocabulary including some abstract concepts",
		SentenceLength: "medium (10-20 words)",
	},
	question.LevelN2: {
		Description:    "upper intermediate",
		Grammar:        "complex grammar patterns, formal expressions, ようにする/ことにする",
		VocabHint:      "formal and informal registers, idiomatic expressions",
		SentenceLength: "medium to long (15-25 words)",
	},
	question.LevelN1: {
		Description:    "advanced",
		Grammar:        "literary forms, classical grammar, nuanced expressions",
		VocabHint:      "sophisticated vocabulary, proverbs, literary expressions",
		SentenceLength: "can be complex (20+ words)",
	},
}

// AnchorFor returns the difficulty anchor for a level, falling back to
// the beginner anchor for anything unrecognized.
func AnchorFor(l question.Level) Anchor {
	if a, ok := anchors[l]; ok {
		return a
	}
	return anchors[question.LevelA1]
}
