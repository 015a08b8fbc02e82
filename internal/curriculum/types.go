package curriculum

import (
	"github.com/lexlabs/qgen/internal/question"
)

// Spec describes everything the pipeline needs to know about one
// language's curriculum: how many questions of which type per level,
// what to ask about, and where the side tables live.
type Spec struct {
	Language           string                             `yaml:"language"`
	Name               string                             `yaml:"name"`
	Levels             []LevelSpec                        `yaml:"levels"`
	TypeWeights        map[question.Type]float64          `yaml:"typeWeights"`
	SkillMap           map[question.Type]question.Skill   `yaml:"skillMap"`
	Topics             []string                           `yaml:"topics"`
	LearningGoals      []string                           `yaml:"learningGoals"`
	CulturalContext    string                             `yaml:"culturalContext"`
	TranslationTargets []string                           `yaml:"translationTargets"`
	GrammarFile        string                             `yaml:"grammarFile"`
	VocabFile          string                             `yaml:"vocabFile"`

	// dir is the base directory file patterns resolve against.
	dir string
}

// LevelSpec is one row of the curriculum's level ladder.
type LevelSpec struct {
	Level  question.Level `yaml:"level"`
	Label  string         `yaml:"label"`
	Target int            `yaml:"target"`
}

// GrammarEntry is a single grammar pattern with its gloss.
type GrammarEntry struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
	Example     string `yaml:"example,omitempty"`
}

// GrammarConstraints holds the allowed and forbidden grammar for one level.
type GrammarConstraints struct {
	Allowed   []GrammarEntry `yaml:"allowed"`
	Forbidden []GrammarEntry `yaml:"forbidden"`
}

// VocabTable maps a topic to the vocabulary pool available for it at
// one level.
type VocabTable map[string][]string

// DefaultTranslationTargets is the UI-language set questions must be
// translated into when the curriculum doesn't name its own.
var DefaultTranslationTargets = []string{"en", "es", "fr", "de"}

// Default file patterns, resolved against the config base directory.
// {language} and {level} are substituted at lookup time.
const (
	defaultGrammarPattern = "grammar/{language}/{level}.yaml"
	defaultVocabPattern   = "vocab/{language}/{level}.yaml"
)
