package question

// Type identifies the kind of exercise a question is.
type Type string

const (
	TypeMCQ           Type = "mcq"
	TypeFillBlank     Type = "fill_blank"
	TypeTranslation   Type = "translation"
	TypeProduction    Type = "production"
	TypeComprehension Type = "comprehension"
	TypeListening     Type = "listening"
	TypeDictation     Type = "dictation"
)

// Skill identifies the ability a question targets.
type Skill string

const (
	SkillVocabulary Skill = "vocabulary"
	SkillGrammar    Skill = "grammar"
	SkillReading    Skill = "reading"
	SkillListening  Skill = "listening"
	SkillWriting    Skill = "writing"
	SkillSpeaking   Skill = "speaking"
)

// Level is a difficulty level on one of the supported ladders
// (CEFR for European languages, JLPT for Japanese).
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
	LevelN5 Level = "N5"
	LevelN4 Level = "N4"
	LevelN3 Level = "N3"
	LevelN2 Level = "N2"
	LevelN1 Level = "N1"
)

var validTypes = map[Type]bool{
	TypeMCQ:           true,
	TypeFillBlank:     true,
	TypeTranslation:   true,
	TypeProduction:    true,
	TypeComprehension: true,
	TypeListening:     true,
	TypeDictation:     true,
}

var validSkills = map[Skill]bool{
	SkillVocabulary: true,
	SkillGrammar:    true,
	SkillReading:    true,
	SkillListening:  true,
	SkillWriting:    true,
	SkillSpeaking:   true,
}

var validLevels = map[Level]bool{
	LevelA1: true, LevelA2: true, LevelB1: true, LevelB2: true, LevelC1: true, LevelC2: true,
	LevelN5: true, LevelN4: true, LevelN3: true, LevelN2: true, LevelN1: true,
}

// choiceTypes are the question kinds answered by picking one of the
// presented options.
var choiceTypes = map[Type]bool{
	TypeMCQ:           true,
	TypeComprehension: true,
	TypeListening:     true,
}

// translationTypes are the question kinds that require the learner to
// render meaning across languages, so at least one translation must be
// present.
var translationTypes = map[Type]bool{
	TypeTranslation: true,
	TypeProduction:  true,
}

// passageTypes are the question kinds that hang off a supporting text
// (read or heard), so the passage must be present.
var passageTypes = map[Type]bool{
	TypeComprehension: true,
	TypeListening:     true,
	TypeDictation:     true,
}

// Valid reports whether t is a known question type.
func (t Type) Valid() bool { return validTypes[t] }

// IsChoice reports whether questions of this type carry an option list.
func (t Type) IsChoice() bool { return choiceTypes[t] }

// NeedsTranslation reports whether questions of this type must carry at
// least one translation.
func (t Type) NeedsTranslation() bool { return translationTypes[t] }

// NeedsPassage reports whether questions of this type must carry a passage.
func (t Type) NeedsPassage() bool { return passageTypes[t] }

// Valid reports whether s is a known target skill.
func (s Skill) Valid() bool { return validSkills[s] }

// Valid reports whether l is a known difficulty level.
func (l Level) Valid() bool { return validLevels[l] }

// Types returns all known question types in a fixed order.
func Types() []Type {
	return []Type{TypeMCQ, TypeFillBlank, TypeTranslation, TypeProduction, TypeComprehension, TypeListening, TypeDictation}
}

// Skills returns all known target skills in a fixed order.
func Skills() []Skill {
	return []Skill{SkillVocabulary, SkillGrammar, SkillReading, SkillListening, SkillWriting, SkillSpeaking}
}

// Levels returns all known difficulty levels in ladder order.
func Levels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2, LevelN5, LevelN4, LevelN3, LevelN2, LevelN1}
}

// BlankMarker is the literal placeholder learners fill in for
// fill_blank questions.
const BlankMarker = "___"

// Question is one generated practice question as returned by the model
// and persisted in batch artifacts.
type Question struct {
	Type               Type                `json:"type"`
	TargetSkill        Skill               `json:"targetSkill"`
	Difficulty         Level               `json:"difficulty"`
	Question           string              `json:"question"`
	PassageText        string              `json:"passageText,omitempty"`
	Translations       map[string]string   `json:"translations,omitempty"`
	OptionTranslations map[string][]string `json:"optionTranslations,omitempty"`
	Options            []string            `json:"options,omitempty"`
	CorrectAnswer      string              `json:"correctAnswer"`
	AcceptableAnswers  []string            `json:"acceptableAnswers,omitempty"`
	Points             int                 `json:"points"`
	GrammarTags        []string            `json:"grammarTags"`
	VocabularyTags     []string            `json:"vocabularyTags"`
	TopicTags          []string            `json:"topicTags"`
}
