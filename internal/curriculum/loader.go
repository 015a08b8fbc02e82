package curriculum

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"github.com/lexlabs/qgen/internal/question"
)

// Load reads the curriculum spec for a language from
// <baseDir>/curricula/<language>.yaml, applies defaults, and validates
// it. Curriculum problems are fatal: nothing should be generated
// against a half-formed spec.
func Load(baseDir, language string) (*Spec, error) {
	path := filepath.Join(baseDir, "curricula", language+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum: %w", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum %s: %w", path, err)
	}

	spec.dir = baseDir
	spec.applyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid curriculum %s: %w", path, err)
	}

	return &spec, nil
}

// applyDefaults fills in the optional fields a minimal spec may omit.
func (s *Spec) applyDefaults() {
	if s.Name == "" {
		s.Name = languageName(s.Language)
	}
	if len(s.TranslationTargets) == 0 {
		s.TranslationTargets = append([]string(nil), DefaultTranslationTargets...)
	}
	if s.GrammarFile == "" {
		s.GrammarFile = defaultGrammarPattern
	}
	if s.VocabFile == "" {
		s.VocabFile = defaultVocabPattern
	}
}

// languageName derives an English display name from a language code,
// so curricula named "ja" or "pt-BR" read as "Japanese" or "Brazilian
// Portuguese" in prompts. Codes the tag parser rejects fall back to a
// title-cased copy of the raw code.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return cases.Title(language.English).String(code)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return cases.Title(language.English).String(code)
}

// Validate checks the curriculum against the closed type/skill/level sets.
func (s *Spec) Validate() error {
	if s.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	if len(s.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}
	for i, lvl := range s.Levels {
		if !lvl.Level.Valid() {
			return fmt.Errorf("levels[%d]: unknown level %q", i, lvl.Level)
		}
		if lvl.Target <= 0 {
			return fmt.Errorf("levels[%d] (%s): target must be positive", i, lvl.Level)
		}
	}
	if len(s.TypeWeights) == 0 {
		return fmt.Errorf("typeWeights must not be empty")
	}
	var sum float64
	for qt, w := range s.TypeWeights {
		if !qt.Valid() {
			return fmt.Errorf("typeWeights: unknown question type %q", qt)
		}
		if w < 0 {
			return fmt.Errorf("typeWeights[%s]: weight must not be negative", qt)
		}
		sum += w
		if _, ok := s.SkillMap[qt]; !ok {
			return fmt.Errorf("skillMap: missing entry for weighted type %q", qt)
		}
	}
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("typeWeights must sum to 1.0 (got %.3f)", sum)
	}
	for qt, skill := range s.SkillMap {
		if !qt.Valid() {
			return fmt.Errorf("skillMap: unknown question type %q", qt)
		}
		if !skill.Valid() {
			return fmt.Errorf("skillMap[%s]: unknown skill %q", qt, skill)
		}
	}
	if len(s.Topics) == 0 {
		return fmt.Errorf("topics must not be empty")
	}
	if len(s.LearningGoals) == 0 {
		return fmt.Errorf("learningGoals must not be empty")
	}
	for i, target := range s.TranslationTargets {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("translationTargets[%d] must not be empty", i)
		}
	}
	return nil
}

// LevelKey normalizes a level for use in file paths and batch ids.
func LevelKey(l question.Level) string {
	return strings.ToLower(string(l))
}

// GrammarPath returns the grammar-constraints file path for a level.
func (s *Spec) GrammarPath(level question.Level) string {
	return s.resolvePattern(s.GrammarFile, level)
}

// VocabPath returns the vocabulary-table file path for a level.
func (s *Spec) VocabPath(level question.Level) string {
	return s.resolvePattern(s.VocabFile, level)
}

func (s *Spec) resolvePattern(pattern string, level question.Level) string {
	expanded := strings.ReplaceAll(pattern, "{language}", s.Language)
	expanded = strings.ReplaceAll(expanded, "{level}", LevelKey(level))
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(s.dir, expanded)
}

// LoadGrammar reads a grammar-constraints file. A missing file is not
// an error: levels without authored constraints just generate without
// must-test rotation.
func LoadGrammar(path string) (*GrammarConstraints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GrammarConstraints{}, nil
		}
		return nil, fmt.Errorf("failed to read grammar constraints: %w", err)
	}

	var gc GrammarConstraints
	if err := yaml.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("failed to parse grammar constraints %s: %w", path, err)
	}
	return &gc, nil
}

// LoadVocab reads a vocabulary-by-topic table. A missing file yields an
// empty table.
func LoadVocab(path string) (VocabTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return VocabTable{}, nil
		}
		return nil, fmt.Errorf("failed to read vocabulary table: %w", err)
	}

	var vt VocabTable
	if err := yaml.Unmarshal(data, &vt); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary table %s: %w", path, err)
	}
	if vt == nil {
		vt = VocabTable{}
	}
	return vt, nil
}
