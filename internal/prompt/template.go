package prompt

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// knownPlaceholders is the closed set of tokens a generation template
// may use. Anything else in braces is a configuration error surfaced
// at load time, long before the first batch is dispatched.
var knownPlaceholders = map[string]bool{
	"language":         true,
	"languageName":     true,
	"level":            true,
	"levelLabel":       true,
	"questionType":     true,
	"targetSkill":      true,
	"topic":            true,
	"learningGoal":     true,
	"grammarPoints":    true,
	"vocabSample":      true,
	"difficultyAnchor": true,
	"distractorRules":  true,
	"grammarAllowed":   true,
	"grammarForbidden": true,
	"goalDirective":    true,
	"culturalContext":  true,
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// Template is a parsed generation prompt template.
type Template struct {
	text         string
	placeholders []string
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	tmpl, err := ParseTemplate(string(data))
	if err != nil {
		return nil, fmt.Errorf("prompt template %s: %w", path, err)
	}
	return tmpl, nil
}

// ParseTemplate validates template text against the closed placeholder
// set and records which placeholders it actually uses.
func ParseTemplate(text string) (*Template, error) {
	seen := make(map[string]bool)
	var placeholders []string

	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !knownPlaceholders[name] {
			return nil, fmt.Errorf("unknown placeholder {%s}", name)
		}
		if !seen[name] {
			seen[name] = true
			placeholders = append(placeholders, name)
		}
	}

	return &Template{text: text, placeholders: placeholders}, nil
}

// Placeholders returns the placeholders the template uses, in first
// appearance order.
func (t *Template) Placeholders() []string {
	return append([]string(nil), t.placeholders...)
}

// Render substitutes every placeholder with its value by literal
// find/replace. Placeholders with no data render as empty text; a raw
// token never survives into the output.
func (t *Template) Render(values map[string]string) string {
	out := t.text
	for _, name := range t.placeholders {
		out = strings.ReplaceAll(out, "{"+name+"}", values[name])
	}
	return out
}
