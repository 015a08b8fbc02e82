package engine

import (
	"fmt"
	"sort"
	"strings"
)

// engineConstructors maps engine names to their constructors.
// Engines register themselves via RegisterEngine.
var engineConstructors = make(map[string]func(Config) Engine)

// RegisterEngine registers an engine constructor by name.
func RegisterEngine(name string, constructor func(Config) Engine) {
	engineConstructors[strings.ToLower(name)] = constructor
}

// New creates an engine by name with default settings.
func New(name string) (Engine, error) {
	return NewWithConfig(name, Config{})
}

// NewWithConfig creates an engine by name with explicit settings.
func NewWithConfig(name string, cfg Config) (Engine, error) {
	constructor, ok := engineConstructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s (supported: %s)", name, strings.Join(Available(), ", "))
	}
	return constructor(cfg), nil
}

// Available returns the registered engine names, sorted.
func Available() []string {
	names := make([]string, 0, len(engineConstructors))
	for name := range engineConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
