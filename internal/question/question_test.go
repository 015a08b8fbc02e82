package question

import "testing"

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		typ              Type
		valid            bool
		choice           bool
		needsTranslation bool
		needsPassage     bool
	}{
		{TypeMCQ, true, true, false, false},
		{TypeFillBlank, true, false, false, false},
		{TypeTranslation, true, false, true, false},
		{TypeProduction, true, false, true, false},
		{TypeComprehension, true, true, false, true},
		{TypeListening, true, true, false, true},
		{TypeDictation, true, false, false, true},
		{Type("essay"), false, false, false, false},
		{Type(""), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.typ.IsChoice(); got != tt.choice {
				t.Errorf("IsChoice() = %v, want %v", got, tt.choice)
			}
			if got := tt.typ.NeedsTranslation(); got != tt.needsTranslation {
				t.Errorf("NeedsTranslation() = %v, want %v", got, tt.needsTranslation)
			}
			if got := tt.typ.NeedsPassage(); got != tt.needsPassage {
				t.Errorf("NeedsPassage() = %v, want %v", got, tt.needsPassage)
			}
		})
	}
}

func TestEnumerations(t *testing.T) {
	for _, typ := range Types() {
		if !typ.Valid() {
			t.Errorf("Types() includes invalid type %q", typ)
		}
	}
	for _, s := range Skills() {
		if !s.Valid() {
			t.Errorf("Skills() includes invalid skill %q", s)
		}
	}
	for _, l := range Levels() {
		if !l.Valid() {
			t.Errorf("Levels() includes invalid level %q", l)
		}
	}

	if len(Types()) != 7 || len(Skills()) != 6 || len(Levels()) != 11 {
		t.Errorf("enum sizes = (%d, %d, %d), want (7, 6, 11)", len(Types()), len(Skills()), len(Levels()))
	}
}

func TestLevelLadderOrder(t *testing.T) {
	levels := Levels()
	if levels[0] != LevelA1 || levels[5] != LevelC2 {
		t.Errorf("CEFR ladder out of order: %v", levels[:6])
	}
	// JLPT counts down: N5 is the easiest, N1 the hardest.
	if levels[6] != LevelN5 || levels[10] != LevelN1 {
		t.Errorf("JLPT ladder out of order: %v", levels[6:])
	}
}

func TestSkillAndLevelValid(t *testing.T) {
	if Skill("telepathy").Valid() {
		t.Error("unknown skill reported valid")
	}
	if Level("N6").Valid() {
		t.Error("unknown level reported valid")
	}
	if !LevelB1.Valid() || !SkillGrammar.Valid() {
		t.Error("known members reported invalid")
	}
}
