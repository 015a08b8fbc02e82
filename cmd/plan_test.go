package cmd

import (
	"path/filepath"
	"testing"

	"github.com/lexlabs/qgen/internal/manifest"
	"github.com/lexlabs/qgen/internal/planner"
	"github.com/lexlabs/qgen/internal/question"
)

func planFixture(seq int) planner.BatchSpec {
	return planner.BatchSpec{
		BatchID:     planner.BatchID("japanese", question.LevelN5, question.TypeMCQ, seq),
		Language:    "japanese",
		Level:       question.LevelN5,
		Type:        question.TypeMCQ,
		TargetSkill: question.SkillVocabulary,
		Topic:       "daily routines",
	}
}

func TestPlanRows(t *testing.T) {
	man, err := manifest.Load(filepath.Join(t.TempDir(), manifest.FileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	batches := []planner.BatchSpec{planFixture(1), planFixture(2), planFixture(3), planFixture(4)}

	if err := man.MarkGenerated(batches[0].BatchID, "japanese-n5-mcq-0001.json", 5); err != nil {
		t.Fatalf("MarkGenerated() error = %v", err)
	}
	if err := man.MarkValidated(batches[0].BatchID); err != nil {
		t.Fatalf("MarkValidated() error = %v", err)
	}
	if err := man.MarkGenerated(batches[1].BatchID, "japanese-n5-mcq-0002.json", 5); err != nil {
		t.Fatalf("MarkGenerated() error = %v", err)
	}
	if err := man.MarkFailed(batches[2].BatchID, "engine timed out"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	rows, stats := planRows(batches, man)

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	wantStatus := []string{"validated", "generated", "failed", "-"}
	for i, want := range wantStatus {
		if got := rows[i][5]; got != want {
			t.Errorf("rows[%d] status = %q, want %q", i, got, want)
		}
	}
	if stats.complete != 2 || stats.failed != 1 || stats.fresh != 1 {
		t.Errorf("stats = (%d complete, %d failed, %d fresh), want (2, 1, 1)", stats.complete, stats.failed, stats.fresh)
	}

	first := rows[0]
	want := []string{"japanese-n5-mcq-0001", "N5", "mcq", "vocabulary", "daily routines", "validated"}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("rows[0][%d] = %q, want %q", i, first[i], want[i])
		}
	}
}
