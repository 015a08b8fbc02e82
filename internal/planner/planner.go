// Package planner expands a curriculum spec into the ordered list of
// generation batches a run will execute.
package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/lexlabs/qgen/internal/curriculum"
	"github.com/lexlabs/qgen/internal/question"
)

// QuestionsPerBatch is the fixed number of questions requested from the
// model per batch.
const QuestionsPerBatch = 5

// BatchSpec is one unit of planned work. Immutable once planned.
type BatchSpec struct {
	BatchID      string         `json:"batchId"`
	Language     string         `json:"language"`
	Level        question.Level `json:"level"`
	LevelLabel   string         `json:"levelLabel"`
	Type         question.Type  `json:"type"`
	TargetSkill  question.Skill `json:"targetSkill"`
	Topic        string         `json:"topic"`
	LearningGoal string         `json:"learningGoal"`
}

// Filter narrows the planned matrix. Zero values mean "no filter".
type Filter struct {
	Level string // only plan this level
	Type  string // only plan this question type
	Trial int    // cap the total batch count (applied after the full matrix is built)
}

// Plan builds the batch matrix for a curriculum.
//
// For every level and every weighted question type it computes the
// per-type question target, splits it into batches of QuestionsPerBatch,
// and assigns each batch a topic and learning goal by round-robin over
// one counter that runs across the whole pass. The counter doubles as
// the batch sequence number, so ids never collide. Question types are
// visited in their canonical order to keep the output stable.
//
// A trial cap truncates the finished list so the prefix keeps the same
// round-robin assignment a full run would have had.
func Plan(spec *curriculum.Spec, f Filter) ([]BatchSpec, error) {
	if len(spec.Topics) == 0 {
		return nil, fmt.Errorf("curriculum has no topics")
	}
	if len(spec.LearningGoals) == 0 {
		return nil, fmt.Errorf("curriculum has no learning goals")
	}

	var batches []BatchSpec
	counter := 0

	for _, lvl := range spec.Levels {
		if f.Level != "" && !strings.EqualFold(string(lvl.Level), f.Level) {
			continue
		}

		for _, qt := range question.Types() {
			weight, ok := spec.TypeWeights[qt]
			if !ok {
				continue
			}
			if f.Type != "" && !strings.EqualFold(string(qt), f.Type) {
				continue
			}

			typeTarget := int(math.Round(float64(lvl.Target) * weight))
			if typeTarget <= 0 {
				continue
			}
			batchesNeeded := (typeTarget + QuestionsPerBatch - 1) / QuestionsPerBatch

			for i := 0; i < batchesNeeded; i++ {
				batches = append(batches, BatchSpec{
					BatchID:      BatchID(spec.Language, lvl.Level, qt, counter),
					Language:     spec.Language,
					Level:        lvl.Level,
					LevelLabel:   lvl.Label,
					Type:         qt,
					TargetSkill:  spec.SkillMap[qt],
					Topic:        spec.Topics[counter%len(spec.Topics)],
					LearningGoal: spec.LearningGoals[counter%len(spec.LearningGoals)],
				})
				counter++
			}
		}
	}

	if f.Trial > 0 && len(batches) > f.Trial {
		batches = batches[:f.Trial]
	}

	return batches, nil
}

// BatchID composes the deterministic id for a batch. The trailing
// four-digit sequence is what the prompt assembler's grammar rotation
// parses back out.
func BatchID(language string, level question.Level, qt question.Type, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", language, curriculum.LevelKey(level), qt, seq)
}
