package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lexlabs/qgen/internal/question"
)

var sheetHeaders = []string{"Batch", "Type", "Skill", "Topic", "Question", "Passage", "Options", "Answer", "Points", "Hash"}

// ToXLSX writes the rows as a reviewer workbook with one sheet per
// level, ordered easiest first. Each sheet gets a frozen header row.
func ToXLSX(rows []Row, path string) error {
	byLevel := make(map[question.Level][]Row)
	for _, r := range rows {
		byLevel[r.Level] = append(byLevel[r.Level], r)
	}

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, lvl := range question.Levels() {
		lr := byLevel[lvl]
		if len(lr) == 0 {
			continue
		}
		sheet := string(lvl)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, lr); err != nil {
			return err
		}
	}
	if first {
		return fmt.Errorf("no questions to export")
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows []Row) error {
	for i, h := range sheetHeaders {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return err
		}
	}

	for ri, r := range rows {
		q := r.Question
		values := []any{
			r.BatchID,
			string(q.Type),
			string(q.TargetSkill),
			r.Topic,
			q.Question,
			q.PassageText,
			strings.Join(q.Options, " | "),
			q.CorrectAnswer,
			q.Points,
			shortHash(r.Hash),
		}
		for ci, v := range values {
			if err := setCell(f, sheet, ci+1, ri+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheet, "E", "F", 50); err != nil {
		return fmt.Errorf("failed to size sheet %s: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "G", "G", 40); err != nil {
		return fmt.Errorf("failed to size sheet %s: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
	}
	return nil
}
