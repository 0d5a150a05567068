// Package export renders generated questions as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
	"github.com/gokatarajesh/learning-platform/internal/content"
)

const (
	questionsSheet = "Questions"
	summarySheet   = "Summary"
)

// ContentType is the MIME type of WriteXLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var questionHeader = []any{"#", "Question", "Options", "Correct Answer", "Explanation"}

// WriteXLSX writes a workbook with one row per question and a summary sheet.
func WriteXLSX(w io.Writer, ref content.Ref, res assessment.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", questionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(questionsSheet, "A1", &questionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(questionsSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, q := range res.Questions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{q.ID + 1, q.Text, formatOptions(q.AnswerOptions), q.CorrectAnswer, q.Explanation}
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write question %d: %w", q.ID, err)
		}
	}
	_ = f.SetColWidth(questionsSheet, "B", "B", 60)
	_ = f.SetColWidth(questionsSheet, "C", "C", 40)
	_ = f.SetColWidth(questionsSheet, "E", "E", 60)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Assessment", ref.String()},
		{"Source", string(res.SourceTier)},
		{"Questions", len(res.Questions)},
		{"Attempts", res.Attempts},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatOptions(options []assessment.Answer) string {
	parts := make([]string, 0, len(options))
	for _, o := range options {
		parts = append(parts, fmt.Sprintf("%s) %s", o.Letter, o.Text))
	}
	return strings.Join(parts, "\n")
}
