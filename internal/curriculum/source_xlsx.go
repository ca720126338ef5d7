package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetGrades   = "grades"
	sheetTopics   = "topics"
	sheetPatterns = "gap_patterns"

	// listSep separates prerequisite and gap codes inside one cell;
	// textSep separates free-text entries.
	listSep = ","
	textSep = "|"
)

var topicColumns = []string{
	"code", "display_name", "grade_level", "category", "prerequisites",
	"estimated_hours", "difficulty", "common_gaps", "tutor_tips",
}

var patternColumns = []string{"code", "real_gaps", "source"}

// XLSXSource loads a catalogue from a workbook maintained by curriculum
// authors. Sheets: "grades" (one label per row, lowest first), "topics" and
// "gap_patterns", each with a header row.
type XLSXSource struct {
	Path string
}

func (s XLSXSource) LoadCatalogue(_ context.Context) (*Catalogue, error) {
	doc, err := ReadXLSX(s.Path)
	if err != nil {
		return nil, err
	}
	return BuildCatalogue(doc)
}

// ReadXLSX reads a catalogue workbook into a document.
func ReadXLSX(path string) (Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var doc Document

	if idx, _ := f.GetSheetIndex(sheetGrades); idx >= 0 {
		rows, err := f.GetRows(sheetGrades)
		if err != nil {
			return Document{}, fmt.Errorf("reading %s sheet: %w", sheetGrades, err)
		}
		for _, row := range rows {
			if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
				doc.Grades = append(doc.Grades, strings.TrimSpace(row[0]))
			}
		}
	}

	rows, err := sheetRecords(f, sheetTopics)
	if err != nil {
		return Document{}, err
	}
	for i, rec := range rows {
		t, err := topicFromCells(rec)
		if err != nil {
			return Document{}, fmt.Errorf("%s row %d: %w", sheetTopics, i+2, err)
		}
		doc.Topics = append(doc.Topics, t)
	}

	if idx, _ := f.GetSheetIndex(sheetPatterns); idx >= 0 {
		rows, err := sheetRecords(f, sheetPatterns)
		if err != nil {
			return Document{}, err
		}
		for _, rec := range rows {
			doc.GapPatterns = append(doc.GapPatterns, GapPattern{
				Code:         rec["code"],
				RealGapCodes: splitCell(rec["real_gaps"], listSep),
				Source:       rec["source"],
			})
		}
	}

	slog.Info("curriculum read from workbook",
		"path", path,
		"topics", len(doc.Topics),
		"gap_patterns", len(doc.GapPatterns),
	)
	return doc, nil
}

// WriteXLSX writes doc as a catalogue workbook.
func WriteXLSX(doc Document, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetGrades); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheetGrades, err)
	}
	for i, label := range doc.Grades {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(sheetGrades, cell, label); err != nil {
			return fmt.Errorf("writing grade %q: %w", label, err)
		}
	}

	topicRows := make([][]any, 0, len(doc.Topics))
	for _, t := range doc.Topics {
		topicRows = append(topicRows, []any{
			t.Code,
			t.DisplayName,
			t.GradeLevel,
			string(t.Category),
			strings.Join(t.PrerequisiteCodes, listSep),
			t.EstimatedHours,
			t.DifficultyRating,
			strings.Join(t.CommonGapDescriptions, textSep),
			strings.Join(t.TutorTips, textSep),
		})
	}
	if err := writeSheet(f, sheetTopics, topicColumns, topicRows); err != nil {
		return err
	}

	patternRows := make([][]any, 0, len(doc.GapPatterns))
	for _, p := range doc.GapPatterns {
		patternRows = append(patternRows, []any{p.Code, strings.Join(p.RealGapCodes, listSep), p.Source})
	}
	if err := writeSheet(f, sheetPatterns, patternColumns, patternRows); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheet, err)
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// sheetRecords returns the data rows of a sheet keyed by header name.
func sheetRecords(f *excelize.File, sheet string) ([]map[string]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		empty := true
		for i, v := range row {
			if i >= len(header) {
				break
			}
			v = strings.TrimSpace(v)
			if v != "" {
				empty = false
			}
			rec[header[i]] = v
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}

func topicFromCells(rec map[string]string) (TopicNode, error) {
	t := TopicNode{
		Code:                  rec["code"],
		DisplayName:           rec["display_name"],
		GradeLevel:            rec["grade_level"],
		Category:              Category(rec["category"]),
		PrerequisiteCodes:     splitCell(rec["prerequisites"], listSep),
		CommonGapDescriptions: splitCell(rec["common_gaps"], textSep),
		TutorTips:             splitCell(rec["tutor_tips"], textSep),
	}
	if t.Code == "" {
		return t, fmt.Errorf("code is empty")
	}

	hours, err := strconv.ParseFloat(rec["estimated_hours"], 64)
	if err != nil {
		return t, fmt.Errorf("topic %q: invalid estimated_hours %q: %w", t.Code, rec["estimated_hours"], err)
	}
	t.EstimatedHours = hours

	difficulty, err := strconv.Atoi(rec["difficulty"])
	if err != nil {
		return t, fmt.Errorf("topic %q: invalid difficulty %q: %w", t.Code, rec["difficulty"], err)
	}
	t.DifficultyRating = difficulty

	return t, nil
}

func splitCell(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
