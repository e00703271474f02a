// Package export renders VAAC views as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	OccupancySheet = "Occupancy"
	TimelineSheet  = "Timeline"
)

var (
	occupancyHeaders = []string{"Centre", "Sala", "Shift", "Capacity", "Assigned", "Waitlist", "Free"}
	occupancyWidths  = []float64{24, 12, 14, 10, 10, 10, 10}

	timelineHeaders = []string{"Seq", "At", "Kind", "Actor", "Program", "Derivation", "Pre-admission", "Admission", "Detail"}
	timelineWidths  = []float64{8, 22, 24, 16, 38, 38, 38, 38, 40}
)

// OccupancyWorkbook writes one row per pool.
func OccupancyWorkbook(rows []domain.PoolOccupancy) ([]byte, error) {
	values := make([][]any, 0, len(rows))
	for _, o := range rows {
		values = append(values, []any{o.Centre, o.Sala, o.Shift, o.Capacity, o.AssignedCount, o.WaitlistCount, o.Free})
	}
	return build(OccupancySheet, occupancyHeaders, occupancyWidths, values)
}

// TimelineWorkbook writes one row per event, in the order given.
func TimelineWorkbook(events []domain.CaseEvent) ([]byte, error) {
	values := make([][]any, 0, len(events))
	for _, e := range events {
		values = append(values, []any{
			e.Seq, e.At.UTC().Format(time.DateTime), string(e.Kind), e.Actor,
			e.ProgramID, e.DerivationID, e.PreAdmissionID, e.AdmissionID, e.FreeText,
		})
	}
	return build(TimelineSheet, timelineHeaders, timelineWidths, values)
}

func build(sheet string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range headers {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return nil, err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			if err := setCell(f, sheet, c+1, r+2, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
