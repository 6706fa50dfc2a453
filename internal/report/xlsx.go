package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

const (
	summarySheet = "Summary"
	daysSheet    = "Days"
)

var dayHeaders = []string{"Date", "Weekday", "Shift", "Start", "End", "State", "Check-in", "On time", "Warm-up", "Progress %"}

// stateFills colours the State column like the streak strip.
var stateFills = map[readiness.ObligationState]string{
	readiness.StateComplete:    "#C8E6C9",
	readiness.StatePartial:     "#FFE0B2",
	readiness.StatePending:     "#FFCDD2",
	readiness.StateExcepted:    "#CFD8DC",
	readiness.StateNotRequired: "#F5F5F5",
}

// WriteXLSX writes a workbook with a Summary sheet and a Days sheet.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 2},
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	// Summary
	if err := f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Readiness: %s (%s to %s)", r.WorkerID, r.From, r.To)); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.MergeCell(summarySheet, "A1", "D1"); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := setRow(f, summarySheet, 3, "Metric", "Value"); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A3", "B3", headerStyle); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	rows := [][2]any{
		{"Scheduled Days", r.Summary.ScheduledDays},
		{"Completed Days", r.Summary.CompletedDays},
		{"Excepted Days", r.Summary.ExceptedDays},
		{"Missed Days", r.Summary.MissedDays},
		{"Check-ins", r.Summary.CheckIns},
		{"On-time Check-ins", r.Summary.OnTimeCheckIns},
		{"Current Streak", r.Streak.CurrentStreak},
		{"Longest Streak", r.Streak.LongestStreak},
		{"Next Milestone", r.Streak.NextMilestone},
	}
	if r.Plan != nil {
		rows = append(rows,
			[2]any{"Plan Status", string(r.Plan.Status)},
			[2]any{"Plan Day", r.Plan.CurrentDay},
			[2]any{"Plan Duration", r.Plan.DurationDays},
			[2]any{"Plan Progress %", r.Plan.ProgressPercent},
		)
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, 4+i, row[0], row[1]); err != nil {
			return err
		}
	}
	if err := setWidths(f, summarySheet, map[string]float64{"A": 22, "B": 14}); err != nil {
		return err
	}

	// Days
	header := make([]any, len(dayHeaders))
	for i, h := range dayHeaders {
		header[i] = h
	}
	if err := setRow(f, daysSheet, 1, header...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(dayHeaders), 1)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetCellStyle(daysSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	fills := make(map[readiness.ObligationState]int, len(stateFills))
	for state, color := range stateFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		fills[state] = id
	}

	for i, d := range r.Days {
		row := i + 2
		start, end := "", ""
		if d.Schedule.HasShift {
			start, end = d.Schedule.ShiftStart.String(), d.Schedule.ShiftEnd.String()
		}
		checkIn := ""
		if d.CheckIn != nil {
			checkIn = string(d.CheckIn.PredictedReadiness)
		}
		if err := setRow(f, daysSheet, row,
			d.Date.String(), calendar.WeekdayName(d.Date), string(d.Schedule.ShiftType), start, end,
			string(d.State), checkIn, yesNo(d.CheckInDone && d.CheckInOnTime), warmUpLabel(d), d.ProgressPercent,
		); err != nil {
			return err
		}
		if id, ok := fills[d.State]; ok {
			cell, err := excelize.CoordinatesToCellName(6, row)
			if err != nil {
				return fmt.Errorf("xlsx: %w", err)
			}
			if err := f.SetCellStyle(daysSheet, cell, cell, id); err != nil {
				return fmt.Errorf("xlsx: row %d: %w", row, err)
			}
		}
	}
	if err := setWidths(f, daysSheet, map[string]float64{"A": 12, "C": 10, "F": 14, "I": 14}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	vals := values
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("xlsx: row %d: %w", row, err)
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, widths map[string]float64) error {
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("xlsx: %s column %s: %w", sheet, col, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
