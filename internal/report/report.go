// Package report renders a worker's obligations over a date range as
// markdown, JSON, xlsx, SVG or HTML and writes the result to an export
// directory.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/tracker"
	"github.com/readiness/internal/visualization"
)

// Format selects an export renderer.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
	FormatSVG      Format = "svg"
	FormatHTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatXLSX, FormatSVG, FormatHTML}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatMarkdown, FormatJSON, FormatXLSX, FormatSVG, FormatHTML:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Report is everything an export shows for one worker and range.
type Report struct {
	WorkerID    string                    `json:"worker_id"`
	From        calendar.Date             `json:"from"`
	To          calendar.Date             `json:"to"`
	Days        []readiness.DayObligation `json:"days"`
	Streak      readiness.StreakState     `json:"streak"`
	Plan        *readiness.PlanProgress   `json:"plan,omitempty"`
	Summary     Summary                   `json:"summary"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Summary counts the range's days by outcome.
type Summary struct {
	ScheduledDays  int `json:"scheduled_days"`
	CompletedDays  int `json:"completed_days"`
	ExceptedDays   int `json:"excepted_days"`
	MissedDays     int `json:"missed_days"`
	CheckIns       int `json:"check_ins"`
	OnTimeCheckIns int `json:"on_time_check_ins"`
}

// Summarize counts days; missed days come from the streak so that the as-of
// day is never counted as missed.
func Summarize(days []readiness.DayObligation, streak readiness.StreakState) Summary {
	var s Summary
	first, last := calendar.Date{}, calendar.Date{}
	if len(days) > 0 {
		first, last = days[0].Date, days[len(days)-1].Date
	}
	for _, d := range days {
		if d.Schedule.HasShift {
			s.ScheduledDays++
		}
		switch d.State {
		case readiness.StateComplete:
			s.CompletedDays++
		case readiness.StateExcepted:
			s.ExceptedDays++
		}
		if d.CheckInDone {
			s.CheckIns++
			if d.CheckInOnTime {
				s.OnTimeCheckIns++
			}
		}
	}
	for _, m := range streak.MissedScheduleDates {
		if !m.Before(first) && !m.After(last) {
			s.MissedDays++
		}
	}
	return s
}

// Source is the part of the tracker a report reads.
type Source interface {
	Days(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.DayObligation, error)
	Streak(ctx context.Context, workerID string, asOf calendar.Date) (readiness.StreakState, error)
	PlanProgress(ctx context.Context, workerID string) (readiness.PlanProgress, error)
}

// Exporter builds reports and writes them under dir.
type Exporter struct {
	source Source
	dir    string
	now    func() time.Time
}

func NewExporter(source Source, dir string) *Exporter {
	return &Exporter{source: source, dir: dir, now: time.Now}
}

// Build evaluates [from, to] with the streak taken as of to.
func (e *Exporter) Build(ctx context.Context, workerID string, from, to calendar.Date) (*Report, error) {
	days, err := e.source.Days(ctx, workerID, from, to)
	if err != nil {
		return nil, err
	}
	streak, err := e.source.Streak(ctx, workerID, to)
	if err != nil {
		return nil, err
	}
	r := &Report{
		WorkerID:    workerID,
		From:        from,
		To:          to,
		Days:        days,
		Streak:      streak,
		Summary:     Summarize(days, streak),
		GeneratedAt: e.now(),
	}
	plan, err := e.source.PlanProgress(ctx, workerID)
	switch {
	case errors.Is(err, tracker.ErrNoActivePlan):
	case err != nil:
		return nil, err
	default:
		r.Plan = &plan
	}
	return r, nil
}

// Export builds the report and writes it to dir, returning the file path.
func (e *Exporter) Export(ctx context.Context, workerID string, from, to calendar.Date, format Format) (string, error) {
	r, err := e.Build(ctx, workerID, from, to)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(e.dir, Filename(r, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export: %w", err)
	}
	if err := Write(f, r, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ListExports returns export file names in dir, sorted.
func (e *Exporter) ListExports() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var exports []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := ParseFormat(filepath.Ext(entry.Name())); err == nil {
			exports = append(exports, entry.Name())
		}
	}
	sort.Strings(exports)
	return exports, nil
}

// Filename is <worker>_<from>_<to>.<format>.
func Filename(r *Report, format Format) string {
	worker := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '-'
		}
		return r
	}, r.WorkerID)
	return fmt.Sprintf("%s_%s_%s.%s", worker, r.From, r.To, format)
}

// Write renders r to w.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatSVG:
		_, err := io.WriteString(w, visualization.New().GenerateStreakSVG(r.Days, r.Streak))
		return err
	case FormatHTML:
		var today readiness.DayObligation
		if len(r.Days) > 0 {
			today = r.Days[len(r.Days)-1]
		}
		_, err := io.WriteString(w, visualization.New().GenerateHTMLReport(today, r.Streak, r.Plan))
		return err
	}
	return fmt.Errorf("unknown export format %q", format)
}

// Markdown renders the report as summary tables followed by one row per day.
func Markdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Readiness: %s\n\n", r.WorkerID))
	sb.WriteString(fmt.Sprintf("%s to %s\n\n", r.From, r.To))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Scheduled Days | %d |\n", r.Summary.ScheduledDays))
	sb.WriteString(fmt.Sprintf("| Completed Days | %d |\n", r.Summary.CompletedDays))
	sb.WriteString(fmt.Sprintf("| Excepted Days | %d |\n", r.Summary.ExceptedDays))
	sb.WriteString(fmt.Sprintf("| Missed Days | %d |\n", r.Summary.MissedDays))
	sb.WriteString(fmt.Sprintf("| On-time Check-ins | %d/%d |\n", r.Summary.OnTimeCheckIns, r.Summary.CheckIns))
	sb.WriteString(fmt.Sprintf("| Current Streak | %d |\n", r.Streak.CurrentStreak))
	sb.WriteString(fmt.Sprintf("| Longest Streak | %d |\n", r.Streak.LongestStreak))
	if r.Streak.NextMilestone > 0 {
		sb.WriteString(fmt.Sprintf("| Next Milestone | %d |\n", r.Streak.NextMilestone))
	}
	sb.WriteString("\n")

	if r.Plan != nil {
		sb.WriteString("## Rehabilitation Plan\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Status | %s |\n", r.Plan.Status))
		sb.WriteString(fmt.Sprintf("| Day | %d of %d |\n", r.Plan.CurrentDay, r.Plan.DurationDays))
		sb.WriteString(fmt.Sprintf("| Days Completed | %d |\n", r.Plan.DaysCompleted))
		sb.WriteString(fmt.Sprintf("| Progress | %d%% |\n", r.Plan.ProgressPercent))
		if r.Plan.Overdue {
			sb.WriteString("| Overdue | yes |\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Days\n\n")
	sb.WriteString("| Date | Day | Shift | State | Check-in | Warm-up | Progress |\n")
	sb.WriteString("|------|-----|-------|-------|----------|---------|----------|\n")
	for _, d := range r.Days {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d%% |\n",
			d.Date, calendar.WeekdayName(d.Date), shiftLabel(d), d.State,
			checkInLabel(d), warmUpLabel(d), d.ProgressPercent))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("---\n*Exported: %s*\n", r.GeneratedAt.Format("2006-01-02 15:04")))
	return sb.String()
}

func shiftLabel(d readiness.DayObligation) string {
	if !d.Schedule.HasShift {
		return "-"
	}
	return fmt.Sprintf("%s %s-%s", d.Schedule.ShiftType, d.Schedule.ShiftStart, d.Schedule.ShiftEnd)
}

func checkInLabel(d readiness.DayObligation) string {
	switch {
	case d.Exception != nil && !d.CheckInDone:
		return string(d.Exception.Type)
	case !d.CheckInDone && d.CheckInRequired:
		return "missing"
	case !d.CheckInDone:
		return "-"
	case d.Schedule.CheckInWindow != nil && d.CheckIn.At.Before(d.Schedule.CheckInWindow.WindowStart):
		return fmt.Sprintf("%s (early)", d.CheckIn.PredictedReadiness)
	case d.Schedule.CheckInWindow != nil && !d.CheckInOnTime:
		return fmt.Sprintf("%s (late)", d.CheckIn.PredictedReadiness)
	}
	return string(d.CheckIn.PredictedReadiness)
}

func warmUpLabel(d readiness.DayObligation) string {
	switch {
	case !d.WarmUpRequired:
		return "-"
	case d.WarmUpDone:
		return fmt.Sprintf("day %d done", d.PlanDay)
	}
	return fmt.Sprintf("day %d open", d.PlanDay)
}
