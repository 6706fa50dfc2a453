package visualization

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

// stateColors maps each obligation state to its cell fill.
var stateColors = map[readiness.ObligationState]string{
	readiness.StateComplete:    "#4CAF50",
	readiness.StatePartial:     "#FF9800",
	readiness.StatePending:     "#F44336",
	readiness.StateExcepted:    "#90A4AE",
	readiness.StateNotRequired: "#E0E0E0",
}

var legendOrder = []readiness.ObligationState{
	readiness.StateComplete,
	readiness.StatePartial,
	readiness.StatePending,
	readiness.StateExcepted,
	readiness.StateNotRequired,
}

type Visualizer struct {
	now func() time.Time
}

func New() *Visualizer {
	return &Visualizer{now: time.Now}
}

// GenerateStreakSVG draws one cell per day, a column per week and a row per
// weekday starting Monday.
func (v *Visualizer) GenerateStreakSVG(days []readiness.DayObligation, streak readiness.StreakState) string {
	cell := 18
	gap := 4
	padding := 40
	labelWidth := 36
	top := 80

	weeks := 1
	var first calendar.Date
	if len(days) > 0 {
		first = days[0].Date
		weeks = weekIndex(first, days[len(days)-1].Date) + 1
	}
	width := padding*2 + labelWidth + weeks*(cell+gap)
	if width < 600 {
		width = 600
	}
	height := top + 7*(cell+gap) + 70

	var cells strings.Builder
	for _, d := range days {
		col := weekIndex(first, d.Date)
		row := mondayOffset(d.Date)
		x := padding + labelWidth + col*(cell+gap)
		y := top + row*(cell+gap)
		cells.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" rx="4"><title>%s: %s</title></rect>
  `, x, y, cell, cell, colorFor(d.State), d.Date, d.State))
	}

	subtitle := "no days"
	if len(days) > 0 {
		subtitle = fmt.Sprintf("%s - %s", days[0].Date.FormatLong(), days[len(days)-1].Date.FormatLong())
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">
  <defs>
    <linearGradient id="bgGrad" x1="0%%" y1="0%%" x2="0%%" y2="100%%">
      <stop offset="0%%" style="stop-color:#f5f7fa"/>
      <stop offset="100%%" style="stop-color:#e4e8ec"/>
    </linearGradient>
  </defs>
  <rect width="%d" height="%d" fill="url(#bgGrad)" rx="10"/>
  <text x="%d" y="30" text-anchor="middle" font-size="18" font-weight="bold" fill="#2c3e50">Readiness Streak</text>
  <text x="%d" y="55" text-anchor="middle" font-size="12" fill="#7f8c8d">%s | Current: %d | Longest: %d | Next: %s</text>

  <!-- Weekday labels -->
  %s

  <!-- Days -->
  %s

  <!-- Legend -->
  %s
</svg>`,
		width, height, width, height,
		width, height,
		width/2,
		width/2, html.EscapeString(subtitle), streak.CurrentStreak, streak.LongestStreak, milestoneLabel(streak.NextMilestone),
		v.generateRowLabels(padding, top, cell, gap),
		cells.String(),
		v.generateLegend(padding, height-30),
	)
}

// GenerateHTMLReport renders a one-page summary for a worker's day, streak and
// (optional) plan.
func (v *Visualizer) GenerateHTMLReport(day readiness.DayObligation, streak readiness.StreakState, plan *readiness.PlanProgress) string {
	planPercent := 0
	planLine := "No active rehabilitation plan"
	if plan != nil {
		planPercent = plan.ProgressPercent
		planLine = fmt.Sprintf("Day %d of %d | %d days complete", plan.CurrentDay, plan.DurationDays, plan.DaysCompleted)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Readiness - %s</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 40px; background: #f5f7fa; }
    .container { max-width: 800px; margin: 0 auto; }
    .card { background: white; border-radius: 10px; padding: 24px; margin-bottom: 20px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
    h1 { color: #2c3e50; margin-bottom: 8px; }
    h2 { color: #34495e; font-size: 18px; margin-bottom: 16px; }
    .subtitle { color: #7f8c8d; margin-bottom: 30px; }
    .stat { display: inline-block; text-align: center; padding: 20px; margin: 10px; background: #f8f9fa; border-radius: 8px; min-width: 120px; }
    .stat-value { font-size: 32px; font-weight: bold; color: #3498DB; }
    .stat-label { font-size: 12px; color: #7f8c8d; margin-top: 4px; }
    .progress-bar { height: 24px; background: #E0E0E0; border-radius: 12px; overflow: hidden; margin: 16px 0; }
    .progress-fill { height: 100%%; background: linear-gradient(90deg, #4CAF50, #8BC34A); border-radius: 12px; }
    table { width: 100%%; border-collapse: collapse; margin-top: 16px; }
    th, td { padding: 12px; text-align: left; border-bottom: 1px solid #eee; }
    th { color: #7f8c8d; font-weight: 500; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Readiness Report: %s</h1>
    <p class="subtitle">Generated on %s</p>

    <div class="card">
      <h2>%s</h2>
      <div class="stat">
        <div class="stat-value">%s</div>
        <div class="stat-label">Status</div>
      </div>
      <div class="stat">
        <div class="stat-value">%d%%</div>
        <div class="stat-label">Day Progress</div>
      </div>
      <div class="stat">
        <div class="stat-value">%d</div>
        <div class="stat-label">Current Streak</div>
      </div>
      <div class="stat">
        <div class="stat-value">%d</div>
        <div class="stat-label">Longest Streak</div>
      </div>
    </div>

    <div class="card">
      <h2>Rehabilitation Plan</h2>
      <div class="progress-bar">
        <div class="progress-fill" style="width: %d%%"></div>
      </div>
      <p style="color: #7f8c8d; text-align: center;">%s</p>
    </div>

    <div class="card">
      <h2>Missed Shifts</h2>
      <table>
        <tr><th>Date</th><th>Weekday</th></tr>
        %s
      </table>
    </div>
  </div>
</body>
</html>`,
		html.EscapeString(day.WorkerID),
		html.EscapeString(day.WorkerID),
		v.now().Format("Monday, January 2, 2006"),
		day.Date.FormatLong(),
		day.State,
		day.ProgressPercent,
		streak.CurrentStreak,
		streak.LongestStreak,
		planPercent,
		planLine,
		v.formatMissedRows(streak.MissedScheduleDates),
	)
}

func (v *Visualizer) formatMissedRows(dates []calendar.Date) string {
	var rows []string
	for _, d := range dates {
		rows = append(rows, fmt.Sprintf("<tr><td>%s</td><td>%s</td></tr>", d, calendar.WeekdayName(d)))
	}
	return strings.Join(rows, "\n")
}

func (v *Visualizer) generateRowLabels(padding, top, cell, gap int) string {
	var labels strings.Builder
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for i, name := range names {
		y := top + i*(cell+gap) + cell - 4
		labels.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="11" fill="#7f8c8d">%s</text>`,
			padding, y, name))
	}
	return labels.String()
}

func (v *Visualizer) generateLegend(padding, y int) string {
	var legend strings.Builder
	x := padding
	for _, state := range legendOrder {
		legend.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="12" fill="%s" rx="2"/>
  <text x="%d" y="%d" font-size="11" fill="#333">%s</text>`,
			x, y, stateColors[state], x+16, y+10, state))
		x += 105
	}
	return legend.String()
}

func colorFor(state readiness.ObligationState) string {
	if c, ok := stateColors[state]; ok {
		return c
	}
	return "#FFFFFF"
}

func milestoneLabel(next int) string {
	if next == 0 {
		return "all milestones reached"
	}
	return fmt.Sprintf("%d days", next)
}

// mondayOffset is 0 for Monday through 6 for Sunday.
func mondayOffset(d calendar.Date) int {
	return (int(d.Weekday()) + 6) % 7
}

// weekIndex counts Monday-started weeks from the week containing first.
func weekIndex(first, d calendar.Date) int {
	start := first.AddDays(-mondayOffset(first))
	return calendar.DaysBetween(start, d) / 7
}
