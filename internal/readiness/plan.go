package readiness

import (
	"math"
	"time"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/work"
)

// PlanDay is one day of a rehabilitation plan.
type PlanDay struct {
	Day       int           `json:"day"`
	Date      calendar.Date `json:"date"`
	Completed bool          `json:"completed"`
	// ExercisesDone counts distinct plan exercises completed that day.
	ExercisesDone int `json:"exercises_done"`
}

// PlanProgress is a plan's position as of one instant.
type PlanProgress struct {
	PlanID          string        `json:"plan_id"`
	Status          PlanStatus    `json:"status"`
	StartDate       calendar.Date `json:"start_date"`
	DurationDays    int           `json:"duration_days"`
	CurrentDay      int           `json:"current_day"`
	Days            []PlanDay     `json:"days"`
	DaysCompleted   int           `json:"days_completed"`
	ProgressPercent int           `json:"progress_percent"`
	// CurrentDayComplete reports whether today's exercise set is finished.
	CurrentDayComplete bool      `json:"current_day_complete"`
	NextWarmUpAt       time.Time `json:"next_warm_up_at"`
	// Overdue is set once today is past the last plan day. The plan stays in
	// its status until a clinician acts on it.
	Overdue bool `json:"overdue"`
}

func (e *Engine) validatePlan(plan RehabPlan) error {
	if plan.DurationDays <= 0 || plan.DurationDays > e.policy.MaxPlanDays {
		return &InvalidPlanRangeError{
			PlanID:       plan.ID,
			DurationDays: plan.DurationDays,
			Max:          e.policy.MaxPlanDays,
		}
	}
	return nil
}

// ComputePlanProgress reports the plan's current day, per-day completion and
// rolled-up percentage as of now. It never changes the plan's status.
func (e *Engine) ComputePlanProgress(plan RehabPlan, completions []ExerciseCompletion, now time.Time) (PlanProgress, error) {
	if err := e.validatePlan(plan); err != nil {
		return PlanProgress{}, err
	}

	today := calendar.Today(now, e.policy.Location)
	current := clamp(calendar.DaysBetween(plan.StartDate, today)+1, 1, plan.DurationDays)

	progress := PlanProgress{
		PlanID:       plan.ID,
		Status:       plan.Status,
		StartDate:    plan.StartDate,
		DurationDays: plan.DurationDays,
		CurrentDay:   current,
		Days:         make([]PlanDay, 0, plan.DurationDays),
		Overdue:      today.After(plan.LastDate()),
	}

	done := completedByDate(plan, completions)
	for n := 1; n <= plan.DurationDays; n++ {
		date := plan.StartDate.AddDays(n - 1)
		count := len(done[date.String()])
		day := PlanDay{
			Day:           n,
			Date:          date,
			ExercisesDone: count,
			Completed:     count == len(plan.Exercises),
		}
		progress.Days = append(progress.Days, day)
		if n <= current && day.Completed {
			progress.DaysCompleted++
		}
		if n == current {
			progress.CurrentDayComplete = day.Completed
		}
	}

	progress.ProgressPercent = int(math.Round(float64(progress.DaysCompleted) / float64(plan.DurationDays) * 100))

	if progress.CurrentDayComplete {
		next := plan.StartDate.AddDays(current)
		progress.NextWarmUpAt = next.At(work.WarmUpUnlock(), e.policy.Location)
	} else {
		progress.NextWarmUpAt = now
	}
	return progress, nil
}

// completedByDate collects, per date (YYYY-MM-DD), the set of plan exercise ids completed.
// Ids that are not part of the plan are ignored and repeats collapse, so a
// duplicate of one exercise never stands in for another.
func completedByDate(plan RehabPlan, completions []ExerciseCompletion) map[string]map[string]struct{} {
	known := make(map[string]struct{}, len(plan.Exercises))
	for _, ex := range plan.Exercises {
		known[ex.ID] = struct{}{}
	}
	done := make(map[string]map[string]struct{})
	for _, c := range completions {
		if c.PlanID != plan.ID {
			continue
		}
		if _, ok := known[c.ExerciseID]; !ok {
			continue
		}
		key := c.Date.String()
		set, ok := done[key]
		if !ok {
			set = make(map[string]struct{}, len(known))
			done[key] = set
		}
		set[c.ExerciseID] = struct{}{}
	}
	return done
}

// dayCovered reports whether completions on date cover every plan exercise.
func dayCovered(plan RehabPlan, completions []ExerciseCompletion, date calendar.Date) bool {
	return len(completedByDate(plan, completions)[date.String()]) == len(plan.Exercises)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
