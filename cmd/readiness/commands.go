package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/tracker"
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Show a worker's obligations for a day",
	Long:  `Show the shift, check-in and warm-up state for a day. With --to, show one line per day up to that date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date", trackerService.Today())
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("to") {
			to, err := dateFlag(cmd, "to", date)
			if err != nil {
				return err
			}
			days, err := trackerService.Days(cmd.Context(), worker, date, to)
			if err != nil {
				return err
			}
			for _, d := range days {
				fmt.Printf("%s %s  %-12s %s\n", d.Date, calendar.WeekdayName(d.Date), d.State, shiftSummary(d.Schedule))
			}
			return nil
		}

		d, err := trackerService.Day(cmd.Context(), worker, date)
		if err != nil {
			return err
		}
		printDay(d)
		return nil
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show a worker's readiness streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		asOf, err := dateFlag(cmd, "as-of", trackerService.Today())
		if err != nil {
			return err
		}
		s, err := trackerService.Streak(cmd.Context(), worker, asOf)
		if err != nil {
			return err
		}

		fmt.Printf("Streak as of %s: %d day(s) | Longest: %d\n", s.AsOf.FormatLong(), s.CurrentStreak, s.LongestStreak)
		fmt.Printf("Completed %d of %d past scheduled day(s) | %d scheduled in window\n",
			s.CompletedDays, s.PastScheduledDays, s.TotalScheduledDays)
		if s.NextMilestone > 0 {
			fmt.Printf("Next milestone: %d day(s) (%d to go)\n", s.NextMilestone, s.NextMilestone-s.CurrentStreak)
		}
		if s.Badge.HasSevenDayBadge {
			fmt.Printf("Badge: %d-day milestone reached\n", s.Badge.HighestMilestone)
		}
		if len(s.MissedScheduleDates) > 0 {
			missed := make([]string, len(s.MissedScheduleDates))
			for i, m := range s.MissedScheduleDates {
				missed[i] = m.String()
			}
			fmt.Printf("Missed: %s\n", strings.Join(missed, ", "))
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show or close the active rehabilitation plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		p, err := trackerService.PlanProgress(cmd.Context(), worker)
		if errors.Is(err, tracker.ErrNoActivePlan) {
			fmt.Println("No active rehabilitation plan.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Plan %s (%s) | Day %d of %d | %d%% complete\n",
			p.PlanID, p.Status, p.CurrentDay, p.DurationDays, p.ProgressPercent)
		for _, d := range p.Days {
			mark := " "
			if d.Completed {
				mark = "x"
			}
			current := ""
			if d.Day == p.CurrentDay {
				current = " <- today"
			}
			fmt.Printf("  [%s] Day %2d  %s  %d exercise(s)%s\n", mark, d.Day, d.Date, d.ExercisesDone, current)
		}
		if p.Overdue {
			fmt.Println("Plan is past its last day; complete or cancel it.")
		} else if p.CurrentDayComplete && !p.NextWarmUpAt.IsZero() {
			fmt.Printf("Next warm-up unlocks %s\n", p.NextWarmUpAt.Format("Mon Jan 2 15:04"))
		}
		return nil
	},
}

var planCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark the active plan completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishPlan(cmd, trackerService.CompletePlan)
	},
}

var planCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the active plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishPlan(cmd, trackerService.CancelPlan)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show a worker's shift and check-in window",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date", trackerService.Today())
		if err != nil {
			return err
		}
		s, err := trackerService.Schedule(cmd.Context(), worker, date)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", date.FormatLong(), shiftSummary(s))
		if w := s.CheckInWindow; w != nil {
			fmt.Printf("Check-in window: %s - %s (recommended %s - %s)\n",
				w.WindowStart.Format("15:04"), w.WindowEnd.Format("15:04"),
				w.RecommendedStart.Format("15:04"), w.RecommendedEnd.Format("15:04"))
		}
		return nil
	},
}

var exceptionCmd = &cobra.Command{
	Use:   "exception",
	Short: "Show the exception active on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date", trackerService.Today())
		if err != nil {
			return err
		}
		ex, err := trackerService.ActiveException(cmd.Context(), worker, date)
		if err != nil {
			return err
		}
		if ex == nil {
			fmt.Printf("No exception on %s.\n", date)
			return nil
		}
		until := "open-ended"
		if ex.EndDate != nil {
			until = "until " + ex.EndDate.String()
		}
		fmt.Printf("%s since %s, %s\n", ex.Type, ex.StartDate, until)
		if ex.Reason != "" {
			fmt.Printf("Reason: %s\n", ex.Reason)
		}
		return nil
	},
}

var checkinCmd = &cobra.Command{
	Use:   "checkin <green|amber|red>",
	Short: "Record a readiness check-in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		predicted, err := readiness.ParseReadiness(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date", trackerService.Today())
		if err != nil {
			return err
		}
		atStr, _ := cmd.Flags().GetString("at")
		at, err := parseAt(atStr, date, cfg.GetLocation(), cfg.Now())
		if err != nil {
			return err
		}

		d, err := trackerService.CheckIn(cmd.Context(), worker, date, at, predicted)
		if err != nil {
			return err
		}
		timing := "on time"
		if d.Schedule.CheckInWindow != nil && !d.CheckInOnTime {
			timing = "outside the check-in window"
		}
		fmt.Printf("Checked in %s at %s (%s)\n", predicted, at.In(cfg.GetLocation()).Format("15:04"), timing)
		printDay(d)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <exercise-id>",
	Short: "Mark a warm-up exercise done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := workerFlag(cmd)
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date", trackerService.Today())
		if err != nil {
			return err
		}
		p, err := trackerService.CompleteExercise(cmd.Context(), worker, date, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Exercise %s done for %s | Plan %d%% complete\n", args[0], date, p.ProgressPercent)
		return nil
	},
}

func finishPlan(cmd *cobra.Command, finish func(ctx context.Context, worker string) (*readiness.RehabPlan, error)) error {
	worker, err := workerFlag(cmd)
	if err != nil {
		return err
	}
	plan, err := finish(cmd.Context(), worker)
	if err != nil {
		return err
	}
	fmt.Printf("Plan %s is now %s.\n", plan.ID, plan.Status)
	return nil
}

func printDay(d readiness.DayObligation) {
	fmt.Printf("%s | %s | %d%%\n", d.Date.FormatLong(), d.State, d.ProgressPercent)
	fmt.Printf("  Shift:    %s\n", shiftSummary(d.Schedule))
	if d.Exception != nil {
		fmt.Printf("  Excepted: %s\n", d.Exception.Type)
	}
	switch {
	case d.CheckInDone:
		fmt.Printf("  Check-in: %s at %s\n", d.CheckIn.PredictedReadiness, d.CheckIn.At.Format("15:04"))
	case d.CheckInRequired:
		fmt.Println("  Check-in: due")
	}
	if d.WarmUpRequired {
		state := "open"
		if d.WarmUpDone {
			state = "done"
		}
		fmt.Printf("  Warm-up:  day %d %s\n", d.PlanDay, state)
	}
}

func shiftSummary(s readiness.ScheduleResult) string {
	if !s.HasShift {
		return "no shift"
	}
	return fmt.Sprintf("%s %s-%s", s.ShiftType, s.ShiftStart, s.ShiftEnd)
}

func init() {
	dayCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD, default today)")
	dayCmd.Flags().String("to", "", "Show every day up to this date")

	streakCmd.Flags().String("as-of", "", "Evaluate as of this date (YYYY-MM-DD)")

	scheduleCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD, default today)")
	exceptionCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD, default today)")

	checkinCmd.Flags().StringP("date", "d", "", "Shift date (YYYY-MM-DD, default today)")
	checkinCmd.Flags().StringP("at", "t", "", "Check-in time (HH:MM or RFC 3339, default now)")

	completeCmd.Flags().StringP("date", "d", "", "Plan day date (YYYY-MM-DD, default today)")

	planCmd.AddCommand(planCompleteCmd)
	planCmd.AddCommand(planCancelCmd)
}
