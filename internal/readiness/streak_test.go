package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readiness/internal/calendar"
)

// weekdays returns morning shifts for every Mon-Fri between from and to.
func weekdays(from, to string) []ScheduleEntry {
	var out []ScheduleEntry
	for _, d := range calendar.Range(day(from), day(to)) {
		if d.Weekday() >= 1 && d.Weekday() <= 5 {
			out = append(out, morning(d.String()))
		}
	}
	return out
}

func checkInsFor(entries []ScheduleEntry, skip ...string) []CheckInRecord {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var out []CheckInRecord
	for _, e := range entries {
		if skipped[e.Date.String()] {
			continue
		}
		out = append(out, checkIn(e.Date.String(), 7, 40))
	}
	return out
}

func TestComputeStreakConsecutive(t *testing.T) {
	e := newEngine()
	// Mon 2024-01-01 .. Fri 2024-01-12: ten shifts
	schedules := weekdays("2024-01-01", "2024-01-12")
	snap := &Snapshot{WorkerID: worker, Schedules: schedules, CheckIns: checkInsFor(schedules)}

	state, err := e.ComputeStreak(snap, day("2024-01-12"))
	require.NoError(t, err)
	assert.Equal(t, 10, state.CurrentStreak)
	assert.Equal(t, 10, state.LongestStreak)
	assert.Equal(t, 10, state.CompletedDays)
	assert.Equal(t, 10, state.TotalScheduledDays)
	assert.Equal(t, 9, state.PastScheduledDays)
	assert.Empty(t, state.MissedScheduleDates)
	assert.Equal(t, 14, state.NextMilestone)
	assert.True(t, state.Badge.HasSevenDayBadge)
	assert.Equal(t, 7, state.Badge.HighestMilestone)
}

func TestComputeStreakMissedDayResets(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-01-01", "2024-01-12")
	snap := &Snapshot{WorkerID: worker, Schedules: schedules, CheckIns: checkInsFor(schedules, "2024-01-05")}

	state, err := e.ComputeStreak(snap, day("2024-01-12"))
	require.NoError(t, err)
	assert.Equal(t, 5, state.CurrentStreak, "Mon 8th .. Fri 12th")
	assert.Equal(t, 5, state.LongestStreak)
	assert.Equal(t, 9, state.CompletedDays)
	require.Len(t, state.MissedScheduleDates, 1)
	assert.Equal(t, "2024-01-05", state.MissedScheduleDates[0].String())
	assert.False(t, state.Badge.HasSevenDayBadge)
	assert.Equal(t, 7, state.NextMilestone)
}

func TestComputeStreakTodayPendingNotMissed(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-01-01", "2024-01-05")
	snap := &Snapshot{WorkerID: worker, Schedules: schedules, CheckIns: checkInsFor(schedules, "2024-01-05")}

	state, err := e.ComputeStreak(snap, day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 4, state.CurrentStreak)
	assert.Empty(t, state.MissedScheduleDates)
}

func TestComputeStreakSkipsExceptedAndUnscheduled(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-01-01", "2024-01-12")
	snap := &Snapshot{
		WorkerID:  worker,
		Schedules: schedules,
		// no check-ins during the injury
		CheckIns: checkInsFor(schedules, "2024-01-03", "2024-01-04", "2024-01-05"),
		Exceptions: []ExceptionRecord{
			{ID: "ex-1", WorkerID: worker, Type: ExceptionInjury, StartDate: day("2024-01-03"), EndDate: datePtr("2024-01-05")},
		},
	}

	state, err := e.ComputeStreak(snap, day("2024-01-12"))
	require.NoError(t, err)
	assert.Equal(t, 7, state.CurrentStreak, "excepted days and the weekend neither break nor extend")
	assert.Empty(t, state.MissedScheduleDates, "an excepted day is never missed")
	assert.True(t, state.Badge.HasSevenDayBadge)
}

func TestComputeStreakMonotonic(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-01-01", "2024-01-10")
	snap := &Snapshot{WorkerID: worker, Schedules: schedules, CheckIns: checkInsFor(schedules, "2024-01-10")}

	d, err := e.ComputeStreak(snap, day("2024-01-08"))
	require.NoError(t, err)
	next, err := e.ComputeStreak(snap, day("2024-01-09"))
	require.NoError(t, err)
	assert.Equal(t, d.CurrentStreak+1, next.CurrentStreak, "newly complete day adds exactly one")

	// Saturday: no shift, streak holds
	sat, err := e.ComputeStreak(&Snapshot{WorkerID: worker, Schedules: weekdays("2024-01-01", "2024-01-05"),
		CheckIns: checkInsFor(weekdays("2024-01-01", "2024-01-05"))}, day("2024-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 5, sat.CurrentStreak)

	today, err := e.ComputeStreak(snap, day("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, next.CurrentStreak, today.CurrentStreak, "pending today leaves the streak alone")
	later, err := e.ComputeStreak(snap, day("2024-01-11"))
	require.NoError(t, err)
	assert.Equal(t, 0, later.CurrentStreak, "the pending day is now in the past and breaks the streak")
	require.Len(t, later.MissedScheduleDates, 1)
}

func TestComputeStreakFutureShiftsCounted(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-01-01", "2024-01-12")
	snap := &Snapshot{WorkerID: worker, Schedules: schedules, CheckIns: checkInsFor(schedules)}

	state, err := e.ComputeStreak(snap, day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 10, state.TotalScheduledDays)
	assert.Equal(t, 2, state.PastScheduledDays)
}

func TestComputeStreakRehabOnlyDaysNotMissed(t *testing.T) {
	e := newEngine()
	schedules := weekdays("2024-02-01", "2024-02-02")
	snap := &Snapshot{
		WorkerID:  worker,
		Schedules: schedules,
		CheckIns:  checkInsFor(schedules),
		Plan:      rehabPlan("2024-02-01", 5),
	}
	snap.Completions = append(allExercises("2024-02-01"), allExercises("2024-02-02")...)

	// Sat/Sun 3rd-4th are plan days without shifts and without warm-ups
	state, err := e.ComputeStreak(snap, day("2024-02-05"))
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentStreak)
	assert.Empty(t, state.MissedScheduleDates)
}

func TestComputeStreakNoSchedule(t *testing.T) {
	e := newEngine()
	state, err := e.ComputeStreak(&Snapshot{WorkerID: worker}, day("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 7, state.NextMilestone)
	assert.NotNil(t, state.MissedScheduleDates)
}

func TestComputeStreakInvalidData(t *testing.T) {
	e := newEngine()
	snap := &Snapshot{WorkerID: worker, Schedules: []ScheduleEntry{shift("2024-01-02", calendar.Clock(10, 0), calendar.Clock(9, 0))}}

	_, err := e.ComputeStreak(snap, day("2024-01-05"))
	var invalid *InvalidScheduleError
	require.ErrorAs(t, err, &invalid)

	_, err = e.ComputeStreak(nil, day("2024-01-05"))
	var unavailable *DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
}
