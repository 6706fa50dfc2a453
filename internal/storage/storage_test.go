package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "readiness.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func date(s string) calendar.Date { return calendar.MustParseDate(s) }

func TestSchedulesUpsertAndRange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	morning := readiness.ScheduleEntry{
		WorkerID: "w-1", Date: date("2024-03-04"), ShiftType: readiness.ShiftMorning,
		ShiftStart: calendar.Clock(7, 0), ShiftEnd: calendar.Clock(15, 0),
	}
	require.NoError(t, db.UpsertSchedule(ctx, morning))
	require.NoError(t, db.UpsertSchedule(ctx, readiness.ScheduleEntry{
		WorkerID: "w-1", Date: date("2024-03-10"), ShiftType: readiness.ShiftNight,
		ShiftStart: calendar.Clock(22, 0), ShiftEnd: calendar.Clock(30, 0),
	}))

	night := morning
	night.ShiftType = readiness.ShiftAfternoon
	night.ShiftStart = calendar.Clock(14, 0)
	night.ShiftEnd = calendar.Clock(22, 0)
	require.NoError(t, db.UpsertSchedule(ctx, night))

	got, err := db.Schedules(ctx, "w-1", date("2024-03-01"), date("2024-03-07"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, readiness.ShiftAfternoon, got[0].ShiftType)
	assert.Equal(t, calendar.Clock(14, 0), got[0].ShiftStart)
	assert.True(t, got[0].Date.Equal(date("2024-03-04")))

	all, err := db.Schedules(ctx, "w-1", date("2024-03-01"), date("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, calendar.Clock(30, 0), all[1].ShiftEnd)

	other, err := db.Schedules(ctx, "w-2", date("2024-03-01"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestExceptionsOverlap(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	end := date("2024-03-05")
	bad := date("2024-02-01")
	records := []readiness.ExceptionRecord{
		{WorkerID: "w-1", Type: readiness.ExceptionInjury, StartDate: date("2024-03-01"), EndDate: &end, Reason: "sprain"},
		{WorkerID: "w-1", Type: readiness.ExceptionMedicalLeave, StartDate: date("2024-03-20")},
		{WorkerID: "w-1", Type: readiness.ExceptionOther, StartDate: date("2024-02-10"), EndDate: &bad},
	}
	for i := range records {
		require.NoError(t, db.InsertException(ctx, &records[i]))
		assert.NotEmpty(t, records[i].ID)
	}

	got, err := db.Exceptions(ctx, "w-1", date("2024-03-04"), date("2024-03-10"))
	require.NoError(t, err)
	require.Len(t, got, 2, "overlapping range plus the inverted record")
	assert.Equal(t, readiness.ExceptionOther, got[0].Type)
	assert.Equal(t, readiness.ExceptionInjury, got[1].Type)
	assert.Equal(t, "sprain", got[1].Reason)
	require.NotNil(t, got[1].EndDate)

	open, err := db.Exceptions(ctx, "w-1", date("2024-06-01"), date("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Nil(t, open[1].EndDate)
}

func TestCheckInDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2024, 3, 4, 6, 30, 0, 0, time.UTC)
	first := &readiness.CheckInRecord{
		WorkerID: "w-1", Date: date("2024-03-04"), At: at,
		PredictedReadiness: readiness.ReadinessGreen, ShiftType: readiness.ShiftMorning,
	}
	require.NoError(t, db.InsertCheckIn(ctx, first))

	second := &readiness.CheckInRecord{
		WorkerID: "w-1", Date: date("2024-03-04"), At: at.Add(time.Hour),
		PredictedReadiness: readiness.ReadinessRed,
	}
	err := db.InsertCheckIn(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateCheckIn)

	got, err := db.CheckIns(ctx, "w-1", date("2024-03-01"), date("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
	assert.True(t, got[0].At.Equal(at))
	assert.Equal(t, readiness.ReadinessGreen, got[0].PredictedReadiness)
	assert.Equal(t, readiness.ShiftMorning, got[0].ShiftType)
}

func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	none, err := db.ActiveRehabPlan(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	plan := &readiness.RehabPlan{
		WorkerID: "w-1", StartDate: date("2024-03-01"), DurationDays: 14,
		Exercises: []readiness.Exercise{
			{ID: "stretch", Name: "Hamstring stretch", Repetitions: 10},
			{ID: "squat", Name: "Wall squat", Repetitions: 8, Instructions: "Hold 5s"},
		},
	}
	require.NoError(t, db.InsertPlan(ctx, plan))
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, readiness.PlanActive, plan.Status)

	err = db.InsertPlan(ctx, &readiness.RehabPlan{WorkerID: "w-1", StartDate: date("2024-04-01"), DurationDays: 7})
	assert.ErrorIs(t, err, ErrActivePlanExists)

	active, err := db.ActiveRehabPlan(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, plan.ID, active.ID)
	require.Len(t, active.Exercises, 2)
	assert.Equal(t, "stretch", active.Exercises[0].ID)
	assert.Equal(t, "Hold 5s", active.Exercises[1].Instructions)

	assert.Error(t, db.SetPlanStatus(ctx, plan.ID, readiness.PlanActive))
	require.NoError(t, db.SetPlanStatus(ctx, plan.ID, readiness.PlanCompleted))
	assert.ErrorIs(t, db.SetPlanStatus(ctx, plan.ID, readiness.PlanCancelled), ErrPlanNotActive)
	assert.ErrorIs(t, db.SetPlanStatus(ctx, "missing", readiness.PlanCancelled), ErrPlanNotFound)

	none, err = db.ActiveRehabPlan(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = db.Plan(ctx, "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCompletionsIgnoreRepeats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	plan := &readiness.RehabPlan{
		WorkerID: "w-1", StartDate: date("2024-03-01"), DurationDays: 7,
		Exercises: []readiness.Exercise{{ID: "stretch", Name: "Stretch"}},
	}
	require.NoError(t, db.InsertPlan(ctx, plan))

	c := readiness.ExerciseCompletion{PlanID: plan.ID, Date: date("2024-03-02"), ExerciseID: "stretch"}
	require.NoError(t, db.InsertCompletion(ctx, c))
	require.NoError(t, db.InsertCompletion(ctx, c))

	got, err := db.ExerciseCompletions(ctx, plan.ID, date("2024-03-01"), date("2024-03-07"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stretch", got[0].ExerciseID)
}

func TestImportIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2024, 3, 4, 6, 30, 0, 0, time.UTC)
	batch := Batch{
		Schedules: []readiness.ScheduleEntry{{
			WorkerID: "w-1", Date: date("2024-03-04"), ShiftType: readiness.ShiftMorning,
			ShiftStart: calendar.Clock(7, 0), ShiftEnd: calendar.Clock(15, 0),
		}},
		CheckIns: []readiness.CheckInRecord{
			{WorkerID: "w-1", Date: date("2024-03-04"), At: at, PredictedReadiness: readiness.ReadinessGreen},
			{WorkerID: "w-1", Date: date("2024-03-04"), At: at, PredictedReadiness: readiness.ReadinessAmber},
		},
	}
	assert.Equal(t, 3, batch.Len())

	err := db.Import(ctx, batch)
	assert.ErrorIs(t, err, ErrDuplicateCheckIn)

	got, err := db.Schedules(ctx, "w-1", date("2024-03-01"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Empty(t, got, "failed import must not leave partial rows")

	batch.CheckIns = batch.CheckIns[:1]
	batch.CheckIns[0].ID = ""
	require.NoError(t, db.Import(ctx, batch))

	checkIns, err := db.CheckIns(ctx, "w-1", date("2024-03-01"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Len(t, checkIns, 1)
}

func TestInsertPlanRejectsInvalidDuration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, duration := range []int{0, -3, 366} {
		err := db.InsertPlan(ctx, &readiness.RehabPlan{WorkerID: "w-1", StartDate: date("2024-03-01"), DurationDays: duration})
		var invalid *readiness.InvalidPlanRangeError
		require.ErrorAs(t, err, &invalid, "duration %d", duration)
		assert.Equal(t, duration, invalid.DurationDays)
	}

	none, err := db.ActiveRehabPlan(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, db.InsertPlan(ctx, &readiness.RehabPlan{WorkerID: "w-1", StartDate: date("2024-03-01"), DurationDays: 365}))
}
