package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

const sample = `
schedules:
  - worker_id: w-1
    date: "2024-03-04"
    shift_type: morning
    shift_start: "07:00"
    shift_end: "15:00"
  - worker_id: w-1
    date: "2024-03-05"
    shift_type: night
    shift_start: "22:00"
    shift_end: "30:00"
  - worker_id: w-1
    date: "2024-03-06"
    shift_type: flexible
exceptions:
  - worker_id: w-1
    type: injury
    start_date: "2024-03-10"
    end_date: "2024-03-14"
    reason: wrist sprain
  - worker_id: w-1
    type: medical_leave
    start_date: "2024-04-01"
check_ins:
  - worker_id: w-1
    date: "2024-03-04"
    at: "2024-03-04T06:40:00Z"
    predicted_readiness: green
plans:
  - id: plan-1
    worker_id: w-1
    start_date: "2024-03-10"
    duration_days: 14
    exercises:
      - id: stretch
        name: Wrist stretch
        repetitions: 10
      - id: grip
        name: Grip squeeze
        repetitions: 15
        instructions: Use the soft ball
completions:
  - plan_id: plan-1
    date: "2024-03-10"
    exercise_id: stretch
`

func TestParseSample(t *testing.T) {
	b, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 8, b.Len())
	require.Len(t, b.Schedules, 3)
	assert.Equal(t, readiness.ShiftNight, b.Schedules[1].ShiftType)
	assert.Equal(t, calendar.Clock(30, 0), b.Schedules[1].ShiftEnd)
	assert.Equal(t, calendar.ClockTime(0), b.Schedules[2].ShiftStart, "flexible without bounds")

	require.Len(t, b.Exceptions, 2)
	require.NotNil(t, b.Exceptions[0].EndDate)
	assert.Equal(t, "2024-03-14", b.Exceptions[0].EndDate.String())
	assert.Nil(t, b.Exceptions[1].EndDate)

	require.Len(t, b.CheckIns, 1)
	assert.Equal(t, readiness.ReadinessGreen, b.CheckIns[0].PredictedReadiness)
	assert.Equal(t, 6, b.CheckIns[0].At.Hour())

	require.Len(t, b.Plans, 1)
	assert.Equal(t, "Use the soft ball", b.Plans[0].Exercises[1].Instructions)
	assert.Equal(t, readiness.PlanStatus(""), b.Plans[0].Status, "status defaults on insert")

	require.Len(t, b.Completions, 1)
	assert.Equal(t, "stretch", b.Completions[0].ExerciseID)
}

func TestParseRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown shift type",
			yaml: "schedules:\n  - worker_id: w-1\n    date: \"2024-03-04\"\n    shift_type: evening\n",
			want: "Schedules[0].ShiftType",
		},
		{
			name: "bad clock",
			yaml: "schedules:\n  - worker_id: w-1\n    date: \"2024-03-04\"\n    shift_type: morning\n    shift_start: \"7am\"\n",
			want: "Schedules[0].ShiftStart",
		},
		{
			name: "missing worker",
			yaml: "exceptions:\n  - type: injury\n    start_date: \"2024-03-04\"\n",
			want: "Exceptions[0].WorkerID",
		},
		{
			name: "bad date",
			yaml: "completions:\n  - plan_id: p\n    date: \"2024-02-30\"\n    exercise_id: e\n",
			want: "Completions[0].Date",
		},
		{
			name: "plan too long",
			yaml: "plans:\n  - worker_id: w-1\n    start_date: \"2024-03-04\"\n    duration_days: 400\n",
			want: "Plans[0].DurationDays",
		},
		{
			name: "exercise without id",
			yaml: "plans:\n  - worker_id: w-1\n    start_date: \"2024-03-04\"\n    duration_days: 7\n    exercises:\n      - name: Squat\n",
			want: "Plans[0].Exercises[0].ID",
		},
		{
			name: "bad timestamp",
			yaml: "check_ins:\n  - worker_id: w-1\n    date: \"2024-03-04\"\n    at: \"06:40\"\n    predicted_readiness: green\n",
			want: "CheckIns[0].At",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("schedules: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Schedules, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
