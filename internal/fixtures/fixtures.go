// Package fixtures reads YAML record files into a storage batch.
package fixtures

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/storage"
)

// File is the on-disk layout of a fixture file.
type File struct {
	Schedules   []Schedule   `yaml:"schedules" validate:"dive"`
	Exceptions  []Exception  `yaml:"exceptions" validate:"dive"`
	CheckIns    []CheckIn    `yaml:"check_ins" validate:"dive"`
	Plans       []Plan       `yaml:"plans" validate:"dive"`
	Completions []Completion `yaml:"completions" validate:"dive"`
}

type Schedule struct {
	WorkerID   string `yaml:"worker_id" validate:"required"`
	Date       string `yaml:"date" validate:"required,isodate"`
	ShiftType  string `yaml:"shift_type" validate:"required,oneof=morning afternoon night flexible"`
	ShiftStart string `yaml:"shift_start" validate:"omitempty,clock"`
	ShiftEnd   string `yaml:"shift_end" validate:"omitempty,clock"`
}

type Exception struct {
	ID         string `yaml:"id"`
	WorkerID   string `yaml:"worker_id" validate:"required"`
	Type       string `yaml:"type" validate:"required,oneof=injury medical_leave accident transfer other"`
	StartDate  string `yaml:"start_date" validate:"required,isodate"`
	EndDate    string `yaml:"end_date" validate:"omitempty,isodate"`
	Reason     string `yaml:"reason"`
	CaseStatus string `yaml:"case_status"`
}

type CheckIn struct {
	ID                 string `yaml:"id"`
	WorkerID           string `yaml:"worker_id" validate:"required"`
	Date               string `yaml:"date" validate:"required,isodate"`
	At                 string `yaml:"at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	PredictedReadiness string `yaml:"predicted_readiness" validate:"required,oneof=green amber red"`
	ShiftType          string `yaml:"shift_type" validate:"omitempty,oneof=morning afternoon night flexible"`
}

type Plan struct {
	ID           string     `yaml:"id"`
	WorkerID     string     `yaml:"worker_id" validate:"required"`
	StartDate    string     `yaml:"start_date" validate:"required,isodate"`
	DurationDays int        `yaml:"duration_days" validate:"required,min=1,max=365"`
	Status       string     `yaml:"status" validate:"omitempty,oneof=active completed cancelled"`
	Exercises    []Exercise `yaml:"exercises" validate:"dive"`
}

type Exercise struct {
	ID           string `yaml:"id" validate:"required"`
	Name         string `yaml:"name" validate:"required"`
	Repetitions  int    `yaml:"repetitions" validate:"min=0"`
	Instructions string `yaml:"instructions"`
}

type Completion struct {
	PlanID     string `yaml:"plan_id" validate:"required"`
	Date       string `yaml:"date" validate:"required,isodate"`
	ExerciseID string `yaml:"exercise_id" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads and validates the fixture file at path.
func Load(path string) (storage.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storage.Batch{}, fmt.Errorf("fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML fixture data. Every record is validated before any is
// converted, so a bad file yields no batch at all.
func Parse(data []byte) (storage.Batch, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return storage.Batch{}, fmt.Errorf("fixtures: parse: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return storage.Batch{}, describe(err)
	}
	return f.Batch()
}

// Batch converts validated records into engine types.
func (f File) Batch() (storage.Batch, error) {
	var b storage.Batch
	for _, s := range f.Schedules {
		start, _ := calendar.ParseClock(orDefault(s.ShiftStart))
		end, _ := calendar.ParseClock(orDefault(s.ShiftEnd))
		b.Schedules = append(b.Schedules, readiness.ScheduleEntry{
			WorkerID:   s.WorkerID,
			Date:       calendar.MustParseDate(s.Date),
			ShiftType:  readiness.ShiftType(s.ShiftType),
			ShiftStart: start,
			ShiftEnd:   end,
		})
	}
	for _, e := range f.Exceptions {
		rec := readiness.ExceptionRecord{
			ID:         e.ID,
			WorkerID:   e.WorkerID,
			Type:       readiness.ExceptionType(e.Type),
			StartDate:  calendar.MustParseDate(e.StartDate),
			Reason:     e.Reason,
			CaseStatus: e.CaseStatus,
		}
		if e.EndDate != "" {
			end := calendar.MustParseDate(e.EndDate)
			rec.EndDate = &end
		}
		b.Exceptions = append(b.Exceptions, rec)
	}
	for _, c := range f.CheckIns {
		at, err := time.Parse(time.RFC3339, c.At)
		if err != nil {
			return storage.Batch{}, fmt.Errorf("fixtures: check-in for %s: %w", c.WorkerID, err)
		}
		b.CheckIns = append(b.CheckIns, readiness.CheckInRecord{
			ID:                 c.ID,
			WorkerID:           c.WorkerID,
			Date:               calendar.MustParseDate(c.Date),
			At:                 at,
			PredictedReadiness: readiness.Readiness(c.PredictedReadiness),
			ShiftType:          readiness.ShiftType(c.ShiftType),
		})
	}
	for _, p := range f.Plans {
		plan := readiness.RehabPlan{
			ID:           p.ID,
			WorkerID:     p.WorkerID,
			StartDate:    calendar.MustParseDate(p.StartDate),
			DurationDays: p.DurationDays,
			Status:       readiness.PlanStatus(p.Status),
		}
		for _, ex := range p.Exercises {
			plan.Exercises = append(plan.Exercises, readiness.Exercise{
				ID:           ex.ID,
				Name:         ex.Name,
				Repetitions:  ex.Repetitions,
				Instructions: ex.Instructions,
			})
		}
		b.Plans = append(b.Plans, plan)
	}
	for _, c := range f.Completions {
		b.Completions = append(b.Completions, readiness.ExerciseCompletion{
			PlanID:     c.PlanID,
			Date:       calendar.MustParseDate(c.Date),
			ExerciseID: c.ExerciseID,
		})
	}
	return b, nil
}

// orDefault maps an omitted clock to midnight; flexible shifts use that to
// mean "no bounds".
func orDefault(s string) string {
	if s == "" {
		return "00:00"
	}
	return s
}

// describe flattens validator output into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("fixtures: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "File.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %q)", field, fe.Tag(), fe.Param(), fmt.Sprint(fe.Value())))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %q)", field, fe.Tag(), fmt.Sprint(fe.Value())))
		}
	}
	return fmt.Errorf("fixtures: invalid records: %s", strings.Join(msgs, "; "))
}
