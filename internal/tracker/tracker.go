package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/logging"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/work"
)

var (
	// ErrNoActivePlan is returned when a plan operation finds no active plan.
	ErrNoActivePlan = errors.New("worker has no active rehabilitation plan")
	// ErrUnknownExercise is returned for completions of exercises outside the plan.
	ErrUnknownExercise = errors.New("exercise is not part of the active plan")
	// ErrOutsidePlan is returned for completions dated outside the plan's days.
	ErrOutsidePlan = errors.New("date is outside the rehabilitation plan")
)

// Source is the read side of the data store.
type Source interface {
	Schedules(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.ScheduleEntry, error)
	Exceptions(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.ExceptionRecord, error)
	CheckIns(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.CheckInRecord, error)
	ActiveRehabPlan(ctx context.Context, workerID string) (*readiness.RehabPlan, error)
	ExerciseCompletions(ctx context.Context, planID string, from, to calendar.Date) ([]readiness.ExerciseCompletion, error)
}

// Store adds the writes the tracker performs on behalf of workers.
type Store interface {
	Source
	InsertCheckIn(ctx context.Context, rec *readiness.CheckInRecord) error
	InsertCompletion(ctx context.Context, c readiness.ExerciseCompletion) error
	SetPlanStatus(ctx context.Context, id string, status readiness.PlanStatus) error
}

// Options tunes a Tracker. Zero values fall back to defaults.
type Options struct {
	StreakLookbackDays int
	CacheSize          int
	Now                func() time.Time
	Logger             *logging.Logger
}

// Tracker assembles snapshots from the store and runs the engine over them.
// Concurrent requests for the same worker and date share one evaluation, and
// a result that finishes after a newer one for the same key is discarded.
type Tracker struct {
	store    Store
	engine   *readiness.Engine
	lookback int
	now      func() time.Time
	log      *logging.Logger

	group   singleflight.Group
	seq     atomic.Uint64
	mu      sync.Mutex
	results *lru.Cache[string, published]
}

type published struct {
	seq   uint64
	value any
}

func New(store Store, engine *readiness.Engine, opts Options) *Tracker {
	if opts.StreakLookbackDays <= 0 {
		opts.StreakLookbackDays = work.DefaultStreakLookbackDays
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	results, err := lru.New[string, published](opts.CacheSize)
	if err != nil {
		// only reachable with a non-positive size, ruled out above
		panic(err)
	}
	return &Tracker{
		store:    store,
		engine:   engine,
		lookback: opts.StreakLookbackDays,
		now:      opts.Now,
		log:      opts.Logger,
		results:  results,
	}
}

// NewWithDefaults builds a Tracker with the default policy in UTC.
func NewWithDefaults(store Store) *Tracker {
	return New(store, readiness.New(readiness.DefaultPolicy(time.UTC)), Options{})
}

// Today is the current date in the engine's zone.
func (t *Tracker) Today() calendar.Date {
	return calendar.Today(t.now(), t.engine.Policy().Location)
}

// Day evaluates the worker's obligation for date.
func (t *Tracker) Day(ctx context.Context, workerID string, date calendar.Date) (readiness.DayObligation, error) {
	key := dayKey(workerID, date)
	return coalesce(ctx, t, key, func(ctx context.Context) (readiness.DayObligation, error) {
		snap, err := t.snapshot(ctx, workerID, date, date)
		if err != nil {
			return readiness.DayObligation{}, err
		}
		return t.engine.EvaluateDay(snap, date)
	})
}

// Days evaluates every date in [from, to] from a single snapshot.
func (t *Tracker) Days(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.DayObligation, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("tracker: range ends %s before it starts %s", to, from)
	}
	snap, err := t.snapshot(ctx, workerID, from, to)
	if err != nil {
		return nil, err
	}
	days := make([]readiness.DayObligation, 0, calendar.DaysBetween(from, to)+1)
	for _, date := range calendar.Range(from, to) {
		day, err := t.engine.EvaluateDay(snap, date)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// Streak computes the worker's streak as of asOf over the lookback window.
// Shifts up to one lookback past asOf count toward TotalScheduledDays.
func (t *Tracker) Streak(ctx context.Context, workerID string, asOf calendar.Date) (readiness.StreakState, error) {
	key := fmt.Sprintf("streak:%s:%s", workerID, asOf)
	return coalesce(ctx, t, key, func(ctx context.Context) (readiness.StreakState, error) {
		from := asOf.AddDays(-(t.lookback - 1))
		snap, err := t.snapshot(ctx, workerID, from, asOf)
		if err != nil {
			return readiness.StreakState{}, err
		}
		upcoming, err := t.store.Schedules(ctx, workerID, asOf.AddDays(1), asOf.AddDays(t.lookback))
		if err != nil {
			return readiness.StreakState{}, t.unavailable(workerID, "schedules", err)
		}
		snap.Schedules = append(snap.Schedules, upcoming...)
		return t.engine.ComputeStreak(snap, asOf)
	})
}

// PlanProgress reports the worker's active plan as of now.
func (t *Tracker) PlanProgress(ctx context.Context, workerID string) (readiness.PlanProgress, error) {
	now := t.now()
	key := planKey(workerID, calendar.Today(now, t.engine.Policy().Location))
	return coalesce(ctx, t, key, func(ctx context.Context) (readiness.PlanProgress, error) {
		plan, err := t.store.ActiveRehabPlan(ctx, workerID)
		if err != nil {
			return readiness.PlanProgress{}, t.unavailable(workerID, "rehab plan", err)
		}
		if plan == nil {
			return readiness.PlanProgress{}, ErrNoActivePlan
		}
		completions, err := t.completions(ctx, workerID, plan, plan.StartDate, plan.LastDate())
		if err != nil {
			return readiness.PlanProgress{}, err
		}
		return t.engine.ComputePlanProgress(*plan, completions, now)
	})
}

// Schedule resolves the worker's shift for date.
func (t *Tracker) Schedule(ctx context.Context, workerID string, date calendar.Date) (readiness.ScheduleResult, error) {
	key := fmt.Sprintf("schedule:%s:%s", workerID, date)
	return coalesce(ctx, t, key, func(ctx context.Context) (readiness.ScheduleResult, error) {
		entries, err := t.store.Schedules(ctx, workerID, date, date)
		if err != nil {
			return readiness.ScheduleResult{}, t.unavailable(workerID, "schedules", err)
		}
		snap := &readiness.Snapshot{WorkerID: workerID, Schedules: entries}
		return t.engine.ResolveSchedule(snap, date)
	})
}

// ActiveException returns the exception covering date, or nil.
func (t *Tracker) ActiveException(ctx context.Context, workerID string, date calendar.Date) (*readiness.ExceptionRecord, error) {
	key := fmt.Sprintf("exception:%s:%s", workerID, date)
	return coalesce(ctx, t, key, func(ctx context.Context) (*readiness.ExceptionRecord, error) {
		records, err := t.store.Exceptions(ctx, workerID, date, date)
		if err != nil {
			return nil, t.unavailable(workerID, "exceptions", err)
		}
		snap := &readiness.Snapshot{WorkerID: workerID, Exceptions: records}
		return t.engine.ActiveExceptionFor(snap, date)
	})
}

// CheckIn records the worker's readiness for date at the given instant and
// returns the day's updated obligation.
func (t *Tracker) CheckIn(ctx context.Context, workerID string, date calendar.Date, at time.Time, predicted readiness.Readiness) (readiness.DayObligation, error) {
	schedule, err := t.Schedule(ctx, workerID, date)
	if err != nil {
		return readiness.DayObligation{}, err
	}
	rec := &readiness.CheckInRecord{
		WorkerID:           workerID,
		Date:               date,
		At:                 at,
		PredictedReadiness: predicted,
	}
	if schedule.HasShift {
		rec.ShiftType = schedule.ShiftType
	}
	if err := t.store.InsertCheckIn(ctx, rec); err != nil {
		return readiness.DayObligation{}, fmt.Errorf("tracker: check-in: %w", err)
	}
	t.log.Infof("check-in %s for %s on %s (%s)", rec.ID, workerID, date, predicted)
	// a flight started before the insert must not answer for it
	t.group.Forget(dayKey(workerID, date))
	return t.Day(ctx, workerID, date)
}

// CompleteExercise marks one exercise of the active plan done on date.
func (t *Tracker) CompleteExercise(ctx context.Context, workerID string, date calendar.Date, exerciseID string) (readiness.PlanProgress, error) {
	plan, err := t.activePlan(ctx, workerID)
	if err != nil {
		return readiness.PlanProgress{}, err
	}
	if plan.DayOf(date) == 0 {
		return readiness.PlanProgress{}, fmt.Errorf("tracker: %s: %w", date, ErrOutsidePlan)
	}
	known := false
	for _, ex := range plan.Exercises {
		if ex.ID == exerciseID {
			known = true
			break
		}
	}
	if !known {
		return readiness.PlanProgress{}, fmt.Errorf("tracker: %q: %w", exerciseID, ErrUnknownExercise)
	}
	c := readiness.ExerciseCompletion{PlanID: plan.ID, Date: date, ExerciseID: exerciseID}
	if err := t.store.InsertCompletion(ctx, c); err != nil {
		return readiness.PlanProgress{}, fmt.Errorf("tracker: complete exercise: %w", err)
	}
	t.group.Forget(dayKey(workerID, date))
	t.group.Forget(planKey(workerID, t.Today()))
	return t.PlanProgress(ctx, workerID)
}

// CompletePlan marks the worker's active plan completed.
func (t *Tracker) CompletePlan(ctx context.Context, workerID string) (*readiness.RehabPlan, error) {
	return t.finishPlan(ctx, workerID, readiness.PlanCompleted)
}

// CancelPlan marks the worker's active plan cancelled.
func (t *Tracker) CancelPlan(ctx context.Context, workerID string) (*readiness.RehabPlan, error) {
	return t.finishPlan(ctx, workerID, readiness.PlanCancelled)
}

func (t *Tracker) finishPlan(ctx context.Context, workerID string, status readiness.PlanStatus) (*readiness.RehabPlan, error) {
	plan, err := t.activePlan(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if err := t.store.SetPlanStatus(ctx, plan.ID, status); err != nil {
		return nil, fmt.Errorf("tracker: %s plan %s: %w", status, plan.ID, err)
	}
	plan.Status = status
	t.log.Infof("plan %s for %s is now %s", plan.ID, workerID, status)
	return plan, nil
}

func (t *Tracker) activePlan(ctx context.Context, workerID string) (*readiness.RehabPlan, error) {
	plan, err := t.store.ActiveRehabPlan(ctx, workerID)
	if err != nil {
		return nil, t.unavailable(workerID, "rehab plan", err)
	}
	if plan == nil {
		return nil, ErrNoActivePlan
	}
	return plan, nil
}

// snapshot loads the worker's records dated in [from, to] along with the
// active plan and its completions in that range.
func (t *Tracker) snapshot(ctx context.Context, workerID string, from, to calendar.Date) (*readiness.Snapshot, error) {
	snap := &readiness.Snapshot{WorkerID: workerID}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entries, err := t.store.Schedules(ctx, workerID, from, to)
		if err != nil {
			return t.unavailable(workerID, "schedules", err)
		}
		snap.Schedules = entries
		return nil
	})
	g.Go(func() error {
		records, err := t.store.Exceptions(ctx, workerID, from, to)
		if err != nil {
			return t.unavailable(workerID, "exceptions", err)
		}
		snap.Exceptions = records
		return nil
	})
	g.Go(func() error {
		records, err := t.store.CheckIns(ctx, workerID, from, to)
		if err != nil {
			return t.unavailable(workerID, "check-ins", err)
		}
		snap.CheckIns = records
		return nil
	})
	g.Go(func() error {
		plan, err := t.store.ActiveRehabPlan(ctx, workerID)
		if err != nil {
			return t.unavailable(workerID, "rehab plan", err)
		}
		if plan == nil {
			return nil
		}
		completions, err := t.completions(ctx, workerID, plan, from, to)
		if err != nil {
			return err
		}
		snap.Plan = plan
		snap.Completions = completions
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (t *Tracker) completions(ctx context.Context, workerID string, plan *readiness.RehabPlan, from, to calendar.Date) ([]readiness.ExerciseCompletion, error) {
	completions, err := t.store.ExerciseCompletions(ctx, plan.ID, from, to)
	if err != nil {
		return nil, t.unavailable(workerID, "exercise completions", err)
	}
	return completions, nil
}

func (t *Tracker) unavailable(workerID, source string, err error) error {
	t.log.Errorf("%s for %s unavailable: %v", source, workerID, err)
	return readiness.Unavailable(source, err)
}

func dayKey(workerID string, date calendar.Date) string {
	return fmt.Sprintf("day:%s:%s", workerID, date)
}

func planKey(workerID string, today calendar.Date) string {
	return fmt.Sprintf("plan:%s:%s", workerID, today)
}

// coalesce runs fn once per key among concurrent callers and publishes the
// result under a sequence number. A result older than the newest published
// one for the key is dropped in favour of the newer result.
func coalesce[T any](ctx context.Context, t *Tracker, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := t.group.DoChan(key, func() (any, error) {
		seq := t.seq.Add(1)
		// detached so one caller's cancellation does not fail the others
		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return t.publish(key, seq, v), nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (t *Tracker) publish(key string, seq uint64, value any) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.results.Get(key); ok && prev.seq > seq {
		t.log.Warnf("discarding stale result for %s (seq %d < %d)", key, seq, prev.seq)
		return prev.value
	}
	t.results.Add(key, published{seq: seq, value: value})
	return value
}
