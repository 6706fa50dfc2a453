// Package readiness decides, for one worker and one calendar day, what the
// worker owes (a check-in, a rehabilitation warm-up, or nothing) and rolls
// those days up into streaks and plan progress.
//
// Every operation is a pure function of a Snapshot plus an explicit date or
// instant. The package never reads the system clock and never fetches data;
// callers assemble the snapshot (see internal/tracker) and pass "now" in.
package readiness

import (
	"time"

	"github.com/readiness/internal/work"
)

// Policy holds the tunable rules. DefaultPolicy mirrors internal/work.
type Policy struct {
	CheckInLead     time.Duration
	CheckInLag      time.Duration
	RecommendedLead time.Duration
	Milestones      []int
	MaxPlanDays     int
	// Location turns calendar dates into instants for check-in windows and
	// warm-up unlock times.
	Location *time.Location
}

// DefaultPolicy returns the site-wide rules from internal/work in loc.
func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{
		CheckInLead:     work.CheckInLead(),
		CheckInLag:      work.CheckInLag(),
		RecommendedLead: work.RecommendedLeadMinutes * time.Minute,
		Milestones:      work.StreakMilestones,
		MaxPlanDays:     work.MaxPlanDays,
		Location:        loc,
	}
}

// Engine evaluates snapshots under a fixed Policy. It has no mutable state and
// is safe for concurrent use.
type Engine struct {
	policy Policy
}

// New returns an Engine for policy, filling unset fields from DefaultPolicy.
func New(policy Policy) *Engine {
	def := DefaultPolicy(policy.Location)
	if policy.Location == nil {
		policy.Location = def.Location
	}
	if policy.CheckInLead <= 0 {
		policy.CheckInLead = def.CheckInLead
	}
	if policy.CheckInLag <= 0 {
		policy.CheckInLag = def.CheckInLag
	}
	if policy.RecommendedLead <= 0 {
		policy.RecommendedLead = def.RecommendedLead
	}
	if len(policy.Milestones) == 0 {
		policy.Milestones = def.Milestones
	}
	if policy.MaxPlanDays <= 0 {
		policy.MaxPlanDays = def.MaxPlanDays
	}
	return &Engine{policy: policy}
}

// Policy returns the rules the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}
