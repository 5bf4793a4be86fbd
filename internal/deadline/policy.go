package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faceattend/internal/model"
)

// ErrConfiguration marks session setups that cannot produce deadlines.
var ErrConfiguration = errors.New("attendance configuration error")

// ScheduleFinder looks up the schedule for a weekday; it returns nil, nil when none exists.
type ScheduleFinder interface {
	ScheduleForDay(ctx context.Context, day time.Weekday) (*model.Schedule, error)
}

// Window holds the two deadlines of a session. It never changes after Compute.
type Window struct {
	Late  time.Time `json:"late_deadline"`
	Final time.Time `json:"deadline"`
}

// Classify maps an arrival to Present (up to and including Late) or Late.
// Arrivals are only classified while the session is open, so it never yields Absent.
func (w Window) Classify(arrival time.Time) model.Status {
	if !arrival.After(w.Late) {
		return model.StatusPresent
	}
	return model.StatusLate
}

// Expired reports whether now is past the final deadline.
func (w Window) Expired(now time.Time) bool {
	return now.After(w.Final)
}

// Compute resolves the session deadlines once, at session start.
func Compute(ctx context.Context, cfg SessionConfig, now time.Time, schedules ScheduleFinder) (Window, error) {
	switch c := cfg.(type) {
	case Manual:
		late, err := resolve(c.Late, now)
		if err != nil {
			return Window{}, fmt.Errorf("late deadline: %w", err)
		}
		final, err := resolve(c.Final, now)
		if err != nil {
			return Window{}, fmt.Errorf("final deadline: %w", err)
		}
		return Window{Late: late, Final: final}, nil
	case Scheduled:
		return fromSchedule(ctx, c, now, schedules)
	case nil:
		return Window{}, fmt.Errorf("%w: no session configuration", ErrConfiguration)
	}
	return Window{}, fmt.Errorf("%w: unsupported session configuration %T", ErrConfiguration, cfg)
}

func resolve(r Rule, now time.Time) (time.Time, error) {
	switch r := r.(type) {
	case ExplicitTime:
		tod := model.TimeOfDay{Hour: r.Hour, Minute: r.Minute}
		if err := tod.Validate(); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return rollForward(tod.On(now), now), nil
	case Duration:
		if r.Minutes < 0 {
			return time.Time{}, fmt.Errorf("%w: negative duration %d", ErrConfiguration, r.Minutes)
		}
		return now.Add(time.Duration(r.Minutes) * time.Minute), nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing rule", ErrConfiguration)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported rule %T", ErrConfiguration, r)
}

func fromSchedule(ctx context.Context, c Scheduled, now time.Time, schedules ScheduleFinder) (Window, error) {
	if schedules == nil {
		return Window{}, fmt.Errorf("%w: no schedule source", ErrConfiguration)
	}
	s, err := schedules.ScheduleForDay(ctx, now.Weekday())
	if err != nil {
		return Window{}, fmt.Errorf("load schedule: %w", err)
	}
	if s == nil {
		return Window{}, fmt.Errorf("%w: no schedule for %s", ErrConfiguration, now.Weekday())
	}
	if c.ScheduleID != "" && s.ID != c.ScheduleID {
		return Window{}, fmt.Errorf("%w: schedule %s is not in force on %s", ErrConfiguration, c.ScheduleID, now.Weekday())
	}
	return Window{
		Late:  rollForward(s.Late.On(now), now),
		Final: rollForward(s.End.On(now), now),
	}, nil
}

// rollForward moves t to the next day when it is already behind now.
func rollForward(t, now time.Time) time.Time {
	if t.Before(now) {
		return t.AddDate(0, 0, 1)
	}
	return t
}
