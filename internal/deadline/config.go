package deadline

import (
	"encoding/json"
	"fmt"

	"faceattend/internal/model"
)

// Rule resolves one deadline relative to the session start.
type Rule interface {
	isRule()
}

// ExplicitTime is a wall-clock deadline on the session day.
type ExplicitTime struct {
	Hour   int
	Minute int
}

// Duration is a deadline a number of minutes after the session starts.
type Duration struct {
	Minutes int
}

func (ExplicitTime) isRule() {}
func (Duration) isRule()     {}

// SessionConfig is either Manual or Scheduled.
type SessionConfig interface {
	isSessionConfig()
}

// Manual sets the late and final deadlines independently.
type Manual struct {
	Late  Rule
	Final Rule
}

// Scheduled takes the deadlines from today's weekday schedule.
// ScheduleID, when set, pins the schedule the operator expects to be in force.
type Scheduled struct {
	ScheduleID string
}

func (Manual) isSessionConfig()    {}
func (Scheduled) isSessionConfig() {}

// ruleJSON is the wire shape of a Rule:
// {"time": "09:15"} | {"hour": 9, "minute": 15} | {"minutes": 10}.
type ruleJSON struct {
	Time    string `json:"time,omitempty"`
	Hour    *int   `json:"hour,omitempty"`
	Minute  *int   `json:"minute,omitempty"`
	Minutes *int   `json:"minutes,omitempty"`
}

func decodeRule(raw json.RawMessage) (Rule, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing deadline rule", ErrConfiguration)
	}
	var r ruleJSON
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	switch {
	case r.Minutes != nil:
		return Duration{Minutes: *r.Minutes}, nil
	case r.Time != "":
		t, err := model.ParseTimeOfDay(r.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return ExplicitTime{Hour: t.Hour, Minute: t.Minute}, nil
	case r.Hour != nil:
		m := 0
		if r.Minute != nil {
			m = *r.Minute
		}
		return ExplicitTime{Hour: *r.Hour, Minute: m}, nil
	}
	return nil, fmt.Errorf("%w: deadline rule needs time, hour/minute or minutes", ErrConfiguration)
}

// DecodeSessionConfig parses
// {"mode":"manual","late":{...},"final":{...}} or {"mode":"schedule","schedule_id":"..."}.
func DecodeSessionConfig(data []byte) (SessionConfig, error) {
	var env struct {
		Mode       string          `json:"mode"`
		Late       json.RawMessage `json:"late"`
		Final      json.RawMessage `json:"final"`
		ScheduleID string          `json:"schedule_id"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	switch env.Mode {
	case "manual":
		late, err := decodeRule(env.Late)
		if err != nil {
			return nil, fmt.Errorf("late: %w", err)
		}
		final, err := decodeRule(env.Final)
		if err != nil {
			return nil, fmt.Errorf("final: %w", err)
		}
		return Manual{Late: late, Final: final}, nil
	case "schedule", "scheduled":
		return Scheduled{ScheduleID: env.ScheduleID}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrConfiguration, env.Mode)
}
