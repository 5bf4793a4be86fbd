package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the attendance outcome stored for a student on a given day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusAbsent  Status = "Absent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// Student represents an enrolled student.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	FatherName string `json:"father_name"`
	Faculty    string `json:"faculty"`
	Direction  string `json:"direction"`
	Group      string `json:"group"`
}

// DisplayName is what overlays and status lists show.
func (s Student) DisplayName() string {
	if s.Surname == "" {
		return s.Name
	}
	return s.Name + " " + s.Surname
}

// AttendanceRecord is one row per (student, day).
type AttendanceRecord struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	Day        string     `json:"day"`
	Status     Status     `json:"status"`
	ArrivalAt  *time.Time `json:"arrival_at,omitempty"`
	Confidence float64    `json:"confidence"`

	// Joined from students on read paths.
	Name    string `json:"name,omitempty"`
	Group   string `json:"group,omitempty"`
	Faculty string `json:"faculty,omitempty"`
}

// DayKey returns the calendar date of t in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ParseTimeOfDay accepts "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, t.Hour, t.Minute)
	}
	return nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is strictly earlier than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Hour*60+t.Minute < o.Hour*60+o.Minute
}

// On combines t with the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Schedule holds the attendance times for one weekday. At most one schedule exists per weekday.
type Schedule struct {
	ID    string       `json:"id"`
	Day   time.Weekday `json:"day"`
	Start TimeOfDay    `json:"start"`
	Late  TimeOfDay    `json:"late"`
	End   TimeOfDay    `json:"end"`
}

var ErrInvalidSchedule = errors.New("invalid schedule")

// Validate requires Start < Late < End.
func (s Schedule) Validate() error {
	if s.Day < time.Sunday || s.Day > time.Saturday {
		return fmt.Errorf("%w: unknown weekday %d", ErrInvalidSchedule, s.Day)
	}
	for _, t := range []TimeOfDay{s.Start, s.Late, s.End} {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	if !s.Start.Before(s.Late) || !s.Late.Before(s.End) {
		return fmt.Errorf("%w: times must be in order start < late < end", ErrInvalidSchedule)
	}
	return nil
}

// ParseWeekday accepts English weekday names ("Monday", "monday", "Mon").
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, s)
}
