package roster

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"faceattend/internal/model"
)

// scheduleFile is the YAML layout accepted by ImportSchedules:
//
//	schedules:
//	  - day: Monday
//	    start: "09:00"
//	    late: "09:15"
//	    end: "09:30"
type scheduleFile struct {
	Schedules []struct {
		Day   string `yaml:"day"`
		Start string `yaml:"start"`
		Late  string `yaml:"late"`
		End   string `yaml:"end"`
	} `yaml:"schedules"`
}

// ParseSchedules decodes and validates a YAML schedule file.
func ParseSchedules(r io.Reader) ([]model.Schedule, error) {
	var f scheduleFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}
	seen := map[string]bool{}
	out := make([]model.Schedule, 0, len(f.Schedules))
	for i, e := range f.Schedules {
		day, err := model.ParseWeekday(e.Day)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[day.String()] {
			return nil, fmt.Errorf("entry %d: %w: %s listed twice", i, model.ErrInvalidSchedule, day)
		}
		seen[day.String()] = true

		s := model.Schedule{Day: day}
		for _, p := range []struct {
			dst *model.TimeOfDay
			src string
		}{{&s.Start, e.Start}, {&s.Late, e.Late}, {&s.End, e.End}} {
			if *p.dst, err = model.ParseTimeOfDay(p.src); err != nil {
				return nil, fmt.Errorf("entry %d (%s): %w", i, day, err)
			}
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ImportSchedules upserts every schedule of a YAML file.
func (s *Service) ImportSchedules(ctx context.Context, r io.Reader) ([]model.Schedule, error) {
	list, err := ParseSchedules(r)
	if err != nil {
		return nil, err
	}
	saved := make([]model.Schedule, 0, len(list))
	for _, sch := range list {
		got, err := s.SaveSchedule(ctx, sch)
		if err != nil {
			return saved, err
		}
		saved = append(saved, got)
	}
	return saved, nil
}
