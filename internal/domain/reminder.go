package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleKind represents the recurrence rule of a reminder.
type ScheduleKind string

const (
	ScheduleDaily  ScheduleKind = "DAILY"
	ScheduleWeekly ScheduleKind = "WEEKLY"
	ScheduleOneOff ScheduleKind = "ONE_OFF"
)

func (k ScheduleKind) String() string { return string(k) }

func (k ScheduleKind) IsValid() bool {
	switch k {
	case ScheduleDaily, ScheduleWeekly, ScheduleOneOff:
		return true
	}
	return false
}

func ParseScheduleKindFromString(s string) (ScheduleKind, error) {
	k := ScheduleKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid schedule kind %q", ErrValidation, s)
	}
	return k, nil
}

// Reminder is a recurring or one-off task definition.
// DaysOfWeek uses 0=Monday .. 6=Sunday, matching weekday semantics of the schedule.
type Reminder struct {
	ID             string
	Label          string
	Description    *string
	ScheduleKind   ScheduleKind
	TimeOfDay      string // "HH:MM", empty for ONE_OFF
	DaysOfWeek     []int
	OneOffAt       *time.Time
	GraceBeforeMin int
	GraceAfterMin  int
	Channels       []string
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrValidation)
	}
	if !r.ScheduleKind.IsValid() {
		return fmt.Errorf("%w: invalid schedule kind %q", ErrValidation, r.ScheduleKind)
	}
	if r.GraceBeforeMin < 0 || r.GraceAfterMin < 0 {
		return fmt.Errorf("%w: grace minutes must be non-negative", ErrValidation)
	}

	switch r.ScheduleKind {
	case ScheduleOneOff:
		if r.OneOffAt == nil {
			return fmt.Errorf("%w: one_off_at is required for ONE_OFF reminders", ErrValidation)
		}
		if strings.TrimSpace(r.TimeOfDay) != "" {
			return fmt.Errorf("%w: time_of_day is not allowed for ONE_OFF reminders", ErrValidation)
		}
		if len(r.DaysOfWeek) > 0 {
			return fmt.Errorf("%w: days_of_week is not allowed for ONE_OFF reminders", ErrValidation)
		}
	case ScheduleWeekly:
		if len(r.DaysOfWeek) == 0 {
			return fmt.Errorf("%w: days_of_week is required for WEEKLY reminders", ErrValidation)
		}
		fallthrough
	case ScheduleDaily:
		if r.OneOffAt != nil {
			return fmt.Errorf("%w: one_off_at is only allowed for ONE_OFF reminders", ErrValidation)
		}
		if _, _, err := ParseTimeOfDay(r.TimeOfDay); err != nil {
			return err
		}
		if r.ScheduleKind == ScheduleDaily && len(r.DaysOfWeek) > 0 {
			return fmt.Errorf("%w: days_of_week is only allowed for WEEKLY reminders", ErrValidation)
		}
	}

	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: days_of_week entries must be between 0 and 6", ErrValidation)
		}
	}

	return nil
}

// ShouldFireOn reports whether the reminder schedule produces an occurrence
// on the calendar date of target. Disabled reminders never fire.
func (r *Reminder) ShouldFireOn(target time.Time) bool {
	if r == nil || !r.Enabled {
		return false
	}

	switch r.ScheduleKind {
	case ScheduleDaily:
		return true
	case ScheduleWeekly:
		wd := WeekdayIndex(target)
		for _, d := range r.DaysOfWeek {
			if d == wd {
				return true
			}
		}
		return false
	case ScheduleOneOff:
		if r.OneOffAt == nil {
			return false
		}
		y1, m1, d1 := r.OneOffAt.Date()
		y2, m2, d2 := target.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}

	// Unknown kind never fires.
	return false
}

// DueAtOn returns the absolute due time for an occurrence on the given date.
// ONE_OFF reminders are due at their stored timestamp regardless of date.
func (r *Reminder) DueAtOn(target time.Time) (time.Time, error) {
	if r.ScheduleKind == ScheduleOneOff {
		if r.OneOffAt == nil {
			return time.Time{}, fmt.Errorf("%w: one_off_at is not set", ErrValidation)
		}
		return *r.OneOffAt, nil
	}

	hour, minute, err := ParseTimeOfDay(r.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := target.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, target.Location()), nil
}

// WeekdayIndex maps a time to the 0=Monday .. 6=Sunday convention used by DaysOfWeek.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseTimeOfDay parses an "HH:MM" clock string.
func ParseTimeOfDay(s string) (hour int, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: time_of_day must be in HH:MM format", ErrValidation)
	}

	hour, hourErr := strconv.Atoi(parts[0])
	minute, minuteErr := strconv.Atoi(parts[1])
	if hourErr != nil || minuteErr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time_of_day must be in HH:MM format", ErrValidation)
	}

	return hour, minute, nil
}
