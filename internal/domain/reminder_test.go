package domain

import (
	"errors"
	"testing"
	"time"
)

func TestReminderShouldFireOnDaily(t *testing.T) {
	t.Parallel()

	reminder := &Reminder{
		ID:           "r1",
		Label:        "Take pills",
		ScheduleKind: ScheduleDaily,
		TimeOfDay:    "09:00",
		Enabled:      true,
	}

	target := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	if !reminder.ShouldFireOn(target) {
		t.Fatal("daily reminder should fire on any date")
	}

	reminder.Enabled = false
	if reminder.ShouldFireOn(target) {
		t.Fatal("disabled reminder should never fire")
	}
}

func TestReminderShouldFireOnWeekly(t *testing.T) {
	t.Parallel()

	// DaysOfWeek uses 0=Monday.
	reminder := &Reminder{
		ID:           "r1",
		Label:        "Water plants",
		ScheduleKind: ScheduleWeekly,
		TimeOfDay:    "18:30",
		DaysOfWeek:   []int{0, 2},
		Enabled:      true,
	}

	monday := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	wednesday := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	thursday := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	if !reminder.ShouldFireOn(monday) {
		t.Fatal("weekly reminder should fire on monday")
	}
	if !reminder.ShouldFireOn(wednesday) {
		t.Fatal("weekly reminder should fire on wednesday")
	}
	if reminder.ShouldFireOn(thursday) {
		t.Fatal("weekly reminder should not fire on thursday")
	}
}

func TestReminderShouldFireOnOneOff(t *testing.T) {
	t.Parallel()

	dueAt := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	reminder := &Reminder{
		ID:           "r1",
		Label:        "Dentist",
		ScheduleKind: ScheduleOneOff,
		OneOffAt:     &dueAt,
		Enabled:      true,
	}

	if !reminder.ShouldFireOn(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("one-off reminder should fire on its date")
	}
	if reminder.ShouldFireOn(time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("one-off reminder should not fire on another date")
	}

	reminder.OneOffAt = nil
	if reminder.ShouldFireOn(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("one-off reminder without timestamp should not fire")
	}
}

func TestReminderShouldFireOnUnknownKind(t *testing.T) {
	t.Parallel()

	reminder := &Reminder{
		ID:           "r1",
		Label:        "???",
		ScheduleKind: ScheduleKind("MONTHLY"),
		Enabled:      true,
	}

	if reminder.ShouldFireOn(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatal("unknown schedule kind should never fire")
	}
}

func TestReminderDueAtOn(t *testing.T) {
	t.Parallel()

	reminder := &Reminder{
		ID:           "r1",
		Label:        "Take pills",
		ScheduleKind: ScheduleDaily,
		TimeOfDay:    "09:30",
		Enabled:      true,
	}

	target := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	dueAt, err := reminder.DueAtOn(target)
	if err != nil {
		t.Fatalf("DueAtOn() error = %v", err)
	}

	want := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	if !dueAt.Equal(want) {
		t.Fatalf("DueAtOn() = %v, want %v", dueAt, want)
	}
}

func TestReminderValidate(t *testing.T) {
	t.Parallel()

	oneOffAt := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		reminder Reminder
		wantErr  bool
	}{
		{
			name: "valid daily",
			reminder: Reminder{
				Label:        "Take pills",
				ScheduleKind: ScheduleDaily,
				TimeOfDay:    "09:00",
			},
		},
		{
			name: "valid weekly",
			reminder: Reminder{
				Label:        "Water plants",
				ScheduleKind: ScheduleWeekly,
				TimeOfDay:    "18:30",
				DaysOfWeek:   []int{0, 6},
			},
		},
		{
			name: "valid one-off",
			reminder: Reminder{
				Label:        "Dentist",
				ScheduleKind: ScheduleOneOff,
				OneOffAt:     &oneOffAt,
			},
		},
		{
			name: "missing label",
			reminder: Reminder{
				ScheduleKind: ScheduleDaily,
				TimeOfDay:    "09:00",
			},
			wantErr: true,
		},
		{
			name: "weekly without days",
			reminder: Reminder{
				Label:        "Water plants",
				ScheduleKind: ScheduleWeekly,
				TimeOfDay:    "18:30",
			},
			wantErr: true,
		},
		{
			name: "weekly with day out of range",
			reminder: Reminder{
				Label:        "Water plants",
				ScheduleKind: ScheduleWeekly,
				TimeOfDay:    "18:30",
				DaysOfWeek:   []int{7},
			},
			wantErr: true,
		},
		{
			name: "daily with malformed time",
			reminder: Reminder{
				Label:        "Take pills",
				ScheduleKind: ScheduleDaily,
				TimeOfDay:    "25:00",
			},
			wantErr: true,
		},
		{
			name: "one-off without timestamp",
			reminder: Reminder{
				Label:        "Dentist",
				ScheduleKind: ScheduleOneOff,
			},
			wantErr: true,
		},
		{
			name: "one-off with time of day",
			reminder: Reminder{
				Label:        "Dentist",
				ScheduleKind: ScheduleOneOff,
				OneOffAt:     &oneOffAt,
				TimeOfDay:    "09:00",
			},
			wantErr: true,
		},
		{
			name: "daily with one-off timestamp",
			reminder: Reminder{
				Label:        "Take pills",
				ScheduleKind: ScheduleDaily,
				TimeOfDay:    "09:00",
				OneOffAt:     &oneOffAt,
			},
			wantErr: true,
		},
		{
			name: "negative grace",
			reminder: Reminder{
				Label:          "Take pills",
				ScheduleKind:   ScheduleDaily,
				TimeOfDay:      "09:00",
				GraceBeforeMin: -5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.reminder.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestWeekdayIndex(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)

	if got := WeekdayIndex(monday); got != 0 {
		t.Fatalf("WeekdayIndex(monday) = %d, want 0", got)
	}
	if got := WeekdayIndex(sunday); got != 6 {
		t.Fatalf("WeekdayIndex(sunday) = %d, want 6", got)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	hour, minute, err := ParseTimeOfDay("09:05")
	if err != nil {
		t.Fatalf("ParseTimeOfDay() error = %v", err)
	}
	if hour != 9 || minute != 5 {
		t.Fatalf("ParseTimeOfDay() = %d:%d, want 9:5", hour, minute)
	}

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		if _, _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseTimeOfDay(%q) error = %v, want ErrValidation", bad, err)
		}
	}
}
