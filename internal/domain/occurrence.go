package domain

import (
	"fmt"
	"strings"
	"time"
)

// OccurrenceState represents the lifecycle state of a reminder occurrence.
type OccurrenceState string

const (
	OccurrencePending OccurrenceState = "PENDING"
	OccurrenceDone    OccurrenceState = "DONE"
	OccurrenceMissed  OccurrenceState = "MISSED"
	OccurrenceSkipped OccurrenceState = "SKIPPED"
)

func (s OccurrenceState) String() string { return string(s) }

func (s OccurrenceState) IsValid() bool {
	switch s {
	case OccurrencePending, OccurrenceDone, OccurrenceMissed, OccurrenceSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave this state.
func (s OccurrenceState) IsTerminal() bool {
	return s == OccurrenceDone || s == OccurrenceMissed || s == OccurrenceSkipped
}

func ParseOccurrenceStateFromString(s string) (OccurrenceState, error) {
	st := OccurrenceState(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid occurrence state %q", ErrValidation, s)
	}
	return st, nil
}

// Occurrence is one dated instance of a reminder becoming actionable.
// ReminderID is nil when the owning reminder has been deleted (orphan).
type Occurrence struct {
	ID            string
	ReminderID    *string
	DueAt         time.Time
	WindowStartAt time.Time
	WindowEndAt   time.Time
	State         OccurrenceState
	DoneAt        *time.Time
	SkippedAt     *time.Time
	AlertedAt     *time.Time
	Note          *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Overdue reports whether the action window has closed while the occurrence
// is still pending.
func (o *Occurrence) Overdue(now time.Time) bool {
	return o.State == OccurrencePending && o.WindowEndAt.Before(now)
}
