// Package expression derives a mood label for the status surface from the
// current reminder and service situation. It is deterministic and free of
// side effects.
package expression

import (
	"fmt"
	"time"
)

// State is the mood label shown on the status surface.
type State string

const (
	StateHappy   State = "happy"
	StateFocused State = "focused"
	StateWarning State = "warning"
	StateAlert   State = "alert"
	StateSleepy  State = "sleepy"
)

func (s State) String() string { return string(s) }

// Expression is the computed mood plus a human-readable message.
type Expression struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

// Input collects the facts the expression is derived from.
type Input struct {
	PendingCount      int
	MissedCount       int
	AnyServiceDown    bool
	FailingServices   []string
	UpcomingNextLabel string
}

// Compute derives the expression. Priority order, first match wins: night
// outage, night quiet hours, daytime outage, missed reminders, pending
// reminders, all clear. Outages interrupt the reminder mood, but only night
// hours suppress non-critical alerts.
func Compute(now time.Time, in Input) Expression {
	hour := now.Hour()
	night := hour >= 1 && hour <= 5

	if night {
		if in.AnyServiceDown {
			msg := "Service down (night alert)"
			if len(in.FailingServices) > 0 {
				msg = fmt.Sprintf("%s down (night alert)", in.FailingServices[0])
			}
			return Expression{State: StateAlert, Message: msg}
		}
		return Expression{State: StateSleepy, Message: "Quiet hours..."}
	}

	if in.AnyServiceDown {
		msg := "A service is down!"
		if len(in.FailingServices) > 0 {
			msg = fmt.Sprintf("%s down!", in.FailingServices[0])
		}
		return Expression{State: StateWarning, Message: msg}
	}

	if in.MissedCount > 0 {
		return Expression{State: StateAlert, Message: "You missed some reminders."}
	}

	if in.PendingCount > 0 {
		if in.UpcomingNextLabel != "" {
			return Expression{State: StateFocused, Message: fmt.Sprintf("Next: %s", in.UpcomingNextLabel)}
		}
		return Expression{State: StateFocused, Message: "You have pending reminders."}
	}

	return Expression{State: StateHappy, Message: "All good!"}
}
