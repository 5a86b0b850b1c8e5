package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxAttempts is the delivery attempt budget for an outbox event. Events at
// or beyond this count are never handed out by Claim again.
const MaxAttempts = 5

// EventStatus represents the delivery state of an outbox notification event.
type EventStatus string

const (
	EventPending EventStatus = "PENDING"
	EventSending EventStatus = "SENDING"
	EventFailed  EventStatus = "FAILED"
	EventSent    EventStatus = "SENT"
)

func (s EventStatus) String() string { return string(s) }

func (s EventStatus) IsValid() bool {
	switch s {
	case EventPending, EventSending, EventFailed, EventSent:
		return true
	}
	return false
}

// Well-known outbox channels.
const (
	ChannelTelegram = "telegram"
	ChannelService  = "service"
)

// EventPayload is the opaque structured payload carried by an outbox event.
type EventPayload map[string]any

// NotificationEvent is a durable outbox entry for one outbound message. It
// references other entities only through ids embedded in its payload.
type NotificationEvent struct {
	ID           string
	Channel      string
	Payload      EventPayload
	Status       EventStatus
	AttemptCount int
	LastError    *string
	LockedAt     *time.Time
	LockedBy     *string
	SentAt       *time.Time
	AckedAt      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e *NotificationEvent) Validate() error {
	if strings.TrimSpace(e.Channel) == "" {
		return fmt.Errorf("%w: channel is required", ErrValidation)
	}
	if e.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	return nil
}

// Claimable reports whether the event is eligible for claiming at now, given
// the lease duration: not yet sent, attempts remaining, and either unleased
// or holding a lease older than the lease duration. A stale lease counts as
// abandoned regardless of status, so SENDING rows left behind by a crashed
// consumer become reclaimable once their lease expires.
func (e *NotificationEvent) Claimable(now time.Time, lease time.Duration) bool {
	if e.Status == EventSent || e.SentAt != nil {
		return false
	}
	if e.AttemptCount >= MaxAttempts {
		return false
	}
	if e.LockedAt == nil {
		return true
	}
	return e.LockedAt.Before(now.Add(-lease))
}
