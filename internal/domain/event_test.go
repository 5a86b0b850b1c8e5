package domain

import (
	"testing"
	"time"
)

func TestEventClaimable(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	lease := time.Minute

	freshLock := now.Add(-30 * time.Second)
	staleLock := now.Add(-2 * time.Minute)
	sentAt := now.Add(-time.Hour)

	tests := []struct {
		name  string
		event NotificationEvent
		want  bool
	}{
		{
			name:  "pending unleased",
			event: NotificationEvent{Status: EventPending},
			want:  true,
		},
		{
			name:  "failed unleased",
			event: NotificationEvent{Status: EventFailed, AttemptCount: 2},
			want:  true,
		},
		{
			name:  "sent",
			event: NotificationEvent{Status: EventSent, SentAt: &sentAt},
			want:  false,
		},
		{
			name:  "sent status without timestamp",
			event: NotificationEvent{Status: EventSent},
			want:  false,
		},
		{
			name:  "sent timestamp without status",
			event: NotificationEvent{Status: EventSending, SentAt: &sentAt},
			want:  false,
		},
		{
			name:  "attempt budget exhausted",
			event: NotificationEvent{Status: EventFailed, AttemptCount: MaxAttempts},
			want:  false,
		},
		{
			name:  "one attempt left",
			event: NotificationEvent{Status: EventFailed, AttemptCount: MaxAttempts - 1},
			want:  true,
		},
		{
			name:  "held by live lease",
			event: NotificationEvent{Status: EventSending, LockedAt: &freshLock},
			want:  false,
		},
		{
			name:  "abandoned lease is reclaimable",
			event: NotificationEvent{Status: EventSending, LockedAt: &staleLock},
			want:  true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.event.Claimable(now, lease); got != tt.want {
				t.Fatalf("Claimable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	event := NotificationEvent{Channel: ChannelTelegram, Payload: EventPayload{"text": "hi"}}
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	noChannel := NotificationEvent{Payload: EventPayload{}}
	if err := noChannel.Validate(); err == nil {
		t.Fatal("expected error for missing channel")
	}

	noPayload := NotificationEvent{Channel: ChannelTelegram}
	if err := noPayload.Validate(); err == nil {
		t.Fatal("expected error for missing payload")
	}
}
