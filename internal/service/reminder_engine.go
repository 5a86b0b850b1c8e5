package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/observability"
	"github.com/minervahome/brain/internal/repository"
	"go.uber.org/zap"
)

const defaultReminderInterval = 60 * time.Second

// ReminderEngine drives the reminder loop: materialize today's occurrences,
// expire overdue ones, then emit notifications for due ones. Each cycle runs
// the three phases in that order so an occurrence past its window is missed,
// not alerted.
type ReminderEngine struct {
	reminders   repository.ReminderRepository
	occurrences repository.OccurrenceRepository
	outbox      repository.OutboxRepository
	resolver    DestinationResolver
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	now         func() time.Time
}

func NewReminderEngine(
	reminders repository.ReminderRepository,
	occurrences repository.OccurrenceRepository,
	outbox repository.OutboxRepository,
	resolver DestinationResolver,
	interval time.Duration,
	logger *zap.Logger,
) (*ReminderEngine, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if occurrences == nil {
		return nil, fmt.Errorf("occurrence repository is required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("destination resolver is required")
	}
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderEngine{
		reminders:   reminders,
		occurrences: occurrences,
		outbox:      outbox,
		resolver:    resolver,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
	}, nil
}

func (e *ReminderEngine) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Start runs the reminder loop until context cancellation.
func (e *ReminderEngine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.runCycle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *ReminderEngine) runCycle(ctx context.Context) {
	now := e.now().UTC()

	if _, err := e.EnsureOccurrences(ctx, now); err != nil && ctx.Err() == nil {
		e.logger.Error("occurrence materialization failed", zap.Error(err))
	}
	if _, err := e.ExpireOverdue(ctx, now); err != nil && ctx.Err() == nil {
		e.logger.Error("occurrence expiry failed", zap.Error(err))
	}
	if err := e.NotifyDue(ctx, now); err != nil && ctx.Err() == nil {
		e.logger.Error("occurrence notification failed", zap.Error(err))
	}
}

// EnsureOccurrences creates one PENDING occurrence per firing reminder for
// the calendar date of target, skipping reminders that already have one.
// Safe to call repeatedly for the same date.
func (e *ReminderEngine) EnsureOccurrences(ctx context.Context, target time.Time) (int, error) {
	reminders, err := e.reminders.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}

	dayStart, dayEnd := dayBounds(target)
	created := 0

	for i := range reminders {
		reminder := reminders[i]
		if !reminder.ShouldFireOn(target) {
			continue
		}

		exists, err := e.occurrences.ExistsForReminderBetween(ctx, reminder.ID, dayStart, dayEnd)
		if err != nil {
			e.logger.Error("occurrence existence check failed",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			continue
		}
		if exists {
			continue
		}

		dueAt, err := reminder.DueAtOn(target)
		if err != nil {
			// A malformed stored schedule must not block the rest of the batch.
			e.logger.Warn("skipping reminder with malformed schedule",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			continue
		}

		graceBefore := max(reminder.GraceBeforeMin, 0)
		graceAfter := max(reminder.GraceAfterMin, 0)

		reminderID := reminder.ID
		occurrence := &domain.Occurrence{
			ID:            uuid.NewString(),
			ReminderID:    &reminderID,
			DueAt:         dueAt,
			WindowStartAt: dueAt.Add(-time.Duration(graceBefore) * time.Minute),
			WindowEndAt:   dueAt.Add(time.Duration(graceAfter) * time.Minute),
			State:         domain.OccurrencePending,
			CreatedAt:     e.now().UTC(),
			UpdatedAt:     e.now().UTC(),
		}

		if err := e.occurrences.Create(ctx, occurrence); err != nil {
			e.logger.Error("failed to create occurrence",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	if created > 0 {
		e.logger.Info("materialized occurrences", zap.Int("created", created))
		if e.metrics != nil {
			e.metrics.AddOccurrencesCreated(created)
		}
	}

	return created, nil
}

// ExpireOverdue marks PENDING occurrences whose action window has closed as
// MISSED.
func (e *ReminderEngine) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	expired, err := e.occurrences.ExpireOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue occurrences: %w", err)
	}

	if expired > 0 {
		e.logger.Info("expired overdue occurrences", zap.Int64("missed", expired))
		if e.metrics != nil {
			e.metrics.AddOccurrencesMissed(int(expired))
		}
	}
	return expired, nil
}

// NotifyDue emits one outbox event per resolved destination for every due,
// not-yet-alerted occurrence, then stamps alerted_at. The stamp suppresses
// re-alerting; delivery reliability is the outbox's job.
func (e *ReminderEngine) NotifyDue(ctx context.Context, now time.Time) error {
	due, err := e.occurrences.ListDueUnalerted(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due occurrences: %w", err)
	}

	for i := range due {
		occurrence := due[i]
		if err := e.notifyOne(ctx, &occurrence, now); err != nil {
			e.logger.Error("failed to notify occurrence",
				zap.String("occurrenceId", occurrence.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (e *ReminderEngine) notifyOne(ctx context.Context, occurrence *domain.Occurrence, now time.Time) error {
	label := "Reminder"
	channels := []string{domain.ChannelTelegram}

	if occurrence.ReminderID != nil {
		reminder, err := e.reminders.GetByID(ctx, *occurrence.ReminderID)
		if err == nil {
			label = reminder.Label
			if len(reminder.Channels) > 0 {
				channels = reminder.Channels
			}
		}
	}

	text := fmt.Sprintf("⏰ Reminder: %s (%s)", label, occurrence.DueAt.Format("15:04"))

	for _, channel := range channels {
		destinations, err := e.resolver.Resolve(ctx, channel)
		if err != nil {
			e.logger.Error("destination resolution failed",
				zap.String("channel", channel),
				zap.Error(err),
			)
			continue
		}

		for _, dest := range destinations {
			payload := domain.EventPayload{
				"channel":       channel,
				"chat_id":       dest.ChatID,
				"text":          text,
				"occurrence_id": occurrence.ID,
				"label":         label,
				"due_at":        occurrence.DueAt.Format(time.RFC3339),
			}

			if _, err := e.outbox.Enqueue(ctx, channel, payload); err != nil {
				e.logger.Error("failed to enqueue reminder notification",
					zap.String("occurrenceId", occurrence.ID),
					zap.String("channel", channel),
					zap.Error(err),
				)
				continue
			}
			if e.metrics != nil {
				e.metrics.IncAlertEmitted(channel)
			}
		}
	}

	return e.occurrences.StampAlerted(ctx, occurrence.ID, now)
}

func dayBounds(target time.Time) (time.Time, time.Time) {
	y, m, d := target.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, target.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}
