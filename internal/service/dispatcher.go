package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/observability"
	"github.com/minervahome/brain/internal/ratelimit"
	"github.com/minervahome/brain/internal/repository"
	"github.com/minervahome/brain/internal/telegram"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchInterval = 5 * time.Second
	defaultDispatchBatch    = 20
	defaultDispatchLease    = 60 * time.Second
	minDispatchConcurrency  = 1
)

// Dispatcher is an optional in-process outbox consumer: it claims batches of
// telegram-deliverable events, sends them through the Bot API and acks or
// fails each one. It speaks the same lease protocol as external consumers
// and only claims the channels it can deliver.
type Dispatcher struct {
	outbox      repository.OutboxRepository
	resolver    DestinationResolver
	sender      telegram.Sender
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	batchSize   int
	lease       time.Duration
	concurrency int
	consumerID  string
	now         func() time.Time
}

func NewDispatcher(
	outbox repository.OutboxRepository,
	resolver DestinationResolver,
	sender telegram.Sender,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("destination resolver is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewNop()
	}
	if concurrency < minDispatchConcurrency {
		concurrency = minDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		outbox:      outbox,
		resolver:    resolver,
		sender:      sender,
		rateLimiter: rateLimiter,
		logger:      logger,
		interval:    defaultDispatchInterval,
		batchSize:   defaultDispatchBatch,
		lease:       defaultDispatchLease,
		concurrency: concurrency,
		consumerID:  "dispatcher-" + uuid.NewString(),
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Start polls the outbox until context cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := d.dispatchBatch(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error("initial dispatch failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.dispatchBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("dispatch batch failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) error {
	events, err := d.outbox.Claim(ctx, d.batchSize, d.consumerID, d.lease,
		domain.ChannelTelegram, domain.ChannelService)
	if err != nil {
		return fmt.Errorf("failed to claim outbox events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	if d.metrics != nil {
		d.metrics.AddOutboxClaimed(len(events))
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i := range events {
		event := events[i]
		g.Go(func() error {
			d.processEvent(groupCtx, event)
			return nil
		})
	}

	return g.Wait()
}

// processEvent delivers one claimed event, then acks or fails it. Delivery
// errors are recorded on the event, never propagated to the loop.
func (d *Dispatcher) processEvent(ctx context.Context, event domain.NotificationEvent) {
	var deliverErr error

	switch event.Channel {
	case domain.ChannelTelegram:
		deliverErr = d.deliverTelegram(ctx, event)
	case domain.ChannelService:
		deliverErr = d.deliverServiceAlert(ctx, event)
	default:
		deliverErr = fmt.Errorf("no handler for channel %q", event.Channel)
	}

	if deliverErr != nil {
		if _, err := d.outbox.Fail(ctx, event.ID, deliverErr.Error()); err != nil {
			d.logger.Error("failed to record delivery failure",
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
		}
		if d.metrics != nil {
			d.metrics.IncOutboxFailed(event.Channel)
		}
		d.logger.Warn("event delivery failed",
			zap.String("eventId", event.ID),
			zap.String("channel", event.Channel),
			zap.Error(deliverErr),
		)
		return
	}

	if _, err := d.outbox.Ack(ctx, event.ID); err != nil {
		d.logger.Error("failed to ack delivered event",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}
	if d.metrics != nil {
		d.metrics.IncOutboxAcked(event.Channel)
	}
}

func (d *Dispatcher) deliverTelegram(ctx context.Context, event domain.NotificationEvent) error {
	chatID, ok := payloadInt64(event.Payload, "chat_id")
	if !ok {
		return fmt.Errorf("payload is missing chat_id")
	}
	text, ok := payloadString(event.Payload, "text")
	if !ok {
		return fmt.Errorf("payload is missing text")
	}

	if err := d.rateLimiter.Wait(ctx, domain.ChannelTelegram); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	return d.sender.SendMessage(ctx, chatID, text)
}

// deliverServiceAlert fans a service up/down flip out to every registered
// chat. The alert payload carries no destination of its own.
func (d *Dispatcher) deliverServiceAlert(ctx context.Context, event domain.NotificationEvent) error {
	name, ok := payloadString(event.Payload, "name")
	if !ok {
		return fmt.Errorf("payload is missing name")
	}
	isUp, ok := event.Payload["is_up"].(bool)
	if !ok {
		return fmt.Errorf("payload is missing is_up")
	}

	text := fmt.Sprintf("⚠️ %s is DOWN", name)
	if isUp {
		text = fmt.Sprintf("✅ %s is back up", name)
	}

	destinations, err := d.resolver.Resolve(ctx, domain.ChannelTelegram)
	if err != nil {
		return fmt.Errorf("failed to resolve destinations: %w", err)
	}
	if len(destinations) == 0 {
		// Nobody to tell; treat as delivered rather than burning attempts.
		return nil
	}

	for _, dest := range destinations {
		if err := d.rateLimiter.Wait(ctx, domain.ChannelTelegram); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		if err := d.sender.SendMessage(ctx, dest.ChatID, text); err != nil {
			return err
		}
	}

	return nil
}

func payloadString(payload domain.EventPayload, key string) (string, bool) {
	value, ok := payload[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func payloadInt64(payload domain.EventPayload, key string) (int64, bool) {
	switch value := payload[key].(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case float64:
		// JSON round-trips numbers as float64.
		return int64(value), true
	}
	return 0, false
}
