package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/observability"
	"github.com/minervahome/brain/internal/probe"
	"github.com/minervahome/brain/internal/repository"
	"go.uber.org/zap"
)

const defaultMonitorInterval = 30 * time.Second

// Monitor is the service-check loop: it probes each enabled service on its
// own cadence, tracks up/down state, and enqueues an outbox alert when the
// reachability flag flips and the service's alert flags permit it.
type Monitor struct {
	services repository.ServiceRepository
	outbox   repository.OutboxRepository
	prober   probe.Prober
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	now      func() time.Time
}

func NewMonitor(
	services repository.ServiceRepository,
	outbox repository.OutboxRepository,
	prober probe.Prober,
	interval time.Duration,
	logger *zap.Logger,
) (*Monitor, error) {
	if services == nil {
		return nil, fmt.Errorf("service repository is required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if prober == nil {
		return nil, fmt.Errorf("prober is required")
	}
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		services: services,
		outbox:   outbox,
		prober:   prober,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (m *Monitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Start runs the monitor loop until context cancellation.
func (m *Monitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := m.CheckAll(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("initial service check failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.CheckAll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("service check cycle failed", zap.Error(err))
			}
		}
	}
}

// CheckAll probes every enabled service whose check interval has elapsed.
// One service's failure never blocks the rest of the fleet.
func (m *Monitor) CheckAll(ctx context.Context) error {
	services, err := m.services.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled services: %w", err)
	}

	for i := range services {
		svc := services[i]
		if err := m.checkOne(ctx, svc); err != nil {
			m.logger.Error("service check failed",
				zap.String("serviceId", svc.ID),
				zap.String("slug", svc.Slug),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (m *Monitor) checkOne(ctx context.Context, svc domain.Service) error {
	now := m.now().UTC()

	status, err := m.services.GetStatus(ctx, svc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to load service status: %w", err)
	}

	// The loop tick is finer-grained than per-service cadence; skip until
	// this service's own interval has elapsed.
	if status != nil && status.LastCheckedAt != nil {
		elapsed := now.Sub(*status.LastCheckedAt)
		if elapsed < time.Duration(svc.CheckIntervalSec)*time.Second {
			return nil
		}
	}

	probeStart := m.now()
	result := m.prober.Check(ctx, svc)
	if m.metrics != nil {
		m.metrics.ObserveProbeDuration(svc.Slug, m.now().Sub(probeStart))
		m.metrics.SetServiceUp(svc.Slug, result.Reachable)
	}

	flipped := false
	wasUp := false

	if status == nil {
		failures := 0
		if !result.Reachable {
			failures = 1
		}
		lastChange := now
		checked := now
		status = &domain.ServiceStatus{
			ID:                  uuid.NewString(),
			ServiceID:           svc.ID,
			IsUp:                result.Reachable,
			LatencyMS:           result.LatencyMS,
			LastCheckedAt:       &checked,
			ConsecutiveFailures: failures,
			LastChangeAt:        &lastChange,
		}
	} else {
		wasUp = status.IsUp
		flipped = wasUp != result.Reachable

		status.IsUp = result.Reachable
		status.LatencyMS = result.LatencyMS
		checked := now
		status.LastCheckedAt = &checked

		if result.Reachable {
			if !wasUp {
				changed := now
				status.LastChangeAt = &changed
			}
			status.ConsecutiveFailures = 0
		} else {
			if wasUp {
				changed := now
				status.LastChangeAt = &changed
			}
			status.ConsecutiveFailures++
		}
	}

	if err := m.services.SaveStatus(ctx, status); err != nil {
		return fmt.Errorf("failed to persist service status: %w", err)
	}

	if !flipped {
		return nil
	}

	wentDown := wasUp && !result.Reachable
	recovered := !wasUp && result.Reachable
	if (wentDown && !svc.AlertOnDown) || (recovered && !svc.AlertOnRecovery) {
		return nil
	}

	payload := domain.EventPayload{
		"channel":    domain.ChannelService,
		"service_id": svc.ID,
		"name":       svc.Name,
		"slug":       svc.Slug,
		"is_up":      result.Reachable,
		"latency_ms": result.LatencyMS,
		"changed_at": now.Format(time.RFC3339),
	}

	if _, err := m.outbox.Enqueue(ctx, domain.ChannelService, payload); err != nil {
		return fmt.Errorf("failed to enqueue service alert: %w", err)
	}

	m.logger.Info("service state changed",
		zap.String("slug", svc.Slug),
		zap.Bool("isUp", result.Reachable),
	)
	if m.metrics != nil {
		m.metrics.IncAlertEmitted(domain.ChannelService)
	}

	return nil
}
