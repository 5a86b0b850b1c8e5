package service

import (
	"context"
	"testing"
	"time"

	"github.com/minervahome/brain/internal/domain"
)

func testMonitor(t *testing.T, services *fakeServiceRepo, outbox *fakeOutboxRepo, prober *fakeProber, now time.Time) *Monitor {
	t.Helper()

	monitor, err := NewMonitor(services, outbox, prober, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	monitor.now = func() time.Time { return now }
	return monitor
}

func monitoredService(id, slug string) domain.Service {
	return domain.Service{
		ID:               id,
		Name:             slug,
		Slug:             slug,
		Kind:             domain.ServiceHTTP,
		Target:           "http://example.local",
		CheckIntervalSec: 60,
		TimeoutSec:       5,
		Enabled:          true,
		AlertOnDown:      true,
		AlertOnRecovery:  true,
	}
}

func TestMonitorFirstCheckCreatesStatusWithoutAlert(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	services := newFakeServiceRepo(monitoredService("s1", "plex"))
	outbox := newFakeOutboxRepo(func() time.Time { return now })
	prober := newFakeProber()
	prober.up["plex"] = false

	monitor := testMonitor(t, services, outbox, prober, now)

	if err := monitor.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	status, err := services.GetStatus(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.IsUp {
		t.Fatal("expected service to be recorded down")
	}
	if status.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", status.ConsecutiveFailures)
	}

	// The very first observation is a baseline, not a flip.
	if got := len(outbox.byChannel(domain.ChannelService)); got != 0 {
		t.Fatalf("alerts after first check = %d, want 0", got)
	}
}

func TestMonitorDownFlipEnqueuesAlert(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	services := newFakeServiceRepo(monitoredService("s1", "plex"))
	checked := now.Add(-2 * time.Minute)
	latency := 10.0
	services.statuses["s1"] = domain.ServiceStatus{
		ID:            "st1",
		ServiceID:     "s1",
		IsUp:          true,
		LatencyMS:     &latency,
		LastCheckedAt: &checked,
	}
	outbox := newFakeOutboxRepo(func() time.Time { return now })
	prober := newFakeProber()
	prober.up["plex"] = false

	monitor := testMonitor(t, services, outbox, prober, now)

	if err := monitor.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	status, _ := services.GetStatus(context.Background(), "s1")
	if status.IsUp {
		t.Fatal("expected service to be down")
	}
	if status.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", status.ConsecutiveFailures)
	}
	if status.LastChangeAt == nil || !status.LastChangeAt.Equal(now) {
		t.Fatalf("LastChangeAt = %v, want %v", status.LastChangeAt, now)
	}

	events := outbox.byChannel(domain.ChannelService)
	if len(events) != 1 {
		t.Fatalf("alerts = %d, want 1", len(events))
	}
	if got := events[0].Payload["is_up"]; got != false {
		t.Fatalf("payload is_up = %v, want false", got)
	}
	if got := events[0].Payload["slug"]; got != "plex" {
		t.Fatalf("payload slug = %v, want plex", got)
	}
}

func TestMonitorRepeatedDownIncrementsFailuresWithoutReAlert(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	services := newFakeServiceRepo(monitoredService("s1", "plex"))
	checked := now.Add(-2 * time.Minute)
	changed := now.Add(-10 * time.Minute)
	services.statuses["s1"] = domain.ServiceStatus{
		ID:                  "st1",
		ServiceID:           "s1",
		IsUp:                false,
		LastCheckedAt:       &checked,
		ConsecutiveFailures: 3,
		LastChangeAt:        &changed,
	}
	outbox := newFakeOutboxRepo(func() time.Time { return now })
	prober := newFakeProber()
	prober.up["plex"] = false

	monitor := testMonitor(t, services, outbox, prober, now)

	if err := monitor.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	status, _ := services.GetStatus(context.Background(), "s1")
	if status.ConsecutiveFailures != 4 {
		t.Fatalf("ConsecutiveFailures = %d, want 4", status.ConsecutiveFailures)
	}
	if !status.LastChangeAt.Equal(changed) {
		t.Fatalf("LastChangeAt = %v, want unchanged %v", status.LastChangeAt, changed)
	}
	if got := len(outbox.byChannel(domain.ChannelService)); got != 0 {
		t.Fatalf("alerts = %d, want 0", got)
	}
}

func TestMonitorRecoveryRespectsAlertFlag(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	svc := monitoredService("s1", "plex")
	svc.AlertOnRecovery = false
	services := newFakeServiceRepo(svc)
	checked := now.Add(-2 * time.Minute)
	services.statuses["s1"] = domain.ServiceStatus{
		ID:                  "st1",
		ServiceID:           "s1",
		IsUp:                false,
		LastCheckedAt:       &checked,
		ConsecutiveFailures: 5,
	}
	outbox := newFakeOutboxRepo(func() time.Time { return now })
	prober := newFakeProber()
	prober.up["plex"] = true

	monitor := testMonitor(t, services, outbox, prober, now)

	if err := monitor.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	status, _ := services.GetStatus(context.Background(), "s1")
	if !status.IsUp {
		t.Fatal("expected service to be up")
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", status.ConsecutiveFailures)
	}
	if got := len(outbox.byChannel(domain.ChannelService)); got != 0 {
		t.Fatalf("alerts = %d, want 0 with recovery alerts disabled", got)
	}
}

func TestMonitorSkipsWithinServiceCadence(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	services := newFakeServiceRepo(monitoredService("s1", "plex"))
	checked := now.Add(-10 * time.Second)
	services.statuses["s1"] = domain.ServiceStatus{
		ID:            "st1",
		ServiceID:     "s1",
		IsUp:          true,
		LastCheckedAt: &checked,
	}
	outbox := newFakeOutboxRepo(func() time.Time { return now })
	prober := newFakeProber()
	prober.up["plex"] = true

	monitor := testMonitor(t, services, outbox, prober, now)

	if err := monitor.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	if prober.checks["plex"] != 0 {
		t.Fatalf("probe count = %d, want 0 within cadence", prober.checks["plex"])
	}
}
