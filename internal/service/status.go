package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/expression"
	"github.com/minervahome/brain/internal/repository"
	"go.uber.org/zap"
)

// SnapshotCache is a short-lived cache for the aggregated status document.
type SnapshotCache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, data []byte) error
}

// TodayStatus is the aggregate returned by the status surface.
type TodayStatus struct {
	Now        time.Time             `json:"now"`
	Services   []ServiceView         `json:"services"`
	WordOfDay  *WordOfDayView        `json:"word_of_day"`
	Reminders  ReminderSummaryView   `json:"reminders_summary"`
	Expression expression.Expression `json:"expression"`
}

type ServiceView struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	IsUp                bool       `json:"is_up"`
	LatencyMS           *float64   `json:"latency_ms"`
	LastCheckedAt       *time.Time `json:"last_checked_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type WordOfDayView struct {
	Word       string  `json:"word"`
	Definition string  `json:"definition"`
	ExtraJSON  *string `json:"extra_json,omitempty"`
}

type ReminderSummaryView struct {
	Date    string  `json:"date"`
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Pending int     `json:"pending"`
	Missed  int     `json:"missed"`
	Skipped int     `json:"skipped"`
	Next    *string `json:"next"`
}

// StatusService aggregates today's reminder summary, service health, word of
// day and the derived expression. It only reads; the loops own all writes.
type StatusService struct {
	reminders   repository.ReminderRepository
	occurrences repository.OccurrenceRepository
	services    repository.ServiceRepository
	words       repository.WordRepository
	cache       SnapshotCache
	logger      *zap.Logger
	now         func() time.Time
}

func NewStatusService(
	reminders repository.ReminderRepository,
	occurrences repository.OccurrenceRepository,
	services repository.ServiceRepository,
	words repository.WordRepository,
	cache SnapshotCache,
	logger *zap.Logger,
) (*StatusService, error) {
	if reminders == nil || occurrences == nil || services == nil || words == nil {
		return nil, fmt.Errorf("all repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusService{
		reminders:   reminders,
		occurrences: occurrences,
		services:    services,
		words:       words,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *StatusService) Today(ctx context.Context) (*TodayStatus, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx); err == nil && ok {
			var cached TodayStatus
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	status, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(status); err == nil {
			if err := s.cache.Set(ctx, data); err != nil {
				s.logger.Warn("failed to cache status snapshot", zap.Error(err))
			}
		}
	}

	return status, nil
}

func (s *StatusService) build(ctx context.Context) (*TodayStatus, error) {
	now := s.now().UTC()
	dayStart, dayEnd := dayBounds(now)

	counts, err := s.occurrences.CountByStateBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count occurrences: %w", err)
	}

	summary := ReminderSummaryView{Date: now.Format("2006-01-02")}
	for _, c := range counts {
		summary.Total += c.Count
		switch c.State {
		case domain.OccurrenceDone:
			summary.Done += c.Count
		case domain.OccurrencePending:
			summary.Pending += c.Count
		case domain.OccurrenceMissed:
			summary.Missed += c.Count
		case domain.OccurrenceSkipped:
			summary.Skipped += c.Count
		}
	}

	var nextLabel string
	next, err := s.occurrences.NextPendingBetween(ctx, now, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to find next occurrence: %w", err)
	}
	if next != nil && next.ReminderID != nil {
		if reminder, err := s.reminders.GetByID(ctx, *next.ReminderID); err == nil {
			nextLabel = reminder.Label
		}
	}
	if nextLabel != "" {
		summary.Next = &nextLabel
	}

	serviceViews, anyDown, failing, err := s.serviceHealth(ctx)
	if err != nil {
		return nil, err
	}

	return &TodayStatus{
		Now:       now,
		Services:  serviceViews,
		WordOfDay: s.wordOfDay(ctx, now),
		Reminders: summary,
		Expression: expression.Compute(now, expression.Input{
			PendingCount:      summary.Pending,
			MissedCount:       summary.Missed,
			AnyServiceDown:    anyDown,
			FailingServices:   failing,
			UpcomingNextLabel: nextLabel,
		}),
	}, nil
}

func (s *StatusService) serviceHealth(ctx context.Context) ([]ServiceView, bool, []string, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to list services: %w", err)
	}
	statuses, err := s.services.ListStatuses(ctx)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to list service statuses: %w", err)
	}

	byService := make(map[string]domain.ServiceStatus, len(statuses))
	for _, st := range statuses {
		byService[st.ServiceID] = st
	}

	views := make([]ServiceView, 0, len(services))
	anyDown := false
	var failing []string

	for _, svc := range services {
		view := ServiceView{
			ID:   svc.ID,
			Name: svc.Name,
			Slug: svc.Slug,
		}
		if st, ok := byService[svc.ID]; ok {
			view.IsUp = st.IsUp
			view.LatencyMS = st.LatencyMS
			view.LastCheckedAt = st.LastCheckedAt
			view.ConsecutiveFailures = st.ConsecutiveFailures

			if svc.Enabled && !st.IsUp {
				anyDown = true
				failing = append(failing, svc.Name)
			}
		}
		views = append(views, view)
	}

	return views, anyDown, failing, nil
}

// wordOfDay deterministically rotates through the active words by day of
// year; the pick is stable within a calendar day.
func (s *StatusService) wordOfDay(ctx context.Context, now time.Time) *WordOfDayView {
	words, err := s.words.ListActive(ctx)
	if err != nil {
		s.logger.Warn("failed to list active words", zap.Error(err))
		return nil
	}
	if len(words) == 0 {
		return nil
	}

	pick := words[now.YearDay()%len(words)]
	return &WordOfDayView{
		Word:       pick.Word,
		Definition: pick.Definition,
		ExtraJSON:  pick.ExtraJSON,
	}
}
