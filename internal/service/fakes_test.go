package service

// In-memory test doubles shared by the service tests. They implement just
// enough of the repository contracts to drive the loops; concurrency safety
// is not a goal because each test owns its fakes.

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/probe"
	"github.com/minervahome/brain/internal/repository"
)

type fakeReminderRepo struct {
	reminders map[string]domain.Reminder
}

func newFakeReminderRepo(reminders ...domain.Reminder) *fakeReminderRepo {
	repo := &fakeReminderRepo{reminders: make(map[string]domain.Reminder)}
	for _, r := range reminders {
		repo.reminders[r.ID] = r
	}
	return repo
}

func (f *fakeReminderRepo) Create(_ context.Context, r *domain.Reminder) error {
	f.reminders[r.ID] = *r
	return nil
}

func (f *fakeReminderRepo) GetByID(_ context.Context, id string) (*domain.Reminder, error) {
	r, ok := f.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeReminderRepo) List(_ context.Context) ([]domain.Reminder, error) {
	out := make([]domain.Reminder, 0, len(f.reminders))
	for _, r := range f.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReminderRepo) Update(_ context.Context, r *domain.Reminder) error {
	if _, ok := f.reminders[r.ID]; !ok {
		return domain.ErrNotFound
	}
	f.reminders[r.ID] = *r
	return nil
}

func (f *fakeReminderRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.reminders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.reminders, id)
	return nil
}

type fakeOccurrenceRepo struct {
	occurrences map[string]domain.Occurrence
}

func newFakeOccurrenceRepo(occurrences ...domain.Occurrence) *fakeOccurrenceRepo {
	repo := &fakeOccurrenceRepo{occurrences: make(map[string]domain.Occurrence)}
	for _, o := range occurrences {
		repo.occurrences[o.ID] = o
	}
	return repo
}

func (f *fakeOccurrenceRepo) Create(_ context.Context, o *domain.Occurrence) error {
	f.occurrences[o.ID] = *o
	return nil
}

func (f *fakeOccurrenceRepo) GetByID(_ context.Context, id string) (*domain.Occurrence, error) {
	o, ok := f.occurrences[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOccurrenceRepo) List(_ context.Context, params repository.OccurrenceListParams) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, o := range f.occurrences {
		if params.DayStart != nil && o.DueAt.Before(*params.DayStart) {
			continue
		}
		if params.DayEnd != nil && o.DueAt.After(*params.DayEnd) {
			continue
		}
		if params.State != nil && o.State != *params.State {
			continue
		}
		if params.ReminderID != nil && (o.ReminderID == nil || *o.ReminderID != *params.ReminderID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (f *fakeOccurrenceRepo) ExistsForReminderBetween(_ context.Context, reminderID string, start, end time.Time) (bool, error) {
	for _, o := range f.occurrences {
		if o.ReminderID == nil || *o.ReminderID != reminderID {
			continue
		}
		if !o.DueAt.Before(start) && !o.DueAt.After(end) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOccurrenceRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	var expired int64
	for id, o := range f.occurrences {
		if o.State == domain.OccurrencePending && o.WindowEndAt.Before(now) {
			o.State = domain.OccurrenceMissed
			o.UpdatedAt = now
			f.occurrences[id] = o
			expired++
		}
	}
	return expired, nil
}

func (f *fakeOccurrenceRepo) ListDueUnalerted(_ context.Context, now time.Time) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, o := range f.occurrences {
		if o.State == domain.OccurrencePending && !o.DueAt.After(now) && o.AlertedAt == nil {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (f *fakeOccurrenceRepo) StampAlerted(_ context.Context, id string, at time.Time) error {
	o, ok := f.occurrences[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.AlertedAt = &at
	o.UpdatedAt = at
	f.occurrences[id] = o
	return nil
}

func (f *fakeOccurrenceRepo) MarkDone(_ context.Context, id string, at time.Time) (*domain.Occurrence, error) {
	return f.markTerminal(id, domain.OccurrenceDone, at)
}

func (f *fakeOccurrenceRepo) MarkSkipped(_ context.Context, id string, at time.Time) (*domain.Occurrence, error) {
	return f.markTerminal(id, domain.OccurrenceSkipped, at)
}

func (f *fakeOccurrenceRepo) markTerminal(id string, target domain.OccurrenceState, at time.Time) (*domain.Occurrence, error) {
	o, ok := f.occurrences[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.State.IsTerminal() {
		return &o, nil
	}
	o.State = target
	switch target {
	case domain.OccurrenceDone:
		o.DoneAt = &at
	case domain.OccurrenceSkipped:
		o.SkippedAt = &at
	}
	o.UpdatedAt = at
	f.occurrences[id] = o
	return &o, nil
}

func (f *fakeOccurrenceRepo) CountByStateBetween(_ context.Context, start, end time.Time) ([]repository.StateCount, error) {
	counts := make(map[domain.OccurrenceState]int)
	for _, o := range f.occurrences {
		if !o.DueAt.Before(start) && !o.DueAt.After(end) {
			counts[o.State]++
		}
	}
	out := make([]repository.StateCount, 0, len(counts))
	for state, count := range counts {
		out = append(out, repository.StateCount{State: state, Count: count})
	}
	return out, nil
}

func (f *fakeOccurrenceRepo) NextPendingBetween(_ context.Context, now, end time.Time) (*domain.Occurrence, error) {
	var next *domain.Occurrence
	for _, o := range f.occurrences {
		o := o
		if o.State != domain.OccurrencePending || !o.DueAt.After(now) || o.DueAt.After(end) {
			continue
		}
		if next == nil || o.DueAt.Before(next.DueAt) {
			next = &o
		}
	}
	return next, nil
}

func (f *fakeOccurrenceRepo) DeleteOrphans(_ context.Context) (int64, error) {
	var deleted int64
	for id, o := range f.occurrences {
		if o.ReminderID == nil {
			delete(f.occurrences, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events map[string]domain.NotificationEvent
	order  []string
	now    func() time.Time
}

func newFakeOutboxRepo(now func() time.Time) *fakeOutboxRepo {
	if now == nil {
		now = time.Now
	}
	return &fakeOutboxRepo{
		events: make(map[string]domain.NotificationEvent),
		now:    now,
	}
}

func (f *fakeOutboxRepo) Enqueue(_ context.Context, channel string, payload domain.EventPayload) (*domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now().UTC()
	event := domain.NotificationEvent{
		ID:        uuid.NewString(),
		Channel:   channel,
		Payload:   payload,
		Status:    domain.EventPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	f.events[event.ID] = event
	f.order = append(f.order, event.ID)
	return &event, nil
}

func (f *fakeOutboxRepo) Claim(_ context.Context, limit int, consumerID string, lease time.Duration, channels ...string) ([]domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now().UTC()
	var claimed []domain.NotificationEvent
	for _, id := range f.order {
		if len(claimed) >= limit {
			break
		}
		event := f.events[id]
		if !event.Claimable(now, lease) {
			continue
		}
		if len(channels) > 0 && !containsString(channels, event.Channel) {
			continue
		}
		lockedAt := now
		event.Status = domain.EventSending
		event.LockedAt = &lockedAt
		event.LockedBy = &consumerID
		event.UpdatedAt = now
		f.events[id] = event
		claimed = append(claimed, event)
	}
	return claimed, nil
}

func (f *fakeOutboxRepo) Ack(_ context.Context, id string) (*domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := f.now().UTC()
	event.Status = domain.EventSent
	event.SentAt = &now
	event.AckedAt = &now
	event.LockedAt = nil
	event.LockedBy = nil
	event.UpdatedAt = now
	f.events[id] = event
	return &event, nil
}

func (f *fakeOutboxRepo) Fail(_ context.Context, id string, errorMessage string) (*domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := f.now().UTC()
	event.Status = domain.EventFailed
	event.AttemptCount++
	event.LastError = &errorMessage
	event.LockedAt = nil
	event.LockedBy = nil
	event.UpdatedAt = now
	f.events[id] = event
	return &event, nil
}

func (f *fakeOutboxRepo) GetByID(_ context.Context, id string) (*domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &event, nil
}

func (f *fakeOutboxRepo) byChannel(channel string) []domain.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.NotificationEvent
	for _, id := range f.order {
		if f.events[id].Channel == channel {
			out = append(out, f.events[id])
		}
	}
	return out
}

type fakeServiceRepo struct {
	services map[string]domain.Service
	statuses map[string]domain.ServiceStatus
}

func newFakeServiceRepo(services ...domain.Service) *fakeServiceRepo {
	repo := &fakeServiceRepo{
		services: make(map[string]domain.Service),
		statuses: make(map[string]domain.ServiceStatus),
	}
	for _, s := range services {
		repo.services[s.ID] = s
	}
	return repo
}

func (f *fakeServiceRepo) Create(_ context.Context, s *domain.Service) error {
	f.services[s.ID] = *s
	return nil
}

func (f *fakeServiceRepo) GetByID(_ context.Context, id string) (*domain.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeServiceRepo) GetBySlug(_ context.Context, slug string) (*domain.Service, error) {
	for _, s := range f.services {
		if s.Slug == slug {
			s := s
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeServiceRepo) List(_ context.Context) ([]domain.Service, error) {
	out := make([]domain.Service, 0, len(f.services))
	for _, s := range f.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeServiceRepo) ListEnabled(_ context.Context) ([]domain.Service, error) {
	all, _ := f.List(context.Background())
	out := make([]domain.Service, 0, len(all))
	for _, s := range all {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeServiceRepo) Update(_ context.Context, s *domain.Service) error {
	if _, ok := f.services[s.ID]; !ok {
		return domain.ErrNotFound
	}
	f.services[s.ID] = *s
	return nil
}

func (f *fakeServiceRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.services[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.services, id)
	delete(f.statuses, id)
	return nil
}

func (f *fakeServiceRepo) GetStatus(_ context.Context, serviceID string) (*domain.ServiceStatus, error) {
	st, ok := f.statuses[serviceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (f *fakeServiceRepo) SaveStatus(_ context.Context, status *domain.ServiceStatus) error {
	f.statuses[status.ServiceID] = *status
	return nil
}

func (f *fakeServiceRepo) ListStatuses(_ context.Context) ([]domain.ServiceStatus, error) {
	out := make([]domain.ServiceStatus, 0, len(f.statuses))
	for _, st := range f.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out, nil
}

type fakeWordRepo struct {
	words []domain.Word
}

func (f *fakeWordRepo) Create(_ context.Context, w *domain.Word) error {
	f.words = append(f.words, *w)
	return nil
}

func (f *fakeWordRepo) GetByID(_ context.Context, id string) (*domain.Word, error) {
	for _, w := range f.words {
		if w.ID == id {
			w := w
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeWordRepo) GetByWord(_ context.Context, word string) (*domain.Word, error) {
	for _, w := range f.words {
		if w.Word == word {
			w := w
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeWordRepo) List(_ context.Context) ([]domain.Word, error) {
	return append([]domain.Word(nil), f.words...), nil
}

func (f *fakeWordRepo) ListActive(_ context.Context) ([]domain.Word, error) {
	var out []domain.Word
	for _, w := range f.words {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWordRepo) Update(_ context.Context, w *domain.Word) error {
	for i := range f.words {
		if f.words[i].ID == w.ID {
			f.words[i] = *w
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeWordRepo) Delete(_ context.Context, id string) error {
	for i := range f.words {
		if f.words[i].ID == id {
			f.words = append(f.words[:i], f.words[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type staticResolver struct {
	destinations []Destination
	err          error
}

func (r *staticResolver) Resolve(_ context.Context, channel string) ([]Destination, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Destination, 0, len(r.destinations))
	for _, d := range r.destinations {
		d.Channel = channel
		out = append(out, d)
	}
	return out, nil
}

type fakeProber struct {
	up     map[string]bool
	checks map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		up:     make(map[string]bool),
		checks: make(map[string]int),
	}
}

func (p *fakeProber) Check(_ context.Context, service domain.Service) probe.Result {
	p.checks[service.Slug]++
	if p.up[service.Slug] {
		latency := 12.5
		return probe.Result{Reachable: true, LatencyMS: &latency}
	}
	return probe.Result{}
}

type recordingSender struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

type sentMessage struct {
	ChatID int64
	Text   string
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

type noopRateLimiter struct{}

func (noopRateLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopRateLimiter) Wait(context.Context, string) error          { return nil }

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func mustEnqueue(f *fakeOutboxRepo, channel string, payload domain.EventPayload) domain.NotificationEvent {
	event, err := f.Enqueue(context.Background(), channel, payload)
	if err != nil {
		panic(fmt.Sprintf("enqueue failed: %v", err))
	}
	return *event
}
