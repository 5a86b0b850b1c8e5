package repository

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/minervahome/brain/internal/domain"
)

// ReminderModel is the persistence model for the reminders table. Set-valued
// fields (days of week, channels) are serialized to comma-joined strings at
// this edge only; the domain carries native slices.
type ReminderModel struct {
	ID             string              `gorm:"type:uuid;primaryKey"`
	Label          string              `gorm:"type:varchar(255);not null"`
	Description    *string             `gorm:"type:text"`
	ScheduleKind   domain.ScheduleKind `gorm:"type:varchar(10);not null"`
	TimeOfDay      string              `gorm:"type:varchar(5)"`
	DaysOfWeek     *string             `gorm:"type:varchar(32)"`
	OneOffAt       *time.Time          `gorm:"type:timestamptz"`
	GraceBeforeMin int                 `gorm:"not null;default:0"`
	GraceAfterMin  int                 `gorm:"not null;default:60"`
	Channels       *string             `gorm:"type:varchar(255)"`
	Enabled        bool                `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ReminderModel) TableName() string {
	return "reminders"
}

// OccurrenceModel is the persistence model for reminder_occurrences.
// ReminderID is nullable so deleting a reminder can orphan its history.
type OccurrenceModel struct {
	ID            string                 `gorm:"type:uuid;primaryKey"`
	ReminderID    *string                `gorm:"type:uuid"`
	DueAt         time.Time              `gorm:"type:timestamptz;not null"`
	WindowStartAt time.Time              `gorm:"type:timestamptz;not null"`
	WindowEndAt   time.Time              `gorm:"type:timestamptz;not null"`
	State         domain.OccurrenceState `gorm:"type:varchar(10);not null"`
	DoneAt        *time.Time             `gorm:"type:timestamptz"`
	SkippedAt     *time.Time             `gorm:"type:timestamptz"`
	AlertedAt     *time.Time             `gorm:"type:timestamptz"`
	Note          *string                `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OccurrenceModel) TableName() string {
	return "reminder_occurrences"
}

// NotificationEventModel is the persistence model for notification_events,
// the durable outbox.
type NotificationEventModel struct {
	ID           string             `gorm:"type:uuid;primaryKey"`
	Channel      string             `gorm:"type:varchar(32);not null"`
	PayloadJSON  string             `gorm:"column:payload_json;type:text;not null"`
	Status       domain.EventStatus `gorm:"type:varchar(10);not null"`
	AttemptCount int                `gorm:"not null;default:0"`
	LastError    *string            `gorm:"type:text"`
	LockedAt     *time.Time         `gorm:"type:timestamptz"`
	LockedBy     *string            `gorm:"type:varchar(128)"`
	SentAt       *time.Time         `gorm:"type:timestamptz"`
	AckedAt      *time.Time         `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NotificationEventModel) TableName() string {
	return "notification_events"
}

// ServiceModel is the persistence model for monitored services.
type ServiceModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	Name             string             `gorm:"type:varchar(255);not null"`
	Slug             string             `gorm:"type:varchar(128);not null"`
	Kind             domain.ServiceKind `gorm:"type:varchar(10);not null"`
	Target           string             `gorm:"type:varchar(512);not null"`
	CheckIntervalSec int                `gorm:"not null;default:60"`
	TimeoutSec       int                `gorm:"not null;default:5"`
	Enabled          bool               `gorm:"not null;default:true"`
	AlertOnDown      bool               `gorm:"not null;default:true"`
	AlertOnRecovery  bool               `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ServiceModel) TableName() string {
	return "services"
}

// ServiceStatusModel is the persistence model for service_status, one row per service.
type ServiceStatusModel struct {
	ID                  string     `gorm:"type:uuid;primaryKey"`
	ServiceID           string     `gorm:"type:uuid;not null"`
	IsUp                bool       `gorm:"not null;default:false"`
	LatencyMS           *float64   `gorm:"column:latency_ms"`
	LastCheckedAt       *time.Time `gorm:"type:timestamptz"`
	ConsecutiveFailures int        `gorm:"not null;default:0"`
	LastChangeAt        *time.Time `gorm:"type:timestamptz"`
}

func (ServiceStatusModel) TableName() string {
	return "service_status"
}

// WordModel is the persistence model for words.
type WordModel struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	Word       string  `gorm:"type:varchar(128);not null"`
	Definition string  `gorm:"type:text;not null"`
	ExtraJSON  *string `gorm:"column:extra_json;type:text"`
	Active     bool    `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (WordModel) TableName() string {
	return "words"
}

// TelegramChatModel is the persistence model for telegram_chats.
type TelegramChatModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	ChatID      int64   `gorm:"not null"`
	ChatType    string  `gorm:"type:varchar(32);not null;default:'private'"`
	Username    *string `gorm:"type:varchar(128)"`
	Title       *string `gorm:"type:varchar(256)"`
	Enabled     bool    `gorm:"not null;default:true"`
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

func (TelegramChatModel) TableName() string {
	return "telegram_chats"
}

func joinInts(values []int) *string {
	if len(values) == 0 {
		return nil
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	joined := strings.Join(parts, ",")
	return &joined
}

func splitInts(joined *string) []int {
	if joined == nil || strings.TrimSpace(*joined) == "" {
		return nil
	}
	parts := strings.Split(*joined, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

func joinStrings(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, ",")
	return &joined
}

func splitStrings(joined *string) []string {
	if joined == nil || strings.TrimSpace(*joined) == "" {
		return nil
	}
	parts := strings.Split(*joined, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func reminderModelFromDomain(r *domain.Reminder) *ReminderModel {
	if r == nil {
		return nil
	}

	return &ReminderModel{
		ID:             r.ID,
		Label:          r.Label,
		Description:    r.Description,
		ScheduleKind:   r.ScheduleKind,
		TimeOfDay:      r.TimeOfDay,
		DaysOfWeek:     joinInts(r.DaysOfWeek),
		OneOffAt:       r.OneOffAt,
		GraceBeforeMin: r.GraceBeforeMin,
		GraceAfterMin:  r.GraceAfterMin,
		Channels:       joinStrings(r.Channels),
		Enabled:        r.Enabled,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderModel) *domain.Reminder {
	if m == nil {
		return nil
	}

	return &domain.Reminder{
		ID:             m.ID,
		Label:          m.Label,
		Description:    m.Description,
		ScheduleKind:   m.ScheduleKind,
		TimeOfDay:      m.TimeOfDay,
		DaysOfWeek:     splitInts(m.DaysOfWeek),
		OneOffAt:       m.OneOffAt,
		GraceBeforeMin: m.GraceBeforeMin,
		GraceAfterMin:  m.GraceAfterMin,
		Channels:       splitStrings(m.Channels),
		Enabled:        m.Enabled,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func occurrenceModelFromDomain(o *domain.Occurrence) *OccurrenceModel {
	if o == nil {
		return nil
	}

	return &OccurrenceModel{
		ID:            o.ID,
		ReminderID:    o.ReminderID,
		DueAt:         o.DueAt,
		WindowStartAt: o.WindowStartAt,
		WindowEndAt:   o.WindowEndAt,
		State:         o.State,
		DoneAt:        o.DoneAt,
		SkippedAt:     o.SkippedAt,
		AlertedAt:     o.AlertedAt,
		Note:          o.Note,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func occurrenceModelToDomain(m *OccurrenceModel) *domain.Occurrence {
	if m == nil {
		return nil
	}

	return &domain.Occurrence{
		ID:            m.ID,
		ReminderID:    m.ReminderID,
		DueAt:         m.DueAt,
		WindowStartAt: m.WindowStartAt,
		WindowEndAt:   m.WindowEndAt,
		State:         m.State,
		DoneAt:        m.DoneAt,
		SkippedAt:     m.SkippedAt,
		AlertedAt:     m.AlertedAt,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func eventModelFromDomain(e *domain.NotificationEvent) (*NotificationEventModel, error) {
	if e == nil {
		return nil, nil
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	return &NotificationEventModel{
		ID:           e.ID,
		Channel:      e.Channel,
		PayloadJSON:  string(payload),
		Status:       e.Status,
		AttemptCount: e.AttemptCount,
		LastError:    e.LastError,
		LockedAt:     e.LockedAt,
		LockedBy:     e.LockedBy,
		SentAt:       e.SentAt,
		AckedAt:      e.AckedAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}, nil
}

func eventModelToDomain(m *NotificationEventModel) *domain.NotificationEvent {
	if m == nil {
		return nil
	}

	// A malformed stored payload must not break the batch; surface it empty.
	var payload domain.EventPayload
	if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
		payload = domain.EventPayload{}
	}

	return &domain.NotificationEvent{
		ID:           m.ID,
		Channel:      m.Channel,
		Payload:      payload,
		Status:       m.Status,
		AttemptCount: m.AttemptCount,
		LastError:    m.LastError,
		LockedAt:     m.LockedAt,
		LockedBy:     m.LockedBy,
		SentAt:       m.SentAt,
		AckedAt:      m.AckedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func serviceModelFromDomain(s *domain.Service) *ServiceModel {
	if s == nil {
		return nil
	}

	return &ServiceModel{
		ID:               s.ID,
		Name:             s.Name,
		Slug:             s.Slug,
		Kind:             s.Kind,
		Target:           s.Target,
		CheckIntervalSec: s.CheckIntervalSec,
		TimeoutSec:       s.TimeoutSec,
		Enabled:          s.Enabled,
		AlertOnDown:      s.AlertOnDown,
		AlertOnRecovery:  s.AlertOnRecovery,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func serviceModelToDomain(m *ServiceModel) *domain.Service {
	if m == nil {
		return nil
	}

	return &domain.Service{
		ID:               m.ID,
		Name:             m.Name,
		Slug:             m.Slug,
		Kind:             m.Kind,
		Target:           m.Target,
		CheckIntervalSec: m.CheckIntervalSec,
		TimeoutSec:       m.TimeoutSec,
		Enabled:          m.Enabled,
		AlertOnDown:      m.AlertOnDown,
		AlertOnRecovery:  m.AlertOnRecovery,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func statusModelFromDomain(s *domain.ServiceStatus) *ServiceStatusModel {
	if s == nil {
		return nil
	}

	return &ServiceStatusModel{
		ID:                  s.ID,
		ServiceID:           s.ServiceID,
		IsUp:                s.IsUp,
		LatencyMS:           s.LatencyMS,
		LastCheckedAt:       s.LastCheckedAt,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastChangeAt:        s.LastChangeAt,
	}
}

func statusModelToDomain(m *ServiceStatusModel) *domain.ServiceStatus {
	if m == nil {
		return nil
	}

	return &domain.ServiceStatus{
		ID:                  m.ID,
		ServiceID:           m.ServiceID,
		IsUp:                m.IsUp,
		LatencyMS:           m.LatencyMS,
		LastCheckedAt:       m.LastCheckedAt,
		ConsecutiveFailures: m.ConsecutiveFailures,
		LastChangeAt:        m.LastChangeAt,
	}
}

func wordModelFromDomain(w *domain.Word) *WordModel {
	if w == nil {
		return nil
	}

	return &WordModel{
		ID:         w.ID,
		Word:       w.Word,
		Definition: w.Definition,
		ExtraJSON:  w.ExtraJSON,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

func wordModelToDomain(m *WordModel) *domain.Word {
	if m == nil {
		return nil
	}

	return &domain.Word{
		ID:         m.ID,
		Word:       m.Word,
		Definition: m.Definition,
		ExtraJSON:  m.ExtraJSON,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func chatModelFromDomain(c *domain.TelegramChat) *TelegramChatModel {
	if c == nil {
		return nil
	}

	return &TelegramChatModel{
		ID:          c.ID,
		ChatID:      c.ChatID,
		ChatType:    c.ChatType,
		Username:    c.Username,
		Title:       c.Title,
		Enabled:     c.Enabled,
		FirstSeenAt: c.FirstSeenAt,
		LastSeenAt:  c.LastSeenAt,
	}
}

func chatModelToDomain(m *TelegramChatModel) *domain.TelegramChat {
	if m == nil {
		return nil
	}

	return &domain.TelegramChat{
		ID:          m.ID,
		ChatID:      m.ChatID,
		ChatType:    m.ChatType,
		Username:    m.Username,
		Title:       m.Title,
		Enabled:     m.Enabled,
		FirstSeenAt: m.FirstSeenAt,
		LastSeenAt:  m.LastSeenAt,
	}
}
