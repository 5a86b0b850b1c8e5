package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ServiceKind represents the probe protocol for a monitored service.
type ServiceKind string

const (
	ServiceHTTP ServiceKind = "HTTP"
	ServiceTCP  ServiceKind = "TCP"
)

func (k ServiceKind) String() string { return string(k) }

func (k ServiceKind) IsValid() bool {
	switch k {
	case ServiceHTTP, ServiceTCP:
		return true
	}
	return false
}

func ParseServiceKindFromString(s string) (ServiceKind, error) {
	k := ServiceKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid service kind %q", ErrValidation, s)
	}
	return k, nil
}

// Service is a monitored network endpoint.
type Service struct {
	ID               string
	Name             string
	Slug             string
	Kind             ServiceKind
	Target           string // URL for HTTP, host:port for TCP
	CheckIntervalSec int
	TimeoutSec       int
	Enabled          bool
	AlertOnDown      bool
	AlertOnRecovery  bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(s.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrValidation)
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%w: invalid service kind %q", ErrValidation, s.Kind)
	}
	if s.CheckIntervalSec <= 0 {
		return fmt.Errorf("%w: check_interval_sec must be positive", ErrValidation)
	}
	if s.TimeoutSec <= 0 {
		return fmt.Errorf("%w: timeout_sec must be positive", ErrValidation)
	}

	target := strings.TrimSpace(s.Target)
	if target == "" {
		return fmt.Errorf("%w: target is required", ErrValidation)
	}
	switch s.Kind {
	case ServiceHTTP:
		if _, err := url.ParseRequestURI(target); err != nil {
			return fmt.Errorf("%w: target must be a valid URL: %v", ErrValidation, err)
		}
	case ServiceTCP:
		if _, _, err := net.SplitHostPort(target); err != nil {
			return fmt.Errorf("%w: target must be host:port: %v", ErrValidation, err)
		}
	}

	return nil
}

// ServiceStatus is the current probe result state for one service. It is
// mutated only by the monitor loop.
type ServiceStatus struct {
	ID                  string
	ServiceID           string
	IsUp                bool
	LatencyMS           *float64
	LastCheckedAt       *time.Time
	ConsecutiveFailures int
	LastChangeAt        *time.Time
}
