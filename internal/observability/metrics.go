package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API handlers and the
// background loops.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	occurrencesCreatedTotal prometheus.Counter
	occurrencesMissedTotal  prometheus.Counter
	alertsEmittedTotal      *prometheus.CounterVec
	outboxClaimedTotal      prometheus.Counter
	outboxAckedTotal        *prometheus.CounterVec
	outboxFailedTotal       *prometheus.CounterVec
	probeDuration           *prometheus.HistogramVec
	serviceUp               *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "minerva_brain",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		occurrencesCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "reminder_occurrences_created_total",
				Help:      "Total number of reminder occurrences materialized by the scheduler.",
			},
		),
		occurrencesMissedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "reminder_occurrences_missed_total",
				Help:      "Total number of pending occurrences expired to missed.",
			},
		),
		alertsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "alerts_emitted_total",
				Help:      "Total number of notification events enqueued by the loops.",
			},
			[]string{"channel"},
		),
		outboxClaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "outbox_events_claimed_total",
				Help:      "Total number of outbox events leased to consumers.",
			},
		),
		outboxAckedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "outbox_events_acked_total",
				Help:      "Total number of outbox events acknowledged as delivered.",
			},
			[]string{"channel"},
		),
		outboxFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "minerva_brain",
				Name:      "outbox_events_failed_total",
				Help:      "Total number of outbox events that recorded a delivery failure.",
			},
			[]string{"channel"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "minerva_brain",
				Name:      "service_probe_duration_seconds",
				Help:      "Health probe duration in seconds grouped by service slug.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"service"},
		),
		serviceUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "minerva_brain",
				Name:      "service_up",
				Help:      "Whether the last probe of a monitored service succeeded (1) or failed (0).",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.occurrencesCreatedTotal,
		m.occurrencesMissedTotal,
		m.alertsEmittedTotal,
		m.outboxClaimedTotal,
		m.outboxAckedTotal,
		m.outboxFailedTotal,
		m.probeDuration,
		m.serviceUp,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) AddOccurrencesCreated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.occurrencesCreatedTotal.Add(float64(count))
}

func (m *Metrics) AddOccurrencesMissed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.occurrencesMissedTotal.Add(float64(count))
}

func (m *Metrics) IncAlertEmitted(channel string) {
	if m == nil {
		return
	}
	m.alertsEmittedTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) AddOutboxClaimed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.outboxClaimedTotal.Add(float64(count))
}

func (m *Metrics) IncOutboxAcked(channel string) {
	if m == nil {
		return
	}
	m.outboxAckedTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncOutboxFailed(channel string) {
	if m == nil {
		return
	}
	m.outboxFailedTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) ObserveProbeDuration(slug string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.probeDuration.WithLabelValues(normalizeChannel(slug)).Observe(seconds)
}

func (m *Metrics) SetServiceUp(slug string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	m.serviceUp.WithLabelValues(normalizeChannel(slug)).Set(value)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
