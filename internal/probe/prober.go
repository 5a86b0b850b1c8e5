// Package probe performs single reachability checks against monitored
// services. A probe answers "is it reachable right now", not whether the
// protocol behind the port is healthy.
package probe

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/minervahome/brain/internal/domain"
)

const defaultProbeTimeout = 5 * time.Second

// Result is the outcome of one probe. LatencyMS is nil when unreachable.
type Result struct {
	Reachable bool
	LatencyMS *float64
}

// Prober checks a single service for reachability.
type Prober interface {
	Check(ctx context.Context, service domain.Service) Result
}

// NetProber probes HTTP targets with a GET and TCP targets with a
// connect-then-close dial.
type NetProber struct {
	client *resty.Client
	dial   func(network, address string, timeout time.Duration) (net.Conn, error)
	now    func() time.Time
}

func NewNetProber() *NetProber {
	client := resty.New()
	client.SetRetryCount(0)

	return &NetProber{
		client: client,
		dial:   net.DialTimeout,
		now:    time.Now,
	}
}

func (p *NetProber) Check(ctx context.Context, service domain.Service) Result {
	timeout := time.Duration(service.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	switch service.Kind {
	case domain.ServiceHTTP:
		return p.checkHTTP(ctx, service.Target, timeout)
	case domain.ServiceTCP:
		return p.checkTCP(service.Target, timeout)
	}

	// Unsupported kind is unreachable, not an error.
	return Result{}
}

func (p *NetProber) checkHTTP(ctx context.Context, target string, timeout time.Duration) Result {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.now()
	resp, err := p.client.R().SetContext(checkCtx).Get(target)
	if err != nil || resp == nil {
		return Result{}
	}

	latency := float64(p.now().Sub(start)) / float64(time.Millisecond)
	if resp.StatusCode() >= http.StatusInternalServerError {
		return Result{Reachable: false, LatencyMS: &latency}
	}
	return Result{Reachable: true, LatencyMS: &latency}
}

func (p *NetProber) checkTCP(target string, timeout time.Duration) Result {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(target)); err != nil {
		return Result{}
	}

	start := p.now()
	conn, err := p.dial("tcp", strings.TrimSpace(target), timeout)
	if err != nil {
		return Result{}
	}
	_ = conn.Close()

	latency := float64(p.now().Sub(start)) / float64(time.Millisecond)
	return Result{Reachable: true, LatencyMS: &latency}
}
