// Package httpclient wraps outbound HTTP calls to third-party hosts in a
// circuit breaker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/metrics"
)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// ErrUpstreamStatus marks a 5xx answer counted as a breaker failure.
var ErrUpstreamStatus = errors.New("upstream server error")

// Client executes requests through a breaker. Responses with a 5xx status are
// failures; 4xx responses are returned to the caller untouched.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	metrics *metrics.BreakerMetrics
	name    string
}

// New builds a breaker-wrapped client with the given request timeout.
func New(timeout time.Duration, cfg BreakerConfig, logg *logger.Logger, m *metrics.BreakerMetrics) *Client {
	if cfg.Name == "" {
		cfg.Name = "upstream"
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return NewWithHTTPClient(&http.Client{Transport: transport, Timeout: timeout}, cfg, logg, m)
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(hc *http.Client, cfg BreakerConfig, logg *logger.Logger, m *metrics.BreakerMetrics) *Client {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg != nil {
				ctx := logg.WithFields(context.Background(), map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
				logg.Warn(ctx, "circuit_breaker.state_change")
			}
			m.SetState(name, stateValue(to))
		},
	}
	m.SetState(cfg.Name, metrics.BreakerClosed)

	return &Client{
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		metrics: m,
		name:    cfg.Name,
	}
}

// Do executes req through the breaker.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
		}
		return resp, nil
	})
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.send(ctx, http.MethodHead, url)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, url)
}

func (c *Client) send(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	return c.Do(req)
}

// RecordFallback counts a fallback answer served instead of the upstream.
func (c *Client) RecordFallback() {
	c.metrics.IncFallback(c.name)
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}
