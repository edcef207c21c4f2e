// Package readiness blocks test start until the backend under test
// answers its liveness endpoint. The gate polls with a fixed
// interval and a bounded attempt budget; there is no backoff growth
// and no other retry logic anywhere in the suite.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/logging"
)

// Defaults used when Gate fields are zero.
const (
	DefaultHealthPath     = "/health"
	DefaultMaxAttempts    = 30
	DefaultInterval       = time.Second
	DefaultRequestTimeout = 2 * time.Second
)

// TimeoutError is returned when no attempt succeeded within the
// budget.
type TimeoutError struct {
	URL      string
	Attempts int
	LastErr  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf(
		"server at %s not ready after %d attempts", e.URL, e.Attempts,
	)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// StatusError reports a non-2xx answer from the liveness path.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("health check returned HTTP %d", e.StatusCode)
}

// Gate polls BaseURL+HealthPath until it answers 2xx. A Gate holds
// no mutable state and may be shared by concurrent workers.
type Gate struct {
	BaseURL        string
	HealthPath     string
	MaxAttempts    int
	Interval       time.Duration
	RequestTimeout time.Duration
	Client         *http.Client
	Logger         logging.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithHealthPath overrides the liveness path.
func WithHealthPath(path string) Option {
	return func(g *Gate) { g.HealthPath = path }
}

// WithInterval overrides the fixed delay between attempts.
func WithInterval(d time.Duration) Option {
	return func(g *Gate) { g.Interval = d }
}

// WithRequestTimeout bounds each individual GET.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Gate) { g.RequestTimeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) { g.Client = c }
}

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(g *Gate) { g.Logger = l }
}

// New creates a Gate for baseURL with maxAttempts tries.
func New(baseURL string, maxAttempts int, opts ...Option) *Gate {
	g := &Gate{
		BaseURL:     baseURL,
		MaxAttempts: maxAttempts,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// URL returns the full liveness URL.
func (g *Gate) URL() string {
	path := g.HealthPath
	if path == "" {
		path = DefaultHealthPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(g.BaseURL, "/") + path
}

func (g *Gate) attempts() int {
	if g.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return g.MaxAttempts
}

func (g *Gate) interval() time.Duration {
	if g.Interval <= 0 {
		return DefaultInterval
	}
	return g.Interval
}

func (g *Gate) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}

func (g *Gate) logger() logging.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return logging.NullLogger{}
}

// Probe issues a single GET against the liveness URL and returns
// nil on a 2xx answer.
func (g *Gate) Probe(ctx context.Context) error {
	timeout := g.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodGet, g.URL(), nil,
	)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := g.client().Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Wait polls until the first 2xx answer. The first attempt is
// immediate; later ones are spaced by the fixed interval. It returns
// a *TimeoutError when the budget runs out and the wrapped context
// error when ctx ends first.
func (g *Gate) Wait(ctx context.Context) error {
	url := g.URL()
	budget := g.attempts()
	log := g.logger()

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		lastErr = g.Probe(ctx)
		if lastErr == nil {
			log.Info("backend ready",
				logging.StringField("url", url),
				logging.IntField("attempt", attempt),
			)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait for %s: %w", url, ctxErr)
		}
		log.Debug("backend not ready",
			logging.StringField("url", url),
			logging.IntField("attempt", attempt),
			logging.IntField("max_attempts", budget),
			logging.ErrorField(lastErr),
		)

		if attempt == budget {
			break
		}
		timer := time.NewTimer(g.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for %s: %w", url, ctx.Err())
		case <-timer.C:
		}
	}

	err := &TimeoutError{URL: url, Attempts: budget, LastErr: lastErr}
	log.Error("backend readiness timed out",
		logging.StringField("url", url),
		logging.IntField("attempts", budget),
		logging.ErrorField(lastErr),
	)
	return err
}

// IsTimeout reports whether err is a readiness TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
