package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the endpoint while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrBodyNotReplayable is returned when a request with a body cannot be retried.
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	Name string

	// Timeout bounds a single attempt. Default: 5s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 2.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker overrides DefaultBreakerConfig.
	Breaker *BreakerConfig

	// Registry, when set, receives the client and its call outcomes.
	Registry *Registry
}

// DefaultClientConfig returns defaults sized for inline calls made while an
// HTTP request is waiting.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Breaker:         &breaker,
	}
}

// Client is an HTTP client with circuit breaker and retry logic.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	registry   *Registry
	cfg        ClientConfig
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.Breaker == nil {
		cfg.Breaker = defaults.Breaker
	}

	c := &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    newBreaker[*http.Response](*cfg.Breaker), //nolint:bodyclose // type param, not response
		registry:   cfg.Registry,
		cfg:        cfg,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req with retries on network errors and 5xx responses. 4xx
// responses are returned as-is without retrying. When retries are exhausted
// on a 5xx, the last response is returned with a nil error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var lastResp *http.Response

	operation := func() error {
		attempt, err := cloneForAttempt(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				replaceResponse(&lastResp, resp)
			}
			return err
		}

		replaceResponse(&lastResp, resp)
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
	c.record(lastResp, err)
	if err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

func replaceResponse(dst **http.Response, resp *http.Response) {
	if *dst != nil {
		_ = (*dst).Body.Close()
	}
	*dst = resp
}

func (c *Client) record(resp *http.Response, err error) {
	if c.registry == nil {
		return
	}
	switch {
	case err != nil:
		c.registry.RecordFailure(c.name, err)
	case resp != nil && resp.StatusCode >= http.StatusBadRequest:
		c.registry.RecordFailure(c.name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	default:
		c.registry.RecordSuccess(c.name)
	}
}

// cloneForAttempt returns a copy of req with a fresh body so that a POST can
// be sent more than once.
func cloneForAttempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

// ServerError represents an HTTP 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current breaker counts.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
