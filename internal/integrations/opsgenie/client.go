package opsgenie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"geniereport/internal/config"
	"geniereport/internal/domain"
	"geniereport/internal/httpx"
)

const maxErrorBodyChars = 512

// Client talks to the Opsgenie REST API. Calls are sequential; a Client is
// not meant to be shared between concurrently running reports.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      httpx.RetryPolicy
	location   *time.Location
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p httpx.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimit caps outgoing requests per second; 0 disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLocation sets the zone used to render createdAt bounds in queries.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpx.ExternalHTTPClient(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		retry:      httpx.DefaultRetryPolicy(),
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewClientFromConfig(cfg config.Config) *Client {
	policy := httpx.DefaultRetryPolicy()
	policy.MaxRetries = cfg.RequestRetries
	return NewClient(cfg.OpsgenieAPIURL, cfg.OpsgenieAPIKey,
		WithRetryPolicy(policy),
		WithRateLimit(cfg.RequestsPerSecond),
		WithLocation(cfg.Location),
	)
}

// do performs one logical API call, retrying transient failures. Any failure
// comes back as *domain.RemoteServiceError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return httpx.Retry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.RemoteServiceError{Op: op, Err: err}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return &domain.RemoteServiceError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
		}
		req.Header.Set("Authorization", "GenieKey "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &domain.RemoteServiceError{Op: op, Err: err}
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return &domain.RemoteServiceError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			log.Printf("opsgenie request failed op=%q status=%d", op, resp.StatusCode)
			return &domain.RemoteServiceError{Op: op, StatusCode: resp.StatusCode, Body: httpx.Truncate(strings.TrimSpace(string(data)), maxErrorBodyChars)}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &domain.RemoteServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
		}
		return nil
	}, func(err error) bool {
		return ctx.Err() == nil && retryable(err)
	})
}

func retryable(err error) bool {
	var rse *domain.RemoteServiceError
	if errors.As(err, &rse) {
		return rse.Retryable()
	}
	return false
}
