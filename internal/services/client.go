package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxRetries = 3
	maxErrorBody      = 512
)

// Response is a successful API response with its body read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *log.Logger
	// BaseDelay is the delay before the first retry; each later retry doubles it.
	BaseDelay time.Duration
	// MaxRetries caps retries of throttled or transient responses. Negative disables retry.
	MaxRetries int
	// RequestsPerSecond paces sends. Zero or less disables pacing.
	RequestsPerSecond float64
}

// Client is a rate-limited, retrying HTTP client for authenticated catalog requests.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.Logger
	limiter    *rate.Limiter
	baseDelay  time.Duration
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a [Client] from opts, filling defaults for unset fields.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	} else if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		limiter:    rate.NewLimiter(limit, 1),
		baseDelay:  opts.BaseDelay,
		maxRetries: opts.MaxRetries,
		sleep:      sleepContext,
	}
}

// Call sends the request produced by build until it succeeds or fails terminally.
//
// A 401 triggers one token refresh and one resend. Throttled and transient responses are
// retried with backoff up to the configured maximum. Any other failure returns at once.
func (c *Client) Call(ctx context.Context, build RequestBuilder) (*Response, error) {
	refreshed := false
	retries := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		token, err := c.tokens.GetAccessToken()
		if err != nil {
			return nil, err
		}

		req, err := build(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to build request: %v", shared.ErrAPIRequest, err)
		}

		resp, outcome, err := c.send(req)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch outcome {
		case OutcomeOK:
			return resp, nil

		case OutcomeAuthExpired:
			if refreshed {
				return nil, fmt.Errorf("%w: access token rejected after refresh", shared.ErrRefreshFailed)
			}
			refreshed = true
			c.logger.Debug("access token expired, refreshing", "url", req.URL.Path)
			if _, err := c.tokens.RefreshStale(ctx, token); err != nil {
				return nil, err
			}

		case OutcomeThrottled, OutcomeTransient:
			if retries >= c.maxRetries {
				return nil, c.exhausted(outcome, resp, err)
			}
			delay := Backoff(c.baseDelay, retries)
			c.logger.Warn("retrying request", "outcome", outcome, "attempt", retries, "delay", delay, "url", req.URL.Path)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			retries++

		default:
			return nil, fatalError(resp)
		}
	}
}

// CallJSON performs [Client.Call] and decodes the body into out.
// A body that does not decode is a fatal error.
func (c *Client) CallJSON(ctx context.Context, build RequestBuilder, out any) error {
	resp, err := c.Call(ctx, build)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// send performs one request. A network error or unreadable body is transient.
func (c *Client) send(req *http.Request) (*Response, Outcome, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, OutcomeTransient, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, OutcomeTransient, fmt.Errorf("failed to read response: %w", err)
	}

	r := &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	return r, Classify(resp.StatusCode), nil
}

func (c *Client) exhausted(outcome Outcome, resp *Response, cause error) error {
	sentinel := shared.ErrUnavailable
	if outcome == OutcomeThrottled {
		sentinel = shared.ErrRateLimited
	}

	switch {
	case resp != nil:
		return fmt.Errorf("%w: status %d after %d retries", sentinel, resp.StatusCode, c.maxRetries)
	case cause != nil:
		return fmt.Errorf("%w: %v after %d retries", sentinel, cause, c.maxRetries)
	default:
		return fmt.Errorf("%w: after %d retries", sentinel, c.maxRetries)
	}
}

// StatusError is a fatal API response. It matches [shared.ErrAPIRequest] with errors.Is.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: status %d: %s", shared.ErrAPIRequest, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: status %d", shared.ErrAPIRequest, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return shared.ErrAPIRequest
}

func fatalError(resp *Response) error {
	if resp == nil {
		return shared.ErrAPIRequest
	}
	body := resp.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryable reports whether err came from an exhausted throttle or transient retry loop.
func IsRetryable(err error) bool {
	return errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrUnavailable)
}

var _ Caller = (*Client)(nil)
