package zoom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/instrumentation"
	"github.com/zoomscribe/zoomscribe/internal/logging"
)

// Defaults for the request executor.
const (
	DefaultBaseURL  = "https://api.zoom.us/v2"
	DefaultPageSize = 100

	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond

	requestIDHeader  = "x-zm-trackingid"
	retryAfterHeader = "Retry-After"

	// downloadTokenTTL is the lifetime hint requested for per-file download
	// access tokens on meeting-scoped fetches, in seconds. Long enough that
	// a large batch does not need interactive passcode prompts.
	downloadTokenTTL = 3600
)

// ListScope selects which listing endpoint a client walks.
type ListScope string

const (
	// ScopeUser lists recordings owned by a single user.
	ScopeUser ListScope = "user"
	// ScopeAccount lists recordings across the whole account.
	ScopeAccount ListScope = "account"
)

// retryable HTTP statuses, matching the provider's transient failure modes.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Config carries the named options for a Client. No others exist.
type Config struct {
	// BaseURL is the API root; defaults to DefaultBaseURL.
	BaseURL string

	// Tokens supplies bearer tokens and is invalidated once on 401.
	Tokens TokenProvider

	// Scope selects user- or account-wide listing. Defaults to ScopeUser.
	Scope ListScope

	// PageSize is the per-page hint for listing calls, clamped to 1..300.
	PageSize int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// MaxRetries bounds retries per logical request (not counting the first
	// attempt). Defaults to 3.
	MaxRetries int

	// BackoffBase is the first retry delay before doubling. Defaults to 500ms.
	BackoffBase time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Client wraps the Zoom REST API for recording retrieval. All blocking
// methods take a context and honour its cancellation at every suspension
// point (request dispatch and backoff sleeps).
type Client struct {
	baseURL     string
	tokens      TokenProvider
	scope       ListScope
	pageSize    int
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
	metrics     *instrumentation.Metrics

	// sleep and jitter are injectable for deterministic retry tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewClient builds a Client from cfg, applying defaults for unset options.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, &ValidationError{Message: "a token provider is required"}
	}
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokens:      cfg.Tokens,
		scope:       cfg.Scope,
		pageSize:    cfg.PageSize,
		httpClient:  cfg.HTTPClient,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.scope == "" {
		c.scope = ScopeUser
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.pageSize > 300 {
		c.pageSize = 300
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: defaultTimeout,
			// Download URLs may carry access tokens in the query; never
			// follow a redirect that could leak them to another host.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = logging.WithService(c.logger, "zoom")
	c.sleep = sleepCtx
	c.jitter = func() float64 { return 0.5 + rand.Float64() }
	return c, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryDelay computes the wait before retrying attempt (0-based), honouring
// a provider Retry-After hint when one was supplied.
func (c *Client) retryDelay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if hint := resp.Header.Get(retryAfterHeader); hint != "" {
			if secs, err := strconv.ParseFloat(hint, 64); err == nil && secs >= 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return time.Duration(float64(c.backoffBase) * float64(int64(1)<<uint(attempt)) * c.jitter())
}

// do issues one logical API request with bounded retry and a single token
// refresh on 401. The retry state (attempt counter) is local to this call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	safePath := maskPath(path)
	log := logging.WithOperation(c.logger, "api.request")

	attempt := 0
	authRefreshed := false
	for {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid request: %v", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		log.Debug("dispatching request",
			"method", method,
			"path", safePath,
			"attempt", attempt,
		)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.record(ctx, method, safePath, 0, start)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				delay := c.retryDelay(attempt, nil)
				log.Warn("request failed, retrying",
					"method", method,
					"path", safePath,
					"attempt", attempt,
					"delay", delay,
					logging.Err(err),
				)
				if serr := c.sleep(ctx, delay); serr != nil {
					return nil, serr
				}
				attempt++
				continue
			}
			return nil, &TransientError{
				APIError: APIError{Message: "request failed after retries"},
				Err:      err,
			}
		}

		body, rerr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.record(ctx, method, safePath, resp.StatusCode, start)
		requestID := resp.Header.Get(requestIDHeader)

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !authRefreshed:
			// One refresh per logical request; a second 401 is fatal.
			log.Info("token rejected, refreshing once",
				"path", safePath,
				"request_id", requestID,
			)
			c.tokens.Invalidate()
			if c.metrics != nil {
				c.metrics.RecordTokenRefresh(ctx, instrumentation.StatusError)
			}
			authRefreshed = true
			continue

		case retryableStatus(resp.StatusCode) && attempt < c.maxRetries:
			delay := c.retryDelay(attempt, resp)
			log.Warn("retryable response",
				"method", method,
				"path", safePath,
				"status", resp.StatusCode,
				"attempt", attempt,
				"delay", delay,
				"request_id", requestID,
			)
			if serr := c.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			attempt++
			continue

		case resp.StatusCode >= 400:
			return nil, c.apiError(resp, body, safePath, attempt)

		case resp.StatusCode >= 300:
			// The API never redirects; treat it as a broken intermediary.
			return nil, &TransientError{APIError: APIError{
				Message:    "unexpected redirect from API",
				StatusCode: resp.StatusCode,
				RequestID:  requestID,
			}}
		}

		if rerr != nil {
			return nil, &TransientError{
				APIError: APIError{Message: "reading response body", StatusCode: resp.StatusCode, RequestID: requestID},
				Err:      rerr,
			}
		}
		log.Debug("request succeeded",
			"method", method,
			"path", safePath,
			"status", resp.StatusCode,
			"attempt", attempt,
		)
		return body, nil
	}
}

// apiError normalises a final error response into the typed taxonomy.
func (c *Client) apiError(resp *http.Response, body []byte, safePath string, attempt int) error {
	base := APIError{
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(requestIDHeader),
	}
	if hint := resp.Header.Get(retryAfterHeader); hint != "" {
		if secs, err := strconv.ParseFloat(hint, 64); err == nil && secs >= 0 {
			base.RetryAfter = secs
		}
	}
	if msg, code := parseErrorBody(body); msg != "" || code != "" {
		if msg != "" {
			base.Message = msg
		}
		base.Code = code
	}

	logging.WithOperation(c.logger, "api.request").Error("request failed",
		"path", safePath,
		"status", resp.StatusCode,
		"attempt", attempt,
		"request_id", base.RequestID,
		"error_code", base.Code,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{base}
	case resp.StatusCode == http.StatusForbidden:
		return &PermissionError{base}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{base}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{base}
	case resp.StatusCode >= 500:
		return &TransientError{APIError: base}
	}
	return &base
}

func (c *Client) record(ctx context.Context, method, path string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAPIRequest(ctx, method, path, status, time.Since(start))
}

// maskPath replaces identifier segments with ":id" so log lines never carry
// meeting UUIDs or user emails.
func maskPath(path string) string {
	sensitive := map[string]bool{"users": true, "meetings": true, "past_meetings": true, "accounts": true}
	path, _, _ = strings.Cut(path, "?")
	segments := strings.Split(path, "/")
	maskNext := false
	for i, seg := range segments {
		if maskNext && seg != "" {
			segments[i] = ":id"
			maskNext = false
			continue
		}
		maskNext = sensitive[seg]
	}
	return strings.Join(segments, "/")
}
