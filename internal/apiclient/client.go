// Package apiclient is the HTTP envelope for the helpdesk backend: bearer
// auth, JSON and multipart bodies, binary downloads and uniform error mapping.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	headerRequestID = "X-Request-ID"
	maxErrorBody    = 1 << 20
)

// TokenFunc returns the bearer token for the next request, or "" when
// unauthenticated.
type TokenFunc func() string

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Token      TokenFunc
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Client issues requests against the helpdesk backend.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New constructs a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		token:   token,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// StaticToken returns a TokenFunc that always yields token.
func StaticToken(token string) TokenFunc {
	return func() string { return token }
}

// BaseURL returns the backend origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestJSON sends body (when non-nil) as JSON and decodes a 2xx response
// into out (when non-nil). Failures carry the backend's message, or fallback.
func (c *Client) RequestJSON(ctx context.Context, method, path string, body any, fallback string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return errorutil.NewTransportError(fallback, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, fallback, out)
}

// Ping reports whether the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errorutil.NewTransportError("backend unreachable", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes req and converts transport failures and non-2xx responses into
// DomainErrors. On success the caller owns resp.Body.
func (c *Client) do(req *http.Request, fallback string) (*http.Response, error) {
	route := routeOf(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordError(route, req.Method, errorutil.CodeTransport)
		c.logger.Debug("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", route),
			zap.String("request_id", req.Header.Get(headerRequestID)),
			zap.Error(err),
		)
		return nil, errorutil.NewTransportError(fallback, err)
	}

	c.metrics.RecordRequest(route, req.Method, resp.StatusCode, duration)
	c.logger.Debug("backend request",
		zap.String("method", req.Method),
		zap.String("path", route),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.String("request_id", req.Header.Get(headerRequestID)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		domainErr := errorutil.NewBackendError(resp.StatusCode, ParseErrorMessage(fallback, raw))
		c.metrics.RecordError(route, req.Method, errorutil.ToDomainError(domainErr).Code)
		return nil, domainErr
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, fallback string, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorutil.NewTransportError(fallback, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errorutil.NewDecodeError(fallback, errors.New("empty response body"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errorutil.NewDecodeError(fallback, err)
	}
	return nil
}

// ParseErrorMessage extracts body.message when it is a non-empty string.
func ParseErrorMessage(fallback string, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}
	if msg, ok := parsed["message"].(string); ok && msg != "" {
		return msg
	}
	return fallback
}

func routeOf(req *http.Request) string {
	return "backend:" + req.URL.Path
}
