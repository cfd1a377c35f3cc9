// SPDX-License-Identifier: Apache-2.0

// Package tracker is the HTTP client for the REST API that plans run
// against.
package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kusari-oss/stitch/internal/core/format"
	"github.com/kusari-oss/stitch/internal/core/plan"
)

type (
	// Caller executes one resolved step call against the tracker.
	Caller interface {
		Call(ctx context.Context, req Request) (*Outcome, error)
	}

	// Request is a fully resolved step call: no placeholders remain.
	Request struct {
		Method   string
		Endpoint string
		Payload  interface{}
		Query    map[string]interface{}
	}

	// Outcome is the tracker's answer to a single call. Success mirrors the
	// HTTP status: anything below 400 counts. A transport failure produces an
	// error instead of an Outcome.
	Outcome struct {
		Success    bool
		StatusCode int
		Body       interface{}
		Raw        []byte
		Headers    map[string]string
		Error      string
	}

	// Config carries the connection settings for the tracker API.
	Config struct {
		BaseURL     string
		Email       string
		APIToken    string
		BearerToken string
		Timeout     time.Duration
		RateLimit   float64
		RateBurst   int
	}

	// HTTPCaller is the production Caller.
	HTTPCaller struct {
		httpClient *http.Client
		baseURL    string
		authHeader string
		limiter    *rate.Limiter
	}
)

var (
	ErrNoBaseURL         = errors.New("tracker base URL is not configured")
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
)

var _ Caller = (*HTTPCaller)(nil)

// NewHTTPCaller creates a caller for the configured tracker.
func NewHTTPCaller(cfg Config) (*HTTPCaller, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
	}

	return &HTTPCaller{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: authHeader(cfg),
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// authHeader prefers basic credentials, then a bearer token.
func authHeader(cfg Config) string {
	if cfg.Email != "" && cfg.APIToken != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.APIToken))
		return "Basic " + credentials
	}
	if cfg.BearerToken != "" {
		return "Bearer " + cfg.BearerToken
	}
	return ""
}

// Call performs the request and returns the tracker's answer.
func (c *HTTPCaller) Call(ctx context.Context, req Request) (*Outcome, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if !plan.ValidMethods[method] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("error marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Stitch/1.0")
	if c.authHeader != "" {
		httpReq.Header.Set("Authorization", c.authHeader)
	}

	if len(req.Query) > 0 {
		values := url.Values{}
		for k, v := range req.Query {
			values.Set(k, fmt.Sprintf("%v", v))
		}
		httpReq.URL.RawQuery = values.Encode()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		slog.Error("tracker request failed",
			slog.String("method", method),
			slog.String("endpoint", req.Endpoint),
			slog.Duration("duration", dur),
			slog.Any("error", err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	outcome := &Outcome{
		Success:    resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		Body:       decodeBody(raw),
		Raw:        raw,
		Headers:    flattenHeaders(resp.Header),
	}
	if !outcome.Success {
		outcome.Error = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	slog.Debug("tracker call finished",
		slog.String("method", method),
		slog.String("endpoint", req.Endpoint),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", dur))

	return outcome, nil
}

// buildURL joins the endpoint onto the base URL. Absolute endpoints are used
// as given.
func (c *HTTPCaller) buildURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// decodeBody keeps JSON answers structured and wraps anything else so
// callers always see a value they can inspect.
func decodeBody(raw []byte) interface{} {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}
	}

	v, err := format.DecodeJSON(raw)
	if err != nil {
		return map[string]interface{}{"raw_response": string(raw)}
	}
	return v
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k := range h {
		headers[k] = h.Get(k)
	}
	return headers
}
