package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/signal-miniapp/internal/errors"
)

const maxResponseBytes = 4 << 20

// BackendClientConfig configures a BackendClient
type BackendClientConfig struct {
	// BaseURL is the fixed origin plus prefix every path is resolved against.
	BaseURL string
	// Timeout bounds a single call; there is no per-call override.
	Timeout time.Duration
	// Transport is the innermost round tripper; DefaultTransport when nil.
	Transport http.RoundTripper
	// Logger receives request/response logs; nothing is logged when nil.
	Logger         *slog.Logger
	LogMaxBodySize int
}

// BackendClient is the only component that talks to the remote backend.
// It never retries: one call is one request.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient builds a client whose transport attaches the session
// credential from the request context and logs each exchange.
func NewBackendClient(cfg BackendClientConfig) (*BackendClient, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend base URL must be absolute: %q", cfg.BaseURL)
	}

	base := cfg.Transport
	if base == nil {
		base = DefaultTransport()
	}

	middlewares := []Middleware{RequestGetBodySetter, Credential}
	if cfg.Logger != nil {
		middlewares = append(middlewares, Logger(cfg.Logger, cfg.LogMaxBodySize))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &BackendClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: Wrap(base, middlewares...),
			Timeout:   timeout,
		},
	}, nil
}

// Get fetches path and decodes the 2xx body into out.
func (c *BackendClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the 2xx reply into out.
func (c *BackendClient) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the 2xx reply into out.
func (c *BackendClient) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("encode %s %s body", method, path), err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("build %s %s", method, path), err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewTransportError(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.NewTransportError(method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewResponseError(method, path, resp.StatusCode, raw, backendMessage(raw))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		respErr := apperrors.NewResponseError(method, path, resp.StatusCode, raw, "undecodable response body")
		respErr.Cause = err
		return respErr
	}
	return nil
}

func (c *BackendClient) resolve(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// backendMessage extracts the explanation FastAPI-style backends put in
// {"detail": "..."} or {"message": "..."}.
func backendMessage(raw []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	return body.Message
}
