package adapter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RoundTripperFunc is a function that implements http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware is a function that wraps an http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Wrap wraps base with middlewares; the first middleware is the outermost.
func Wrap(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// DefaultTransport returns a pooled transport for backend calls.
func DefaultTransport() *http.Transport {
	return &http.Transport{
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
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// CredentialCookie is the cookie the backend reads the session token from.
const CredentialCookie = "auth"

type credentialKey struct{}

// WithCredential returns a context whose backend calls carry token.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey{}, token)
}

// CredentialFromContext returns the token attached by WithCredential.
func CredentialFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(credentialKey{}).(string)
	return token, ok && token != ""
}

// Credential attaches the session token found in the request context.
// Requests without one are sent as they are; the backend answers 401.
func Credential(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		token, ok := CredentialFromContext(req.Context())
		if !ok {
			return next.RoundTrip(req)
		}
		req = req.Clone(req.Context())
		req.AddCookie(&http.Cookie{Name: CredentialCookie, Value: token})
		return next.RoundTrip(req)
	})
}

// RequestGetBodySetter makes sure request.GetBody is set so redirects can replay the body.
func RequestGetBodySetter(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			req.Body.Close()
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}
		return next.RoundTrip(req)
	})
}

// Logger logs every backend exchange. maxBodySize caps how much of each
// body is logged: 0 disables body logging, -1 logs it whole.
func Logger(logger *slog.Logger, maxBodySize int) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			logRequest(logger, req, maxBodySize)

			start := time.Now()
			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			if err != nil {
				logger.LogAttrs(req.Context(), slog.LevelWarn, "backend request failed",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.Duration("duration", duration),
					slog.Any("error", err))
				return resp, err
			}

			logResponse(logger, req, resp, duration, maxBodySize)
			return resp, nil
		})
	}
}

func logRequest(logger *slog.Logger, req *http.Request, maxBodySize int) {
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Any("headers", headerGroup(req.Header)),
	}
	if req.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", redactQuery(req.URL.RawQuery)))
	}

	if maxBodySize != 0 && req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil && len(body) > 0 {
			attrs = append(attrs, slog.String("body", truncate(body, maxBodySize)))
		}
	}

	logger.LogAttrs(req.Context(), slog.LevelDebug, "backend request", attrs...)
}

func logResponse(logger *slog.Logger, req *http.Request, resp *http.Response, duration time.Duration, maxBodySize int) {
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	}

	if maxBodySize != 0 && resp.Body != nil {
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil && len(body) > 0 {
			attrs = append(attrs, slog.String("body", truncate(body, maxBodySize)))
		}
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	if resp.StatusCode >= 500 {
		level = slog.LevelError
	}

	logger.LogAttrs(req.Context(), level, "backend response", attrs...)
}

func headerGroup(h http.Header) slog.Value {
	attrs := make([]slog.Attr, 0, len(h))
	for k, v := range h {
		if isSensitiveHeader(k) {
			attrs = append(attrs, slog.String(k, "[REDACTED]"))
			continue
		}
		attrs = append(attrs, slog.String(k, strings.Join(v, ", ")))
	}
	return slog.GroupValue(attrs...)
}

func truncate(body []byte, max int) string {
	if max > 0 && len(body) > max {
		return string(body[:max]) + "…"
	}
	return string(body)
}

// redactQuery masks the values of credential-bearing query parameters,
// keeping the rest of the query readable.
func redactQuery(raw string) string {
	pairs := strings.Split(raw, "&")
	for i, pair := range pairs {
		key, _, hasValue := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			name = key
		}
		if hasValue && isSensitiveParam(name) {
			pairs[i] = key + "=[REDACTED]"
		}
	}
	return strings.Join(pairs, "&")
}

func isSensitiveParam(name string) bool {
	switch strings.ToLower(name) {
	case "token", "access_token", "auth", "api_key", "apikey", "password":
		return true
	}
	return false
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "cookie", "set-cookie", "x-api-key", "x-auth-token", "x-csrf-token":
		return true
	}
	return false
}
