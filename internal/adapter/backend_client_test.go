package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/signal-miniapp/internal/errors"
)

type balanceBody struct {
	Balance      float64 `json:"balance"`
	TradeBalance float64 `json:"trade_balance"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*BackendClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewBackendClient(BackendClientConfig{
		BaseURL: srv.URL + "/api/",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return client, srv
}

func TestBackendClient_GetDecodesAndAttachesCredential(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/balance/42", r.URL.Path)
		cookie, err := r.Cookie(CredentialCookie)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", cookie.Value)
		w.Write([]byte(`{"balance":10,"trade_balance":250.5}`))
	})

	ctx := WithCredential(context.Background(), "tok-1")
	var out balanceBody
	require.NoError(t, client.Get(ctx, "balance/42", &out))
	assert.Equal(t, 250.5, out.TradeBalance)
}

func TestBackendClient_NoCredentialNoCookie(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie(CredentialCookie)
		assert.ErrorIs(t, err, http.ErrNoCookie)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Get(context.Background(), "auth?token=x", nil))
}

func TestBackendClient_PostSendsJSONAndQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/42/update_plan", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("new_plan"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2, body["plan"])
		w.Write([]byte(`{"message":"ok"}`))
	})

	var out struct{ Message string }
	require.NoError(t, client.Put(context.Background(), "user/42/update_plan?new_plan=2", map[string]int{"plan": 2}, &out))
	assert.Equal(t, "ok", out.Message)
}

func TestBackendClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"fastapi detail", http.StatusBadRequest, `{"detail":"Insufficient trade balance"}`, "Insufficient trade balance"},
		{"message field", http.StatusConflict, `{"message":"already joined"}`, "already joined"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"bad"}]}`, "Unprocessable Entity"},
		{"html", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.Post(context.Background(), "transfer_to_main/1", map[string]float64{"amount": 100}, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsResponse(err))

			cat := apperrors.Categorize(err)
			assert.Equal(t, tt.status, cat.StatusCode)
			assert.Equal(t, tt.wantMessage, cat.Message)
			assert.Equal(t, tt.body, cat.Detail("body"))
		})
	}
}

func TestBackendClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewBackendClient(BackendClientConfig{BaseURL: url})
	require.NoError(t, err)

	err = client.Get(context.Background(), "balance/1", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
}

func TestBackendClient_NoRetry(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	require.Error(t, client.Post(context.Background(), "deposit/1", map[string]float64{"amount": 5}, nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackendClient_UndecodableBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	var out balanceBody
	err := client.Get(context.Background(), "balance/1", &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsResponse(err))
}

func TestNewBackendClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewBackendClient(BackendClientConfig{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestLoggerMiddleware_RedactsCredential(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":1}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewBackendClient(BackendClientConfig{BaseURL: srv.URL, Logger: logger, LogMaxBodySize: 4})
	require.NoError(t, err)

	var out balanceBody
	require.NoError(t, client.Get(WithCredential(context.Background(), "secret-token"), "balance/1", &out))

	assert.Equal(t, 1.0, out.Balance)
	assert.NotContains(t, buf.String(), "secret-token")
	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.Contains(t, buf.String(), `{\"ba…`)

	buf.Reset()
	require.NoError(t, client.Get(WithCredential(context.Background(), "secret-token"), "auth?token=secret-token&lang=ru", &out))
	assert.NotContains(t, buf.String(), "secret-token")
	assert.Contains(t, buf.String(), "token=[REDACTED]")
	assert.Contains(t, buf.String(), "lang=ru")
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"token=abc", "token=[REDACTED]"},
		{"telegram_id=42", "telegram_id=42"},
		{"new_plan=1&Token=abc", "new_plan=1&Token=[REDACTED]"},
		{"to%6Ben=abc", "to%6Ben=[REDACTED]"},
		{"token", "token"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, redactQuery(tt.in))
		})
	}
}
