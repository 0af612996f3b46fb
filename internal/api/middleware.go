package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/signal-miniapp/internal/adapter"
	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/session"
	"github.com/signal-miniapp/internal/storage"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an ID and a logger carrying it
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := logging.GetGlobalLogger().WithField("request_id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
	})
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logging.FromContext(r.Context()).WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Info("http request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware recovers from panics and returns 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.FromContext(r.Context()).WithField("panic", err).Error("PANIC")
				respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal server error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware adds CORS headers to responses.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+requestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestSession is the authenticated session a request runs in
type requestSession struct {
	*storage.Session
	cache *storage.QueryCache
}

type sessionKey struct{}

func withSession(ctx context.Context, s *requestSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFromContext(ctx context.Context) (*requestSession, bool) {
	s, ok := ctx.Value(sessionKey{}).(*requestSession)
	return s, ok && s != nil
}

// AuthorizeScreen is shown instead of the app when there is no session
type AuthorizeScreen struct {
	Screen  string `json:"screen"`
	Message string `json:"message"`
	BotLink string `json:"bot_link"`
}

const authorizeMessage = "Для входа откройте приложение через Telegram-бота"

func (s *Server) authorizeScreen() AuthorizeScreen {
	return AuthorizeScreen{Screen: "/authorize", Message: authorizeMessage, BotLink: s.config.BotLink}
}

// SessionMiddleware admits only requests with a valid session cookie whose
// session still exists. The session's credential and cache travel in the
// request context from here on.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		claims, err := s.deps.Cookies.FromRequest(r)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				logger.WithError(err).Debug("rejected session cookie")
			}
			respondJSON(w, http.StatusUnauthorized, s.authorizeScreen())
			return
		}

		sess, err := s.deps.Sessions.Load(ctx, claims.SessionID())
		if errors.Is(err, storage.ErrSessionNotFound) || (err == nil && sess.TelegramID != claims.TelegramID) {
			s.deps.Cookies.Clear(w)
			respondJSON(w, http.StatusUnauthorized, s.authorizeScreen())
			return
		}
		if err != nil {
			respondServiceError(w, r, err)
			return
		}

		ctx = adapter.WithCredential(ctx, sess.Token)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]interface{}{
			"session":     sess.ID,
			"telegram_id": sess.TelegramID,
		}))
		ctx = withSession(ctx, &requestSession{Session: sess, cache: s.deps.Caches.For(sess.ID)})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
