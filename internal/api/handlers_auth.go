package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/storage"
)

const (
	authFailedMessage     = "Не удалось авторизоваться"
	referralFailedMessage = "Не удалось привязать реферальную ссылку"
)

// handleAuth handles GET /auth?token= - exchange a one-time bot token for a session
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		s.redirect(w, r, s.deps.Router.ToFailure(nil, authFailedMessage))
		return
	}

	identity, err := s.deps.Users.Authenticate(ctx, token)
	if err != nil {
		logger.WithError(err).Warn("token exchange failed")
		s.redirect(w, r, s.deps.Router.ToFailure(nil, authFailedMessage))
		return
	}

	now := time.Now()
	expires := now.Add(s.deps.Cookies.TTL())
	if exp := identity.TokenExpiresAt; !exp.IsZero() && exp.Before(expires) {
		expires = exp.Time
	}
	if !expires.After(now) {
		logger.WithField("telegram_id", identity.TelegramID).Warn("token already expired")
		s.redirect(w, r, s.deps.Router.ToFailure(nil, authFailedMessage))
		return
	}

	sess := &storage.Session{
		ID:         uuid.NewString(),
		Token:      token,
		TelegramID: identity.TelegramID,
		Username:   identity.Username,
		CreatedAt:  now,
		ExpiresAt:  expires,
	}
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := s.deps.Cookies.Set(w, sess.ID, sess.TelegramID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.deps.Caches.For(sess.ID)

	logger.WithFields(map[string]interface{}{
		"session":     sess.ID,
		"telegram_id": sess.TelegramID,
	}).Info("session started")
	http.Redirect(w, r, string(navigation.ScreenHome), http.StatusSeeOther)
}

// handleAuthorize handles GET /authorize - the screen shown without a session
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.authorizeScreen())
}

// handleLogout handles POST /logout - tear the session down
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())

	s.deps.Caches.Drop(sess.ID)
	s.deps.Board.Forget(sess.ID)
	s.rateLimiter.Forget(sess.ID)
	if err := s.deps.Sessions.Delete(r.Context(), sess.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.deps.Cookies.Clear(w)

	logging.FromContext(r.Context()).Info("session ended")
	http.Redirect(w, r, string(navigation.ScreenHome), http.StatusSeeOther)
}

// handleReferral handles GET /ref/{owner}-{code} - bind the current user to a referral link
func (s *Server) handleReferral(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)
	vars := mux.Vars(r)

	link := fmt.Sprintf("%s/ref/%s-%s", s.config.ReferralBaseURL, vars["owner"], vars["code"])
	result, err := s.deps.Referrals.Check(ctx, sess.TelegramID, link)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("link", link).Warn("referral binding failed")
		s.redirect(w, r, s.deps.Router.ToFailure(nil, referralFailedMessage))
		return
	}

	sess.cache.InvalidateAll()
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"link":    link,
		"message": result.Message,
	}).Info("referral checked")
	http.Redirect(w, r, string(navigation.ScreenHome), http.StatusSeeOther)
}

// handleOutcome serves the success and failure screens. Only the message
// query parameter is read and it is shown verbatim.
func (s *Server) handleOutcome(screen navigation.Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, navigation.PageFor(screen, r.URL.Query()))
	}
}
