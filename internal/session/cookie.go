// Package session signs and reads the gateway's session cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession    = errors.New("no session cookie")
	ErrInvalidToken = errors.New("invalid session token")
)

const issuer = "signal-miniapp"

// Claims identify the server-side session a cookie belongs to
type Claims struct {
	TelegramID int64 `json:"tid"`
	jwt.RegisteredClaims
}

// SessionID returns the session the claims point at
func (c *Claims) SessionID() string {
	return c.ID
}

// CookieManager issues and verifies HS256-signed session cookies
type CookieManager struct {
	secret []byte
	ttl    time.Duration
	name   string
	secure bool
	now    func() time.Time
}

// CookieConfig holds cookie settings
type CookieConfig struct {
	Secret string
	TTL    time.Duration
	Name   string
	Secure bool
}

// NewCookieManager creates a cookie manager
func NewCookieManager(cfg CookieConfig) (*CookieManager, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.Name == "" {
		cfg.Name = "auth"
	}
	return &CookieManager{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		name:   cfg.Name,
		secure: cfg.Secure,
		now:    time.Now,
	}, nil
}

// TTL returns how long an issued session stays valid
func (m *CookieManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for sessionID
func (m *CookieManager) Issue(sessionID string, telegramID int64) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its claims
func (m *CookieManager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Set writes a freshly issued cookie for sessionID
func (m *CookieManager) Set(w http.ResponseWriter, sessionID string, telegramID int64) error {
	token, expires, err := m.Issue(sessionID, telegramID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the cookie on the client
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads and verifies the session cookie of r
func (m *CookieManager) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	return m.Parse(c.Value)
}
