// Package models provides the backend entities the mini-app client reads.
package models

import (
	"github.com/signal-miniapp/internal/types"
)

// User is a read-only snapshot of the backend's user record
type User struct {
	ID              int64                 `json:"id"`
	TelegramID      int64                 `json:"telegram_id"`
	Username        string                `json:"username"`
	FirstName       string                `json:"first_name"`
	LastName        string                `json:"last_name"`
	LanguageCode    string                `json:"language_code"`
	PhotoURL        string                `json:"photo_url"`
	IsBot           bool                  `json:"is_bot"`
	Automod         bool                  `json:"automod"`
	Plan            types.Plan            `json:"plan"`
	ReinvestPercent types.ReinvestPercent `json:"reinvestements_par"`
	InWork          float64               `json:"in_work"`
	ReferredBy      *UserRef              `json:"referred_by,omitempty"`
	CreatedAt       types.Timestamp       `json:"created_at"`
	UpdatedAt       types.Timestamp       `json:"updated_at"`
}

// UserRef is the short form of a user embedded in other records
type UserRef struct {
	ID         *int64  `json:"id"`
	TelegramID *int64  `json:"telegram_id"`
	Username   *string `json:"username"`
}

// AuthSession is what the backend returns for a one-time token exchange
type AuthSession struct {
	TelegramID     int64           `json:"telegram_id"`
	Username       string          `json:"username"`
	Message        string          `json:"message"`
	TokenExpiresAt types.Timestamp `json:"token_expires_at"`
}
