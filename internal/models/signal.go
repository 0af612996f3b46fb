package models

import (
	"time"

	"github.com/signal-miniapp/internal/types"
)

// Signal is a time-boxed investment opportunity
type Signal struct {
	ID            int64           `json:"signal_id"`
	Name          string          `json:"name"`
	JoinUntil     types.Timestamp `json:"join_until"`
	ExpiresAt     types.Timestamp `json:"expires_at"`
	Cost          float64         `json:"signal_cost"`
	BurnChance    float64         `json:"burn_chance"`
	ProfitPercent float64         `json:"profit_percent"`
}

// Remaining is the time left until expiry at now, never negative
func (s Signal) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ActiveSignals is the body of the active signals listing.
// The backend answers with only a message when nothing is active.
type ActiveSignals struct {
	Signals []Signal `json:"active_signals"`
	Message string   `json:"message,omitempty"`
}

// JoinSignalRequest is the body of the join call
type JoinSignalRequest struct {
	TelegramID int64 `json:"telegram_id"`
	SignalID   int64 `json:"signal_id"`
}
