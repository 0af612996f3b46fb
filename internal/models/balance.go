package models

import "github.com/signal-miniapp/internal/types"

// Balance holds the user's three balances
type Balance struct {
	ID            int64   `json:"id"`
	TelegramID    int64   `json:"telegram_id"`
	Balance       float64 `json:"balance"`
	TradeBalance  float64 `json:"trade_balance"`
	FrozenBalance float64 `json:"frozen_balance"`
}

// AmountRequest is the body of deposit and transfer calls
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// Transaction is an immutable ledger entry
type Transaction struct {
	ID        int64           `json:"id"`
	Amount    float64         `json:"amount"`
	Type      string          `json:"transaction_type"`
	CreatedAt types.Timestamp `json:"created_at"`
}

// Profit is a realized gain from a settled signal
type Profit struct {
	ID        int64           `json:"id"`
	Amount    float64         `json:"amount"`
	SignalID  int64           `json:"signal_id"`
	CreatedAt types.Timestamp `json:"created_at"`
}

// Investment is the user's stake in a signal
type Investment struct {
	ID        int64           `json:"id"`
	SignalID  int64           `json:"signal_id"`
	Amount    float64         `json:"amount"`
	Profit    float64         `json:"profit"`
	CreatedAt types.Timestamp `json:"created_at"`
}

// Investments is the in-progress portfolio of a user
type Investments struct {
	UserID int64        `json:"user_id"`
	Items  []Investment `json:"investments"`
}

// Total sums the invested amounts
func (i Investments) Total() float64 {
	var sum float64
	for _, inv := range i.Items {
		sum += inv.Amount
	}
	return sum
}
