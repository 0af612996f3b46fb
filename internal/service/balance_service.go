package service

import (
	"context"
	"fmt"

	"github.com/signal-miniapp/internal/models"
)

// BalanceService reads balances and the ledger, and moves funds
type BalanceService struct {
	backend Backend
}

// NewBalanceService creates a new balance service
func NewBalanceService(backend Backend) *BalanceService {
	return &BalanceService{backend: backend}
}

// GetBalance returns the user's main, trading and frozen balances
func (s *BalanceService) GetBalance(ctx context.Context, telegramID int64) (*models.Balance, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.Balance
	if err := s.backend.Get(ctx, fmt.Sprintf("balance/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get balance %d: %w", telegramID, err)
	}
	return &out, nil
}

// Deposit tops up the main balance
func (s *BalanceService) Deposit(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error) {
	return s.move(ctx, "deposit", "deposit/%d", telegramID, amount)
}

// TransferToTrading moves funds from the main to the trading balance
func (s *BalanceService) TransferToTrading(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error) {
	return s.move(ctx, "transfer_to_trading", "transfer_to_trading/%d", telegramID, amount)
}

// TransferToMain moves funds from the trading to the main balance
func (s *BalanceService) TransferToMain(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error) {
	return s.move(ctx, "transfer_to_main", "transfer_to_main/%d", telegramID, amount)
}

func (s *BalanceService) move(ctx context.Context, operation, pathFormat string, telegramID int64, amount float64) (*models.ActionResponse, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}
	if err := requireAmount(amount); err != nil {
		return nil, err
	}

	var out models.ActionResponse
	path := fmt.Sprintf(pathFormat, telegramID)
	if err := s.backend.Post(ctx, path, models.AmountRequest{Amount: amount}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return checkAction(operation, &out)
}

// Transactions returns the user's ledger
func (s *BalanceService) Transactions(ctx context.Context, telegramID int64) ([]models.Transaction, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out []models.Transaction
	if err := s.backend.Get(ctx, fmt.Sprintf("transactions/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get transactions %d: %w", telegramID, err)
	}
	if out == nil {
		out = []models.Transaction{}
	}
	return out, nil
}

// Profits returns the realized gains of settled signals
func (s *BalanceService) Profits(ctx context.Context, telegramID int64) ([]models.Profit, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out []models.Profit
	if err := s.backend.Get(ctx, fmt.Sprintf("profits/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get profits %d: %w", telegramID, err)
	}
	if out == nil {
		out = []models.Profit{}
	}
	return out, nil
}

// Investments returns the stakes currently working in signals
func (s *BalanceService) Investments(ctx context.Context, telegramID int64) (*models.Investments, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.Investments
	if err := s.backend.Get(ctx, fmt.Sprintf("signals/investments/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get investments %d: %w", telegramID, err)
	}
	if out.Items == nil {
		out.Items = []models.Investment{}
	}
	return &out, nil
}
