package service

import (
	"context"
	"fmt"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/models"
)

// SignalService lists joinable signals and joins them
type SignalService struct {
	backend Backend
}

// NewSignalService creates a new signal service
func NewSignalService(backend Backend) *SignalService {
	return &SignalService{backend: backend}
}

// Active returns the signals the user may still join
func (s *SignalService) Active(ctx context.Context, telegramID int64) ([]models.Signal, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.ActiveSignals
	if err := s.backend.Get(ctx, fmt.Sprintf("signals/active?telegram_id=%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("list active signals: %w", err)
	}
	if out.Signals == nil {
		return []models.Signal{}, nil
	}
	return out.Signals, nil
}

// Join stakes the signal's cost from the trading balance
func (s *SignalService) Join(ctx context.Context, telegramID, signalID int64) (*models.ActionResponse, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}
	if signalID <= 0 {
		return nil, apperrors.NewInvalidParameterError("signal_id", "must be positive")
	}

	var out models.ActionResponse
	body := models.JoinSignalRequest{TelegramID: telegramID, SignalID: signalID}
	if err := s.backend.Post(ctx, "signals/join", body, &out); err != nil {
		return nil, fmt.Errorf("join signal %d: %w", signalID, err)
	}
	return checkAction("join_signal", &out)
}
