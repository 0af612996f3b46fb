// Package service maps each domain operation onto exactly one backend call.
//
// Every operation returns (value, error). A 2xx reply that reports
// success:false is turned into a business failure error here, so callers
// branch on the error alone.
package service

import (
	"context"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/models"
)

// Backend is the transport the services call through
type Backend interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

// checkAction converts a success:false reply into a business failure
func checkAction(operation string, resp *models.ActionResponse) (*models.ActionResponse, error) {
	if resp.Succeeded() {
		return resp, nil
	}
	return nil, apperrors.NewBusinessFailure(operation, resp.Message, apperrors.BusinessDetails{
		RequiredAmount: resp.RequiredAmount,
		CurrentBalance: resp.CurrentBalance,
	})
}

func requireUser(telegramID int64) error {
	if telegramID <= 0 {
		return apperrors.NewInvalidParameterError("telegram_id", "must be positive")
	}
	return nil
}

func requireAmount(amount float64) error {
	if !(amount > 0) {
		return apperrors.NewInvalidParameterError("amount", "must be greater than zero")
	}
	return nil
}
