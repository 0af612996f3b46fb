package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/models"
)

// UserService reads the user profile and toggles automatic mode
type UserService struct {
	backend Backend
}

// NewUserService creates a new user service
func NewUserService(backend Backend) *UserService {
	return &UserService{backend: backend}
}

// Authenticate exchanges a one-time bot token for the identity behind it
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.AuthSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewInvalidParameterError("token", "must not be empty")
	}

	var out models.AuthSession
	if err := s.backend.Get(ctx, "auth?token="+url.QueryEscape(token), &out); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if out.TelegramID <= 0 {
		return nil, apperrors.NewUnauthorizedError("backend returned no identity for token")
	}
	return &out, nil
}

// GetUser returns the current snapshot of the user record
func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.User
	if err := s.backend.Get(ctx, fmt.Sprintf("user/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return &out, nil
}

// EnableAutomod switches automatic signal joining on. The backend refuses
// with success:false when the balance cannot cover it.
func (s *UserService) EnableAutomod(ctx context.Context, telegramID int64) (*models.ActionResponse, error) {
	return s.automod(ctx, "enable_automod", "signals/enable_automode", telegramID)
}

// DisableAutomod switches automatic signal joining off
func (s *UserService) DisableAutomod(ctx context.Context, telegramID int64) (*models.ActionResponse, error) {
	return s.automod(ctx, "disable_automod", "signals/disable_automode", telegramID)
}

func (s *UserService) automod(ctx context.Context, operation, path string, telegramID int64) (*models.ActionResponse, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.ActionResponse
	if err := s.backend.Post(ctx, fmt.Sprintf("%s?telegram_id=%d", path, telegramID), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return checkAction(operation, &out)
}
