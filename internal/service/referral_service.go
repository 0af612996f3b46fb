package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/models"
)

// ReferralService reads the referral tree and binds referral links
type ReferralService struct {
	backend Backend
}

// NewReferralService creates a new referral service
func NewReferralService(backend Backend) *ReferralService {
	return &ReferralService{backend: backend}
}

// Tree returns the user's referral tree
func (s *ReferralService) Tree(ctx context.Context, telegramID int64) (*models.Referral, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}

	var out models.Referral
	if err := s.backend.Get(ctx, fmt.Sprintf("referral_tree/%d", telegramID), &out); err != nil {
		return nil, fmt.Errorf("get referral tree %d: %w", telegramID, err)
	}
	return &out, nil
}

// Check binds the user to the owner of link
func (s *ReferralService) Check(ctx context.Context, telegramID int64, link string) (*models.CheckReferralResult, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, apperrors.NewInvalidParameterError("referral_link", "must not be empty")
	}

	var out models.CheckReferralResult
	body := models.CheckReferralRequest{TelegramID: telegramID, ReferralLink: link}
	if err := s.backend.Post(ctx, "check_referral", body, &out); err != nil {
		return nil, fmt.Errorf("check referral: %w", err)
	}
	return &out, nil
}
