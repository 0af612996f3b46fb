package service

import (
	"context"
	"fmt"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/types"
)

// PlanService changes the user's subscription tier
type PlanService struct {
	backend Backend
}

// NewPlanService creates a new plan service
func NewPlanService(backend Backend) *PlanService {
	return &PlanService{backend: backend}
}

// UpdatePlan sets the user's plan ordinal
func (s *PlanService) UpdatePlan(ctx context.Context, telegramID int64, plan types.Plan) (*models.ActionResponse, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}
	if !plan.Valid() {
		return nil, apperrors.NewInvalidParameterError("plan", fmt.Sprintf("unknown plan %d", int(plan)))
	}

	var out models.ActionResponse
	path := fmt.Sprintf("user/%d/update_plan?new_plan=%d", telegramID, int(plan))
	if err := s.backend.Put(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return checkAction("update_plan", &out)
}

// ReinvestService changes the share of profit that is reinvested
type ReinvestService struct {
	backend Backend
}

// NewReinvestService creates a new reinvest service
func NewReinvestService(backend Backend) *ReinvestService {
	return &ReinvestService{backend: backend}
}

// SetPercent stores the reinvest percentage; only 25, 50, 75 and 100 are offered
func (s *ReinvestService) SetPercent(ctx context.Context, telegramID int64, percent types.ReinvestPercent) (*models.ActionResponse, error) {
	if err := requireUser(telegramID); err != nil {
		return nil, err
	}
	if !percent.Valid() {
		return nil, apperrors.NewInvalidParameterError("percent", fmt.Sprintf("%d is not one of 25, 50, 75, 100", int(percent)))
	}

	var out models.ActionResponse
	path := fmt.Sprintf("user/%d/update_reinvestments?new_value=%d", telegramID, int(percent))
	if err := s.backend.Put(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("update reinvestments: %w", err)
	}
	return checkAction("update_reinvestments", &out)
}
