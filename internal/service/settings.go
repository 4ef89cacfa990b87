package service

import (
	"context"
	"fmt"

	"taskpay_backend/internal/model"
)

type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{
		repo: repo,
	}
}

func (s *SettingsService) GetPolicy(ctx context.Context) (*model.Settings, error) {
	policy, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return policy, nil
}

func (s *SettingsService) UpdatePolicy(ctx context.Context, policy *model.Settings) error {
	if policy.FreeWithdrawLimit < 0 || policy.DailyTaskLimit < 0 {
		return ErrInvalidAmount
	}
	if policy.SignupBonus < 0 || policy.ReferralSignupBonus < 0 ||
		policy.PremiumReferralBonus < 0 || policy.ClaimRate < 0 {
		return ErrInvalidAmount
	}

	if err := s.repo.UpdateSettings(ctx, policy); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
