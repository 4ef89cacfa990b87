package service

import (
	"context"
	"errors"
	"fmt"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

// ReferralService resolves the one-level attribution graph. Edges are id
// references fixed at registration; the referral code is only a lookup token.
type ReferralService struct {
	repo     UserRepository
	settings SettingsRepository
}

func NewReferralService(repo UserRepository, settings SettingsRepository) *ReferralService {
	return &ReferralService{
		repo:     repo,
		settings: settings,
	}
}

// GetUpline returns the direct referrer, or nil for users registered under
// the house code.
func (s *ReferralService) GetUpline(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ReferrerID == nil {
		return nil, nil
	}

	upline, err := s.repo.GetUserByID(ctx, *user.ReferrerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get upline: %w", err)
	}

	return upline, nil
}

func (s *ReferralService) GetDownline(ctx context.Context, userID uuid.UUID) ([]*model.User, error) {
	downline, err := s.repo.GetDownline(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get downline: %w", err)
	}
	return downline, nil
}

// ResolveReferrer maps a referral code to its owner. The house code is always
// valid and resolves to no user; any other unmatched code fails and must
// reject the registration that presented it.
func (s *ReferralService) ResolveReferrer(ctx context.Context, code string) (*model.User, error) {
	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if code == policy.HouseReferralCode {
		return nil, nil
	}

	referrer, err := s.repo.GetUserByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	return referrer, nil
}

// PremiumBonusRecipient returns the upline owed the premium referral bonus,
// or nil. Eligibility is checked at approval time: a free-account upline is
// not paid.
func (s *ReferralService) PremiumBonusRecipient(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	upline, err := s.GetUpline(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upline == nil || upline.AccountType != model.AccountTypePremium {
		return nil, nil
	}

	return upline, nil
}
