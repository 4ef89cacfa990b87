package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeAttempts = 5

type UserService struct {
	repo     UserRepository
	settings SettingsRepository
	referral *ReferralService
	emitter  Emitter
}

func NewUserService(repo UserRepository, settings SettingsRepository, referral *ReferralService, emitter Emitter) *UserService {
	return &UserService{
		repo:     repo,
		settings: settings,
		referral: referral,
		emitter:  emitter,
	}
}

// Register creates a user under the given referral code. The code is
// mandatory: an unresolvable code rejects the whole registration and no user
// record is created. The house code resolves to no referrer. A real upline is
// credited its signup bonus into the pending wallet inside the same
// transaction as the insert.
func (s *UserService) Register(ctx context.Context, username, password, referralCode string) (*model.User, error) {
	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	referrer, err := s.referral.ResolveReferrer(ctx, referralCode)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:               uuid.New(),
		Username:         username,
		PasswordHash:     string(hash),
		AccountType:      model.AccountTypeFree,
		Status:           model.UserStatusActive,
		BalanceFree:      policy.SignupBonus,
		RegistrationDate: time.Now().UTC(),
	}
	if referrer != nil {
		id := referrer.ID
		user.ReferrerID = &id
	}

	var uplineBonus *model.BalanceChange
	if referrer != nil && policy.ReferralSignupBonus > 0 {
		uplineBonus = &model.BalanceChange{
			UserID: referrer.ID,
			Wallet: model.WalletPendingReferral,
			Amount: policy.ReferralSignupBonus,
		}
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user.ReferralCode, err = generateReferralCode()
		if err != nil {
			return nil, err
		}

		err = s.repo.CreateUser(ctx, user, uplineBonus)
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		break
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.emit(model.Event{
		UserID: user.ID,
		Kind:   model.EventUserRegistered,
		Amount: policy.SignupBonus,
		Reason: "signup bonus",
	})
	if uplineBonus != nil {
		s.emit(model.Event{
			UserID: uplineBonus.UserID,
			Kind:   model.EventBonusCredited,
			Amount: uplineBonus.Amount,
			Reason: "referral signup bonus",
		})
	}

	return user, nil
}

// generateReferralCode returns a 6-digit display token. The actual referral
// edge is stored as an id reference resolved once at registration.
func generateReferralCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Authenticate checks credentials and rejects blocked users. The ledger core
// still processes a blocked user's queued requests; only new sessions are
// refused here.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	if user.Status == model.UserStatusBlocked {
		return nil, ErrUserBlocked
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetReferrals(ctx context.Context, id uuid.UUID) ([]*model.User, error) {
	downline, err := s.repo.GetDownline(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	return downline, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.GetTopEarners(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to get top earners: %w", err)
	}
	return users, nil
}

func (s *UserService) emit(event model.Event) {
	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}
