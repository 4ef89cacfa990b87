package service

import (
	"context"
	"errors"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrInsufficientBalance       = errors.New("insufficient wallet balance")
	ErrPremiumRequired           = errors.New("premium account required for this wallet")
	ErrFreeWithdrawLimitExceeded = errors.New("free wallet withdrawal limit exceeded")
	ErrInvalidReferralCode       = errors.New("referral code does not resolve to any user")
	ErrInvalidStateTransition    = errors.New("request is not in a pending state")
	ErrAlreadyProcessed          = errors.New("request has already been processed")
	ErrUserNotFound              = errors.New("user not found")
	ErrRequestNotFound           = errors.New("request not found")

	ErrAmountOutOfRange      = errors.New("amount outside the configured withdrawal range")
	ErrWalletNotWithdrawable = errors.New("wallet does not support withdrawals")
	ErrDailyTaskLimitReached = errors.New("daily task submission limit reached")
	ErrMissingPayoutAmount   = errors.New("payout amount is required for this approval")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrUserBlocked           = errors.New("user is blocked")
	ErrWrongPassword         = errors.New("wrong password")

	ErrClaimNotStarted     = errors.New("no claim challenge in progress")
	ErrClaimNotReady       = errors.New("the claim wait timer has not elapsed")
	ErrWrongClaimAnswer    = errors.New("wrong challenge answer")
	ErrBonusBelowClaimRate = errors.New("pending bonus is below the claim rate")
)

type Service struct {
	*UserService
	*WalletService
	*ReferralService
	*RequestService
	*ApprovalService
	*ClaimService
	*SettingsService
}

func NewService(repo *repository.Repository, emitter Emitter) *Service {
	referral := NewReferralService(repo, repo)
	return &Service{
		UserService:     NewUserService(repo, repo, referral, emitter),
		WalletService:   NewWalletService(repo, emitter),
		ReferralService: referral,
		RequestService:  NewRequestService(repo, repo, repo, emitter),
		ApprovalService: NewApprovalService(repo, repo, repo, referral, emitter),
		ClaimService:    NewClaimService(repo, repo, emitter),
		SettingsService: NewSettingsService(repo),
	}
}

// Emitter receives one event per committed state transition. Implementations
// must not block; delivery is fire-and-forget.
type Emitter interface {
	Emit(event model.Event)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User, uplineBonus *model.BalanceChange) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)
	GetDownline(ctx context.Context, referrerID uuid.UUID) ([]*model.User, error)
	GetTopEarners(ctx context.Context, limit int) ([]*model.User, error)
	ApplyBalanceChanges(ctx context.Context, changes ...model.BalanceChange) error
	ClaimPendingBonus(ctx context.Context, userID uuid.UUID, amount int64) error
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, req *model.Request) error
	CreateRequestWithHold(ctx context.Context, req *model.Request, hold model.BalanceChange, freeLimit *int) error
	GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter) ([]*model.Request, error)
	CountWithdrawRequests(ctx context.Context, userID uuid.UUID, wallet model.Wallet, statuses []model.RequestStatus) (int, error)
	CountTaskSubmissionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	ApplyDecision(ctx context.Context, requestID uuid.UUID, status model.RequestStatus, amount *int64, changes []model.BalanceChange, promote *uuid.UUID) error
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, s *model.Settings) error
}
