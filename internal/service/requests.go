package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

// RequestService creates the pending units of work the admin later decides
// on. Withdrawals are the only flow that touches the ledger at creation time:
// the requested amount is held (debited) immediately and refunded only on
// rejection.
type RequestService struct {
	requests RequestRepository
	users    UserRepository
	settings SettingsRepository
	emitter  Emitter
}

func NewRequestService(requests RequestRepository, users UserRepository, settings SettingsRepository, emitter Emitter) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		settings: settings,
		emitter:  emitter,
	}
}

func (s *RequestService) CreateTaskSubmission(ctx context.Context, userID uuid.UUID, amount int64, payload model.TaskPayload) (*model.Request, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if payload.Wallet != model.WalletFree && payload.Wallet != model.WalletMain {
		payload.Wallet = model.WalletFree
	}

	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if policy.DailyTaskLimit > 0 {
		since := time.Now().UTC().Truncate(24 * time.Hour)
		count, err := s.requests.CountTaskSubmissionsSince(ctx, userID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count task submissions: %w", err)
		}
		if count >= policy.DailyTaskLimit {
			return nil, ErrDailyTaskLimitReached
		}
	}

	req := newRequest(userID, model.RequestKindTask, amount)
	req.Task = &payload

	if err := s.create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateWithdrawRequest enforces the withdrawal policy and places the
// optimistic hold atomically with the insert. Policy order: wallet gate,
// range, then the lifetime free-wallet cap counting PENDING and APPROVED
// requests so a concurrent pending request also blocks a second submission.
func (s *RequestService) CreateWithdrawRequest(ctx context.Context, userID uuid.UUID, amount int64, payload model.WithdrawPayload) (*model.Request, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var minAmount, maxAmount int64
	switch payload.Wallet {
	case model.WalletFree:
		minAmount, maxAmount = policy.MinWithdrawFree, policy.MaxWithdrawFree
	case model.WalletMain:
		if user.AccountType != model.AccountTypePremium {
			return nil, ErrPremiumRequired
		}
		minAmount, maxAmount = policy.MinWithdrawMain, policy.MaxWithdrawMain
	case model.WalletJob:
		minAmount, maxAmount = policy.MinWithdrawJob, policy.MaxWithdrawJob
	default:
		return nil, ErrWalletNotWithdrawable
	}

	if amount < minAmount || (maxAmount > 0 && amount > maxAmount) {
		return nil, ErrAmountOutOfRange
	}

	// The count here is a fast-path reject; the authoritative cap check runs
	// again inside the hold transaction, serialized on the user row lock, so
	// two concurrent submissions cannot both slip past it.
	var freeLimit *int
	if payload.Wallet == model.WalletFree && user.AccountType != model.AccountTypePremium {
		count, err := s.requests.CountWithdrawRequests(ctx, userID, model.WalletFree,
			[]model.RequestStatus{model.RequestStatusPending, model.RequestStatusApproved})
		if err != nil {
			return nil, fmt.Errorf("failed to count free withdrawals: %w", err)
		}
		if count >= policy.FreeWithdrawLimit {
			return nil, ErrFreeWithdrawLimitExceeded
		}
		limit := policy.FreeWithdrawLimit
		freeLimit = &limit
	}

	req := newRequest(userID, model.RequestKindWithdraw, amount)
	req.Withdraw = &payload

	hold := model.BalanceChange{
		UserID: userID,
		Wallet: payload.Wallet,
		Amount: -amount,
	}

	err = s.requests.CreateRequestWithHold(ctx, req, hold, freeLimit)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		case errors.Is(err, repository.ErrWithdrawLimit):
			return nil, ErrFreeWithdrawLimitExceeded
		default:
			return nil, fmt.Errorf("failed to create withdraw request: %w", err)
		}
	}

	s.emitCreated(req)
	return req, nil
}

func (s *RequestService) CreatePremiumRequest(ctx context.Context, userID uuid.UUID, payload model.PremiumPayload) (*model.Request, error) {
	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	req := newRequest(userID, model.RequestKindPremium, policy.PremiumPrice)
	req.Premium = &payload

	if err := s.create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) CreateSocialSell(ctx context.Context, userID uuid.UUID, payload model.SocialSellPayload) (*model.Request, error) {
	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	req := newRequest(userID, model.RequestKindSocialSell, policy.SocialSellRate)
	req.SocialSell = &payload

	if err := s.create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateJobWithdraw records the coin quantity; the payable BDT amount is
// supplied by the admin at approval time, so Amount stays zero until then.
func (s *RequestService) CreateJobWithdraw(ctx context.Context, userID uuid.UUID, coins int64) (*model.Request, error) {
	if coins <= 0 {
		return nil, ErrInvalidAmount
	}

	req := newRequest(userID, model.RequestKindJobWithdraw, 0)
	req.JobWithdraw = &model.JobWithdrawPayload{Coins: coins}

	if err := s.create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

func (s *RequestService) ListUserRequests(ctx context.Context, userID uuid.UUID) ([]*model.Request, error) {
	return s.requests.ListRequests(ctx, repository.RequestFilter{UserID: &userID})
}

func (s *RequestService) ListRequests(ctx context.Context, kind *model.RequestKind, status *model.RequestStatus) ([]*model.Request, error) {
	return s.requests.ListRequests(ctx, repository.RequestFilter{Kind: kind, Status: status})
}

func newRequest(userID uuid.UUID, kind model.RequestKind, amount int64) *model.Request {
	return &model.Request{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Status:    model.RequestStatusPending,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *RequestService) create(ctx context.Context, req *model.Request) error {
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to create %s request: %w", req.Kind, err)
	}
	s.emitCreated(req)
	return nil
}

func (s *RequestService) emitCreated(req *model.Request) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(model.Event{
		UserID: req.UserID,
		Kind:   model.EventRequestCreated,
		Amount: req.Amount,
		Reason: string(req.Kind),
	})
}
