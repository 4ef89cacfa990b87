package service

import (
	"context"
	"errors"
	"fmt"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

// ApprovalService is the admin-facing orchestrator. Decide applies exactly
// one terminal transition and exactly one ledger effect per request; both
// commit or neither does. A second decision on the same request fails with
// ErrAlreadyProcessed, race-free via the status compare-and-swap in the
// repository.
type ApprovalService struct {
	requests RequestRepository
	users    UserRepository
	settings SettingsRepository
	referral *ReferralService
	emitter  Emitter
}

func NewApprovalService(requests RequestRepository, users UserRepository, settings SettingsRepository, referral *ReferralService, emitter Emitter) *ApprovalService {
	return &ApprovalService{
		requests: requests,
		users:    users,
		settings: settings,
		referral: referral,
		emitter:  emitter,
	}
}

// decisionEffect is the per-kind ledger outcome bound to a terminal
// transition.
type decisionEffect struct {
	amount  *int64
	changes []model.BalanceChange
	promote *uuid.UUID
	bonus   *model.BalanceChange
}

func (s *ApprovalService) Decide(ctx context.Context, requestID uuid.UUID, decision model.Decision, payout *int64) (*model.Request, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}

	if req.Status != model.RequestStatusPending {
		return nil, ErrAlreadyProcessed
	}

	var (
		status model.RequestStatus
		effect *decisionEffect
	)

	switch decision {
	case model.DecisionApprove:
		status = model.RequestStatusApproved
		effect, err = s.approveEffect(ctx, req, payout)
	case model.DecisionReject:
		status = model.RequestStatusRejected
		effect = rejectEffect(req)
	default:
		return nil, ErrInvalidStateTransition
	}
	if err != nil {
		return nil, err
	}

	changes := effect.changes
	if effect.bonus != nil {
		changes = append(changes, *effect.bonus)
	}

	err = s.requests.ApplyDecision(ctx, requestID, status, effect.amount, changes, effect.promote)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRequestNotFound
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, ErrAlreadyProcessed
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		default:
			return nil, fmt.Errorf("failed to apply decision: %w", err)
		}
	}

	req.Status = status
	if effect.amount != nil {
		req.Amount = *effect.amount
	}

	s.emitDecision(req, effect)
	return req, nil
}

// approveEffect builds the one ledger effect bound to approval of each flow.
func (s *ApprovalService) approveEffect(ctx context.Context, req *model.Request, payout *int64) (*decisionEffect, error) {
	effect := &decisionEffect{}

	switch req.Kind {
	case model.RequestKindTask:
		wallet := model.WalletFree
		if req.Task != nil && req.Task.Wallet == model.WalletMain {
			wallet = model.WalletMain
		}
		effect.changes = []model.BalanceChange{{
			UserID: req.UserID,
			Wallet: wallet,
			Amount: req.Amount,
		}}

	case model.RequestKindWithdraw:
		// Funds were held at creation time; approving adds nothing.

	case model.RequestKindPremium:
		userID := req.UserID
		effect.promote = &userID

		recipient, err := s.referral.PremiumBonusRecipient(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if recipient != nil {
			policy, err := s.settings.GetSettings(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load settings: %w", err)
			}
			if policy.PremiumReferralBonus > 0 {
				effect.bonus = &model.BalanceChange{
					UserID: recipient.ID,
					Wallet: model.WalletMain,
					Amount: policy.PremiumReferralBonus,
				}
			}
		}

	case model.RequestKindSocialSell:
		effect.changes = []model.BalanceChange{{
			UserID: req.UserID,
			Wallet: model.WalletFree,
			Amount: req.Amount,
		}}

	case model.RequestKindJobWithdraw:
		if payout == nil || *payout <= 0 {
			return nil, ErrMissingPayoutAmount
		}
		effect.amount = payout
		effect.changes = []model.BalanceChange{{
			UserID: req.UserID,
			Wallet: model.WalletMain,
			Amount: *payout,
		}}

	default:
		return nil, ErrInvalidStateTransition
	}

	return effect, nil
}

// rejectEffect refunds the withdrawal hold; every other flow rejects with no
// ledger effect.
func rejectEffect(req *model.Request) *decisionEffect {
	effect := &decisionEffect{}

	if req.Kind == model.RequestKindWithdraw {
		wallet := model.WalletFree
		if req.Withdraw != nil {
			wallet = req.Withdraw.Wallet
		}
		effect.changes = []model.BalanceChange{{
			UserID: req.UserID,
			Wallet: wallet,
			Amount: req.Amount,
		}}
	}

	return effect
}

func (s *ApprovalService) emitDecision(req *model.Request, effect *decisionEffect) {
	if s.emitter == nil {
		return
	}

	kind := model.EventRequestApproved
	if req.Status == model.RequestStatusRejected {
		kind = model.EventRequestRejected
	}

	s.emitter.Emit(model.Event{
		UserID: req.UserID,
		Kind:   kind,
		Amount: req.Amount,
		Reason: string(req.Kind),
	})

	if effect.bonus != nil {
		s.emitter.Emit(model.Event{
			UserID: effect.bonus.UserID,
			Kind:   model.EventBonusCredited,
			Amount: effect.bonus.Amount,
			Reason: "premium referral bonus",
		})
	}
}
