package service

import (
	"context"
	"errors"
	"fmt"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

// WalletService exposes the raw ledger primitives. Every mutation runs
// against the persisted record, never a cached snapshot, and debit guards are
// enforced inside the repository so no wallet can go negative under
// concurrent writers.
type WalletService struct {
	repo    UserRepository
	emitter Emitter
}

func NewWalletService(repo UserRepository, emitter Emitter) *WalletService {
	return &WalletService{
		repo:    repo,
		emitter: emitter,
	}
}

func (s *WalletService) Credit(ctx context.Context, userID uuid.UUID, wallet model.Wallet, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.apply(ctx, userID, wallet, amount, "credit")
}

func (s *WalletService) Debit(ctx context.Context, userID uuid.UUID, wallet model.Wallet, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.apply(ctx, userID, wallet, -amount, "debit")
}

// TransferBonus is a credit tagged as a bonus for history purposes; the
// ledger contract is identical to Credit.
func (s *WalletService) TransferBonus(ctx context.Context, userID uuid.UUID, wallet model.Wallet, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.apply(ctx, userID, wallet, amount, "bonus")
}

func (s *WalletService) apply(ctx context.Context, userID uuid.UUID, wallet model.Wallet, delta int64, reason string) (int64, error) {
	err := s.repo.ApplyBalanceChanges(ctx, model.BalanceChange{
		UserID: userID,
		Wallet: wallet,
		Amount: delta,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return 0, ErrUserNotFound
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, ErrInsufficientBalance
		default:
			return 0, fmt.Errorf("failed to apply %s: %w", reason, err)
		}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read back balance: %w", err)
	}

	if s.emitter != nil && reason == "bonus" {
		s.emitter.Emit(model.Event{
			UserID: userID,
			Kind:   model.EventBonusCredited,
			Amount: delta,
			Reason: reason,
		})
	}

	return user.Balance(wallet), nil
}
