package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
)

// ClaimService runs the quiz/timer flow that converts pending referral value
// into spendable free balance. Challenge state is in-memory and per-process:
// abandoning the flow loses the challenge, but the ledger decrement/credit
// itself is a single atomic repository operation.
type ClaimService struct {
	users    UserRepository
	settings SettingsRepository
	emitter  Emitter

	mu     sync.Mutex
	claims map[uuid.UUID]*claimState
}

type claimState struct {
	answer    int64
	notBefore time.Time
	startedAt time.Time
}

type ClaimChallenge struct {
	Question    string
	WaitSeconds int
	NotBefore   time.Time
}

func NewClaimService(users UserRepository, settings SettingsRepository, emitter Emitter) *ClaimService {
	return &ClaimService{
		users:    users,
		settings: settings,
		emitter:  emitter,
		claims:   make(map[uuid.UUID]*claimState),
	}
}

// Start validates the user holds at least one claimable unit and issues an
// arithmetic challenge that cannot be answered before the wait timer elapses.
func (s *ClaimService) Start(ctx context.Context, userID uuid.UUID) (*ClaimChallenge, error) {
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

	if user.PendingReferralBonus < policy.ClaimRate {
		return nil, ErrBonusBelowClaimRate
	}

	a, err := randomDigit()
	if err != nil {
		return nil, err
	}
	b, err := randomDigit()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notBefore := now.Add(time.Duration(policy.ClaimWaitSeconds) * time.Second)

	s.mu.Lock()
	s.claims[userID] = &claimState{
		answer:    a + b,
		notBefore: notBefore,
		startedAt: now,
	}
	s.mu.Unlock()

	return &ClaimChallenge{
		Question:    fmt.Sprintf("%d + %d", a, b),
		WaitSeconds: policy.ClaimWaitSeconds,
		NotBefore:   notBefore,
	}, nil
}

// Complete checks the timer and the answer, then performs the atomic
// decrement/credit pair. The challenge is consumed under the mutex before the
// ledger call: one challenge converts at most one claim unit no matter how
// many Complete calls race on it. A wrong answer also consumes it, so another
// attempt must restart the timer.
func (s *ClaimService) Complete(ctx context.Context, userID uuid.UUID, answer int64) (int64, error) {
	s.mu.Lock()
	state, ok := s.claims[userID]
	if !ok {
		s.mu.Unlock()
		return 0, ErrClaimNotStarted
	}
	if time.Now().UTC().Before(state.notBefore) {
		s.mu.Unlock()
		return 0, ErrClaimNotReady
	}
	delete(s.claims, userID)
	s.mu.Unlock()

	if answer != state.answer {
		return 0, ErrWrongClaimAnswer
	}

	policy, err := s.settings.GetSettings(ctx)
	if err != nil {
		s.restore(userID, state)
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}

	err = s.users.ClaimPendingBonus(ctx, userID, policy.ClaimRate)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return 0, ErrUserNotFound
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, ErrBonusBelowClaimRate
		default:
			s.restore(userID, state)
			return 0, fmt.Errorf("failed to claim pending bonus: %w", err)
		}
	}

	if s.emitter != nil {
		s.emitter.Emit(model.Event{
			UserID: userID,
			Kind:   model.EventBonusClaimed,
			Amount: policy.ClaimRate,
			Reason: "referral bonus claim",
		})
	}

	return policy.ClaimRate, nil
}

// ExpireStale sweeps abandoned challenges; run periodically.
func (s *ClaimService) ExpireStale(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, state := range s.claims {
		if state.startedAt.Before(cutoff) {
			delete(s.claims, id)
			removed++
		}
	}
	return removed
}

// restore puts a consumed challenge back after an infrastructure failure,
// unless a newer one has been started meanwhile.
func (s *ClaimService) restore(userID uuid.UUID, state *claimState) {
	s.mu.Lock()
	if _, ok := s.claims[userID]; !ok {
		s.claims[userID] = state
	}
	s.mu.Unlock()
}

func randomDigit() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9))
	if err != nil {
		return 0, fmt.Errorf("failed to generate challenge: %w", err)
	}
	return n.Int64() + 1, nil
}
