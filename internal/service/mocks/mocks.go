package mocks

import (
	"context"
	"sync"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User, uplineBonus *model.BalanceChange) error {
	args := m.Called(ctx, user, uplineBonus)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetDownline(ctx context.Context, referrerID uuid.UUID) ([]*model.User, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) GetTopEarners(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) ApplyBalanceChanges(ctx context.Context, changes ...model.BalanceChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *MockUserRepository) ClaimPendingBonus(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) CreateRequest(ctx context.Context, req *model.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) CreateRequestWithHold(ctx context.Context, req *model.Request, hold model.BalanceChange, freeLimit *int) error {
	args := m.Called(ctx, req, hold, freeLimit)
	return args.Error(0)
}

func (m *MockRequestRepository) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]*model.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Request), args.Error(1)
}

func (m *MockRequestRepository) CountWithdrawRequests(ctx context.Context, userID uuid.UUID, wallet model.Wallet, statuses []model.RequestStatus) (int, error) {
	args := m.Called(ctx, userID, wallet, statuses)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) CountTaskSubmissionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) ApplyDecision(ctx context.Context, requestID uuid.UUID, status model.RequestStatus, amount *int64, changes []model.BalanceChange, promote *uuid.UUID) error {
	args := m.Called(ctx, requestID, status, amount, changes, promote)
	return args.Error(0)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Settings), args.Error(1)
}

func (m *MockSettingsRepository) UpdateSettings(ctx context.Context, s *model.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// RecordingEmitter captures emitted events for assertions.
type RecordingEmitter struct {
	mu     sync.Mutex
	Events []model.Event
}

func (e *RecordingEmitter) Emit(event model.Event) {
	e.mu.Lock()
	e.Events = append(e.Events, event)
	e.mu.Unlock()
}
