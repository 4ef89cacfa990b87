package service

import (
	"context"
	"testing"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"
	"taskpay_backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRequestService_CreateWithdrawRequest(t *testing.T) {
	freeUser := &model.User{ID: uuid.New(), AccountType: model.AccountTypeFree, Status: model.UserStatusActive}
	premiumUser := &model.User{ID: uuid.New(), AccountType: model.AccountTypePremium, Status: model.UserStatusActive}

	tests := []struct {
		name          string
		userID        uuid.UUID
		amount        int64
		wallet        model.Wallet
		mockSetup     func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository)
		verify        func(t *testing.T, requests *mocks.MockRequestRepository)
		expectedError error
	}{
		{
			name:          "Non-positive amount rejected before any lookup",
			userID:        freeUser.ID,
			amount:        0,
			wallet:        model.WalletFree,
			mockSetup:     func(*mocks.MockRequestRepository, *mocks.MockUserRepository, *mocks.MockSettingsRepository) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Main wallet locked for free accounts",
			userID: freeUser.ID,
			amount: 600,
			wallet: model.WalletMain,
			mockSetup: func(_ *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
			},
			expectedError: ErrPremiumRequired,
		},
		{
			name:   "Amount below wallet minimum",
			userID: premiumUser.ID,
			amount: 100,
			wallet: model.WalletMain,
			mockSetup: func(_ *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, premiumUser.ID).Return(premiumUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
			},
			expectedError: ErrAmountOutOfRange,
		},
		{
			name:   "Free wallet withdrawal is once per lifetime",
			userID: freeUser.ID,
			amount: 1000,
			wallet: model.WalletFree,
			mockSetup: func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountWithdrawRequests", mock.Anything, freeUser.ID, model.WalletFree,
					[]model.RequestStatus{model.RequestStatusPending, model.RequestStatusApproved}).
					Return(1, nil)
			},
			expectedError: ErrFreeWithdrawLimitExceeded,
		},
		{
			name:   "Premium accounts skip the free-wallet cap",
			userID: premiumUser.ID,
			amount: 1000,
			wallet: model.WalletFree,
			mockSetup: func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, premiumUser.ID).Return(premiumUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CreateRequestWithHold", mock.Anything, mock.Anything, mock.Anything,
					mock.MatchedBy(func(freeLimit *int) bool {
						return freeLimit == nil
					})).Return(nil)
			},
			verify: func(t *testing.T, requests *mocks.MockRequestRepository) {
				requests.AssertNotCalled(t, "CountWithdrawRequests",
					mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:   "Withdrawal from the pending bonus wallet refused",
			userID: freeUser.ID,
			amount: 1000,
			wallet: model.WalletPendingReferral,
			mockSetup: func(_ *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
			},
			expectedError: ErrWalletNotWithdrawable,
		},
		{
			name:   "Hold debit placed atomically with the insert",
			userID: freeUser.ID,
			amount: 1000,
			wallet: model.WalletFree,
			mockSetup: func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountWithdrawRequests", mock.Anything, freeUser.ID, model.WalletFree, mock.Anything).
					Return(0, nil)
				requests.On("CreateRequestWithHold", mock.Anything,
					mock.MatchedBy(func(req *model.Request) bool {
						return req.Kind == model.RequestKindWithdraw &&
							req.Status == model.RequestStatusPending &&
							req.Amount == 1000
					}),
					mock.MatchedBy(func(hold model.BalanceChange) bool {
						return hold.UserID == freeUser.ID &&
							hold.Wallet == model.WalletFree &&
							hold.Amount == -1000
					}),
					mock.MatchedBy(func(freeLimit *int) bool {
						return freeLimit != nil && *freeLimit == 1
					})).Return(nil)
			},
		},
		{
			name:   "Concurrent free withdrawal loses the in-transaction cap check",
			userID: freeUser.ID,
			amount: 1000,
			wallet: model.WalletFree,
			mockSetup: func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountWithdrawRequests", mock.Anything, freeUser.ID, model.WalletFree, mock.Anything).
					Return(0, nil)
				requests.On("CreateRequestWithHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(repository.ErrWithdrawLimit)
			},
			expectedError: ErrFreeWithdrawLimitExceeded,
		},
		{
			name:   "Insufficient balance refuses the hold",
			userID: freeUser.ID,
			amount: 1000,
			wallet: model.WalletFree,
			mockSetup: func(requests *mocks.MockRequestRepository, users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				users.On("GetUserByID", mock.Anything, freeUser.ID).Return(freeUser, nil)
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountWithdrawRequests", mock.Anything, freeUser.ID, model.WalletFree, mock.Anything).
					Return(0, nil)
				requests.On("CreateRequestWithHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(repository.ErrInsufficientBalance)
			},
			expectedError: ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := &mocks.MockRequestRepository{}
			users := &mocks.MockUserRepository{}
			settings := &mocks.MockSettingsRepository{}
			tt.mockSetup(requests, users, settings)

			service := NewRequestService(requests, users, settings, nil)
			req, err := service.CreateWithdrawRequest(context.Background(), tt.userID, tt.amount,
				model.WithdrawPayload{Wallet: tt.wallet, Method: "bkash", AccountNumber: "01700000000"})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, req)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, req)
			}
			if tt.verify != nil {
				tt.verify(t, requests)
			}
			requests.AssertExpectations(t)
		})
	}
}

func TestRequestService_CreateTaskSubmission(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name          string
		amount        int64
		mockSetup     func(requests *mocks.MockRequestRepository, settings *mocks.MockSettingsRepository)
		expectedError error
	}{
		{
			name:          "Non-positive reward rejected",
			amount:        0,
			mockSetup:     func(*mocks.MockRequestRepository, *mocks.MockSettingsRepository) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Daily limit reached",
			amount: 25,
			mockSetup: func(requests *mocks.MockRequestRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountTaskSubmissionsSince", mock.Anything, userID, mock.Anything).
					Return(10, nil)
			},
			expectedError: ErrDailyTaskLimitReached,
		},
		{
			name:   "Submission under the limit",
			amount: 25,
			mockSetup: func(requests *mocks.MockRequestRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				requests.On("CountTaskSubmissionsSince", mock.Anything, userID, mock.Anything).
					Return(3, nil)
				requests.On("CreateRequest", mock.Anything, mock.MatchedBy(func(req *model.Request) bool {
					return req.Kind == model.RequestKindTask &&
						req.Task != nil &&
						req.Task.Wallet == model.WalletFree
				})).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := &mocks.MockRequestRepository{}
			settings := &mocks.MockSettingsRepository{}
			tt.mockSetup(requests, settings)

			service := NewRequestService(requests, nil, settings, nil)
			req, err := service.CreateTaskSubmission(context.Background(), userID, tt.amount,
				model.TaskPayload{TaskTitle: "Subscribe channel", ProofImages: []string{"https://cdn.example/proof1.png"}})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, req)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, req)
			requests.AssertExpectations(t)
		})
	}
}

func TestRequestService_CreatePremiumRequest_UsesConfiguredPrice(t *testing.T) {
	userID := uuid.New()
	requests := &mocks.MockRequestRepository{}
	settings := &mocks.MockSettingsRepository{}
	emitter := &mocks.RecordingEmitter{}

	settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
	requests.On("CreateRequest", mock.Anything, mock.MatchedBy(func(req *model.Request) bool {
		return req.Kind == model.RequestKindPremium && req.Amount == 3000
	})).Return(nil)

	service := NewRequestService(requests, nil, settings, emitter)
	req, err := service.CreatePremiumRequest(context.Background(), userID, model.PremiumPayload{Method: "nagad", TransactionID: "TX918273"})

	assert.NoError(t, err)
	assert.Equal(t, int64(3000), req.Amount)
	assert.Len(t, emitter.Events, 1)
	assert.Equal(t, model.EventRequestCreated, emitter.Events[0].Kind)
	requests.AssertExpectations(t)
}

func TestRequestService_CreateJobWithdraw(t *testing.T) {
	userID := uuid.New()

	t.Run("Zero coins rejected", func(t *testing.T) {
		service := NewRequestService(&mocks.MockRequestRepository{}, nil, nil, nil)
		_, err := service.CreateJobWithdraw(context.Background(), userID, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Amount stays zero until an admin prices it", func(t *testing.T) {
		requests := &mocks.MockRequestRepository{}
		requests.On("CreateRequest", mock.Anything, mock.MatchedBy(func(req *model.Request) bool {
			return req.Kind == model.RequestKindJobWithdraw &&
				req.Amount == 0 &&
				req.JobWithdraw != nil &&
				req.JobWithdraw.Coins == 400
		})).Return(nil)

		service := NewRequestService(requests, nil, nil, nil)
		req, err := service.CreateJobWithdraw(context.Background(), userID, 400)

		assert.NoError(t, err)
		assert.Equal(t, int64(0), req.Amount)
		requests.AssertExpectations(t)
	})
}
