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
	"golang.org/x/crypto/bcrypt"
)

func testPolicy() *model.Settings {
	return &model.Settings{
		SignupBonus:          100,
		ReferralSignupBonus:  80,
		PremiumReferralBonus: 500,
		PremiumPrice:         3000,
		MinWithdrawFree:      1000,
		MaxWithdrawFree:      1000,
		MinWithdrawMain:      500,
		MaxWithdrawMain:      100000,
		MinWithdrawJob:       1,
		MaxWithdrawJob:       1000000,
		FreeWithdrawLimit:    1,
		DailyTaskLimit:       10,
		ClaimRate:            80,
		ClaimWaitSeconds:     0,
		SocialSellRate:       200,
		JobCoinRate:          10,
		HouseReferralCode:    "000000",
	}
}

func TestUserService_Register(t *testing.T) {
	referrer := &model.User{
		ID:           uuid.New(),
		Username:     "upline",
		ReferralCode: "123456",
		AccountType:  model.AccountTypeFree,
	}

	tests := []struct {
		name          string
		referralCode  string
		mockSetup     func(users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository)
		verify        func(t *testing.T, user *model.User, users *mocks.MockUserRepository, emitter *mocks.RecordingEmitter)
		expectedError error
	}{
		{
			name:         "Unknown referral code rejects registration before insert",
			referralCode: "999999",
			mockSetup: func(users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				users.On("GetUserByReferralCode", mock.Anything, "999999").
					Return(nil, repository.ErrNotFound)
			},
			verify: func(t *testing.T, _ *model.User, users *mocks.MockUserRepository, _ *mocks.RecordingEmitter) {
				users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
			},
			expectedError: ErrInvalidReferralCode,
		},
		{
			name:         "House code registers without a referrer",
			referralCode: "000000",
			mockSetup: func(users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				users.On("CreateUser", mock.Anything,
					mock.MatchedBy(func(u *model.User) bool {
						return u.ReferrerID == nil && u.BalanceFree == 100 && len(u.ReferralCode) == 6
					}),
					mock.MatchedBy(func(bonus *model.BalanceChange) bool {
						return bonus == nil
					})).Return(nil)
			},
			verify: func(t *testing.T, user *model.User, users *mocks.MockUserRepository, emitter *mocks.RecordingEmitter) {
				assert.Nil(t, user.ReferrerID)
				assert.Equal(t, int64(100), user.BalanceFree)
				assert.Len(t, emitter.Events, 1)
				assert.Equal(t, model.EventUserRegistered, emitter.Events[0].Kind)
			},
		},
		{
			name:         "Real referrer earns a pending bonus in the same insert",
			referralCode: "123456",
			mockSetup: func(users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				users.On("GetUserByReferralCode", mock.Anything, "123456").Return(referrer, nil)
				users.On("CreateUser", mock.Anything,
					mock.MatchedBy(func(u *model.User) bool {
						return u.ReferrerID != nil && *u.ReferrerID == referrer.ID
					}),
					mock.MatchedBy(func(bonus *model.BalanceChange) bool {
						return bonus != nil &&
							bonus.UserID == referrer.ID &&
							bonus.Wallet == model.WalletPendingReferral &&
							bonus.Amount == 80
					})).Return(nil)
			},
			verify: func(t *testing.T, user *model.User, users *mocks.MockUserRepository, emitter *mocks.RecordingEmitter) {
				assert.Len(t, emitter.Events, 2)
				assert.Equal(t, model.EventBonusCredited, emitter.Events[1].Kind)
				assert.Equal(t, referrer.ID, emitter.Events[1].UserID)
			},
		},
		{
			name:         "Duplicate username surfaces as a conflict",
			referralCode: "000000",
			mockSetup: func(users *mocks.MockUserRepository, settings *mocks.MockSettingsRepository) {
				settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)
				users.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).
					Return(repository.ErrDuplicateUsername)
			},
			expectedError: ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mocks.MockUserRepository{}
			settings := &mocks.MockSettingsRepository{}
			emitter := &mocks.RecordingEmitter{}
			tt.mockSetup(users, settings)

			service := NewUserService(users, settings, NewReferralService(users, settings), emitter)
			user, err := service.Register(context.Background(), "newbie", "hunter2", tt.referralCode)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
			}
			if tt.verify != nil {
				tt.verify(t, user, users, emitter)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestUserService_Register_RetriesReferralCodeCollision(t *testing.T) {
	users := &mocks.MockUserRepository{}
	settings := &mocks.MockSettingsRepository{}
	settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)

	users.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrDuplicateCode).Once()
	users.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	service := NewUserService(users, settings, NewReferralService(users, settings), nil)
	user, err := service.Register(context.Background(), "newbie", "hunter2", "000000")

	assert.NoError(t, err)
	assert.NotNil(t, user)
	users.AssertNumberOfCalls(t, "CreateUser", 2)
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	assert.NoError(t, err)

	active := &model.User{ID: uuid.New(), Username: "alice", PasswordHash: string(hash), Status: model.UserStatusActive}
	blocked := &model.User{ID: uuid.New(), Username: "mallory", PasswordHash: string(hash), Status: model.UserStatusBlocked}

	tests := []struct {
		name          string
		username      string
		password      string
		mockSetup     func(users *mocks.MockUserRepository)
		expectedError error
	}{
		{
			name:     "Valid credentials",
			username: "alice",
			password: "hunter2",
			mockSetup: func(users *mocks.MockUserRepository) {
				users.On("GetUserByUsername", mock.Anything, "alice").Return(active, nil)
			},
		},
		{
			name:     "Wrong password",
			username: "alice",
			password: "wrong",
			mockSetup: func(users *mocks.MockUserRepository) {
				users.On("GetUserByUsername", mock.Anything, "alice").Return(active, nil)
			},
			expectedError: ErrWrongPassword,
		},
		{
			name:     "Unknown user",
			username: "nobody",
			password: "hunter2",
			mockSetup: func(users *mocks.MockUserRepository) {
				users.On("GetUserByUsername", mock.Anything, "nobody").
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:     "Blocked user refused a session",
			username: "mallory",
			password: "hunter2",
			mockSetup: func(users *mocks.MockUserRepository) {
				users.On("GetUserByUsername", mock.Anything, "mallory").Return(blocked, nil)
			},
			expectedError: ErrUserBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mocks.MockUserRepository{}
			tt.mockSetup(users)

			service := NewUserService(users, nil, nil, nil)
			user, authErr := service.Authenticate(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, authErr, tt.expectedError)
				assert.Nil(t, user)
				return
			}

			assert.NoError(t, authErr)
			assert.Equal(t, tt.username, user.Username)
		})
	}
}
