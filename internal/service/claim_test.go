package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/repository"
	"taskpay_backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func solveChallenge(t *testing.T, challenge *ClaimChallenge) int64 {
	t.Helper()
	var a, b int64
	_, err := fmt.Sscanf(challenge.Question, "%d + %d", &a, &b)
	assert.NoError(t, err)
	return a + b
}

func TestClaimService_Start(t *testing.T) {
	userID := uuid.New()

	t.Run("Balance below one claim unit", func(t *testing.T) {
		users := &mocks.MockUserRepository{}
		settings := &mocks.MockSettingsRepository{}
		users.On("GetUserByID", mock.Anything, userID).
			Return(&model.User{ID: userID, PendingReferralBonus: 79}, nil)
		settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)

		service := NewClaimService(users, settings, nil)
		_, err := service.Start(context.Background(), userID)
		assert.ErrorIs(t, err, ErrBonusBelowClaimRate)
	})

	t.Run("Challenge carries the configured wait", func(t *testing.T) {
		users := &mocks.MockUserRepository{}
		settings := &mocks.MockSettingsRepository{}
		policy := testPolicy()
		policy.ClaimWaitSeconds = 30
		users.On("GetUserByID", mock.Anything, userID).
			Return(&model.User{ID: userID, PendingReferralBonus: 160}, nil)
		settings.On("GetSettings", mock.Anything).Return(policy, nil)

		service := NewClaimService(users, settings, nil)
		challenge, err := service.Start(context.Background(), userID)

		assert.NoError(t, err)
		assert.Equal(t, 30, challenge.WaitSeconds)
		assert.True(t, challenge.NotBefore.After(time.Now().UTC().Add(25*time.Second)))
	})
}

func TestClaimService_Complete(t *testing.T) {
	userID := uuid.New()

	setup := func(policy *model.Settings) (*ClaimService, *mocks.MockUserRepository, *mocks.RecordingEmitter) {
		users := &mocks.MockUserRepository{}
		settings := &mocks.MockSettingsRepository{}
		emitter := &mocks.RecordingEmitter{}
		users.On("GetUserByID", mock.Anything, userID).
			Return(&model.User{ID: userID, PendingReferralBonus: 160}, nil)
		settings.On("GetSettings", mock.Anything).Return(policy, nil)
		return NewClaimService(users, settings, emitter), users, emitter
	}

	t.Run("Complete without start", func(t *testing.T) {
		service, _, _ := setup(testPolicy())
		_, err := service.Complete(context.Background(), userID, 7)
		assert.ErrorIs(t, err, ErrClaimNotStarted)
	})

	t.Run("Timer not yet elapsed", func(t *testing.T) {
		policy := testPolicy()
		policy.ClaimWaitSeconds = 60
		service, _, _ := setup(policy)

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)

		_, err = service.Complete(context.Background(), userID, solveChallenge(t, challenge))
		assert.ErrorIs(t, err, ErrClaimNotReady)
	})

	t.Run("Wrong answer drops the challenge", func(t *testing.T) {
		service, _, _ := setup(testPolicy())

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)

		_, err = service.Complete(context.Background(), userID, solveChallenge(t, challenge)+1)
		assert.ErrorIs(t, err, ErrWrongClaimAnswer)

		// A fresh Start is required after a wrong answer.
		_, err = service.Complete(context.Background(), userID, solveChallenge(t, challenge))
		assert.ErrorIs(t, err, ErrClaimNotStarted)
	})

	t.Run("Correct answer converts one claim unit", func(t *testing.T) {
		service, users, emitter := setup(testPolicy())
		users.On("ClaimPendingBonus", mock.Anything, userID, int64(80)).Return(nil)

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)

		credited, err := service.Complete(context.Background(), userID, solveChallenge(t, challenge))

		assert.NoError(t, err)
		assert.Equal(t, int64(80), credited)
		assert.Len(t, emitter.Events, 1)
		assert.Equal(t, model.EventBonusClaimed, emitter.Events[0].Kind)
		users.AssertExpectations(t)

		// The atomic pair ran once; the challenge is consumed.
		_, err = service.Complete(context.Background(), userID, solveChallenge(t, challenge))
		assert.ErrorIs(t, err, ErrClaimNotStarted)
	})

	t.Run("Concurrent completes convert exactly one claim unit", func(t *testing.T) {
		service, users, _ := setup(testPolicy())
		users.On("ClaimPendingBonus", mock.Anything, userID, int64(80)).
			Run(func(mock.Arguments) { time.Sleep(50 * time.Millisecond) }).
			Return(nil)

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)
		answer := solveChallenge(t, challenge)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.Complete(context.Background(), userID, answer)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, notStarted int
		for err := range results {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrClaimNotStarted):
				notStarted++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, notStarted)
		users.AssertNumberOfCalls(t, "ClaimPendingBonus", 1)
	})

	t.Run("Challenge restored after an infrastructure failure", func(t *testing.T) {
		service, users, _ := setup(testPolicy())
		users.On("ClaimPendingBonus", mock.Anything, userID, int64(80)).
			Return(errors.New("connection reset")).Once()
		users.On("ClaimPendingBonus", mock.Anything, userID, int64(80)).
			Return(nil).Once()

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)
		answer := solveChallenge(t, challenge)

		_, err = service.Complete(context.Background(), userID, answer)
		assert.Error(t, err)

		// The same challenge is retryable; no new Start needed.
		credited, err := service.Complete(context.Background(), userID, answer)
		assert.NoError(t, err)
		assert.Equal(t, int64(80), credited)
	})

	t.Run("Pending balance drained between start and complete", func(t *testing.T) {
		service, users, _ := setup(testPolicy())
		users.On("ClaimPendingBonus", mock.Anything, userID, int64(80)).
			Return(repository.ErrInsufficientBalance)

		challenge, err := service.Start(context.Background(), userID)
		assert.NoError(t, err)

		_, err = service.Complete(context.Background(), userID, solveChallenge(t, challenge))
		assert.ErrorIs(t, err, ErrBonusBelowClaimRate)
	})
}

func TestClaimService_ExpireStale(t *testing.T) {
	userID := uuid.New()
	users := &mocks.MockUserRepository{}
	settings := &mocks.MockSettingsRepository{}
	users.On("GetUserByID", mock.Anything, userID).
		Return(&model.User{ID: userID, PendingReferralBonus: 160}, nil)
	settings.On("GetSettings", mock.Anything).Return(testPolicy(), nil)

	service := NewClaimService(users, settings, nil)
	_, err := service.Start(context.Background(), userID)
	assert.NoError(t, err)

	assert.Equal(t, 0, service.ExpireStale(time.Hour))
	assert.Equal(t, 1, service.ExpireStale(0))

	_, err = service.Complete(context.Background(), userID, 0)
	assert.ErrorIs(t, err, ErrClaimNotStarted)
}
