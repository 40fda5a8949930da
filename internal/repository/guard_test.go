package repository

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGuardPassesThroughDomainErrors(t *testing.T) {
	guard := NewGuard("test")
	calls := 0

	err := guard.Do(context.Background(), "parcels.get", func(ctx context.Context) error {
		calls++
		return gorm.ErrRecordNotFound
	})

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 1, calls, "domain errors must not be retried")
}

func TestGuardSucceedsFirstTry(t *testing.T) {
	guard := NewGuard("test")
	err := guard.Do(context.Background(), "parcels.get", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestGuardRetriesTransientFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff sleeps")
	}
	guard := NewGuard("test")
	calls := 0

	err := guard.Do(context.Background(), "parcels.get", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGuardDomainErrorsNeverTripBreaker(t *testing.T) {
	guard := NewGuard("test")

	for i := 0; i < 10; i++ {
		err := guard.Do(context.Background(), "parcels.get", func(ctx context.Context) error {
			return gorm.ErrRecordNotFound
		})
		require.ErrorIs(t, err, gorm.ErrRecordNotFound,
			"breaker must stay closed on expected outcomes")
		assert.False(t, errors.Is(err, apperrors.ErrStoreUnavailable))
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(fmt.Errorf("write: %w", syscall.ECONNRESET)))
	assert.True(t, isTransient(syscall.EPIPE))
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(gorm.ErrRecordNotFound))
	assert.False(t, isTransient(errors.New("duplicate key value")))
}
