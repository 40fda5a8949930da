package repository

import (
	"context"
	"errors"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sony/gobreaker"
)

const (
	maxRetries     = 3
	baseRetryDelay = time.Second
	opTimeout      = 20 * time.Second
)

// Guard wraps store operations with bounded retries and a circuit breaker.
// Transient network failures are retried with exponential backoff; only
// those failures feed the breaker, so expected outcomes like zero affected
// rows or record-not-found never trip it.
type Guard struct {
	cb *gobreaker.CircuitBreaker
}

func NewGuard(name string) *Guard {
	return &Guard{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    time.Second * 10,
			Timeout:     time.Second * 10,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("[CRITICAL] Circuit Breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

// Do runs fn under a bounded timeout, retrying transient failures. When the
// breaker is open or the retries are exhausted on a transient failure, the
// caller gets a StoreUnavailableError; every other error passes through
// unchanged.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var opErr error
	_, cbErr := g.cb.Execute(func() (interface{}, error) {
		for attempt := 0; ; attempt++ {
			opErr = fn(ctx)
			if opErr == nil || !isTransient(opErr) || attempt >= maxRetries {
				break
			}
			delay := baseRetryDelay << attempt
			log.Printf("store operation %s failed (attempt %d/%d), retrying in %s: %v",
				op, attempt+1, maxRetries, delay, opErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				opErr = ctx.Err()
				return nil, opErr
			}
		}
		if isTransient(opErr) {
			return nil, opErr
		}
		return nil, nil
	})
	if cbErr != nil {
		return &apperrors.StoreUnavailableError{Op: op, Cause: cbErr}
	}
	return opErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
