package messages

import (
	"context"

	"telinsights/internal/config"
	"telinsights/pkg/circuitbreaker"
	"telinsights/pkg/errors"
)

type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.FromSettings("message-store", cfg),
	}
}

func (r *CircuitBreakerRepository) CountMessages(ctx context.Context, filter Filter) (int, error) {
	count, err := circuitbreaker.Execute(ctx, r.cb, func() (int, error) {
		return r.repo.CountMessages(ctx, filter)
	})
	return count, rejected(err)
}

func (r *CircuitBreakerRepository) FindMessages(ctx context.Context, filter Filter, limit int) ([]EnrichedMessage, error) {
	found, err := circuitbreaker.Execute(ctx, r.cb, func() ([]EnrichedMessage, error) {
		return r.repo.FindMessages(ctx, filter, limit)
	})
	return found, rejected(err)
}

func (r *CircuitBreakerRepository) SaveMessage(ctx context.Context, msg *EnrichedMessage) error {
	_, err := circuitbreaker.Execute(ctx, r.cb, func() (struct{}, error) {
		return struct{}{}, r.repo.SaveMessage(ctx, msg)
	})
	return rejected(err)
}

func (r *CircuitBreakerRepository) State() string {
	return r.cb.State()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	return r.cb.IsOpen()
}

// rejected marks breaker rejections as store unavailability.
func rejected(err error) error {
	if err != nil && circuitbreaker.IsRejected(err) {
		return errors.ErrStoreUnavailable.WithCause(err)
	}
	return err
}
