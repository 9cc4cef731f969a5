package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configure when a BreakerRepository stops calling its backend.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	ErrorRatePercent    int
	OpenTimeout         time.Duration
}

// BreakerRepository fails fast while its backend keeps failing, so that a storage outage
// does not stall every store mutation for a full network timeout.
type BreakerRepository struct {
	next    Backend
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerRepository wraps next in a circuit breaker.
func NewBreakerRepository(next Backend, settings BreakerSettings, logger *slog.Logger) *BreakerRepository {
	logger = logger.With("component", "storage_breaker", "name", settings.Name)
	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures ||
				(total > settings.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(settings.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// a missing key or a caller that gave up says nothing about the backend
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("Storage circuit breaker changed state", "from", from.String(), "to", to.String())
		},
	}
	return &BreakerRepository{next: next, breaker: gobreaker.NewCircuitBreaker[[]byte](st)}
}

// Load implements Repository.
func (b *BreakerRepository) Load(ctx context.Context, key string) ([]byte, error) {
	blob, err := b.breaker.Execute(func() ([]byte, error) {
		return b.next.Load(ctx, key)
	})
	return blob, b.wrap(err)
}

// Save implements Repository.
func (b *BreakerRepository) Save(ctx context.Context, key string, blob []byte) error {
	_, err := b.breaker.Execute(func() ([]byte, error) {
		return nil, b.next.Save(ctx, key, blob)
	})
	return b.wrap(err)
}

// Delete implements Repository.
func (b *BreakerRepository) Delete(ctx context.Context, key string) error {
	_, err := b.breaker.Execute(func() ([]byte, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return b.wrap(err)
}

// Ping checks the backend directly, whatever the breaker state.
func (b *BreakerRepository) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// State reports the breaker state.
func (b *BreakerRepository) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerRepository) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("storage %s unavailable: %w", b.breaker.Name(), err)
	}
	return err
}
