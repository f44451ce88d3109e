package postgres

import (
	"errors"

	"github.com/sony/gobreaker"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

// Breaker guards store calls with a circuit breaker. Domain errors such as
// not-found or invalid transitions never count as failures.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker named after the guarded store
func NewBreaker(name string, cfg *config.BreakerConfig, log *logger.Logger) *Breaker {
	fails := cfg.ConsecutiveFails
	if fails == 0 {
		fails = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= fails
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrProfileNotFound) ||
		errors.Is(err, domain.ErrAlertNotFound) ||
		errors.Is(err, domain.ErrInvalidTransition)
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// execute runs fn through the breaker
func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
