package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

var ErrOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a failing dependency for resetTimeout after threshold consecutive failures.
// In half-open state a single trial call is let through.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(name string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit state changed", slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
		// a caller giving up says nothing about the dependency
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// Execute runs action unless the circuit is open or its half-open trial is already in flight.
func (cb *CircuitBreaker) Execute(action func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, action()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}
