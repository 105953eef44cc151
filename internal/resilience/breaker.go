package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a remote dependency is considered down.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Executor runs remote calls through a circuit breaker and the retry policy.
type Executor struct {
	policy  Policy
	breaker *gobreaker.CircuitBreaker
}

// NewExecutor returns an Executor whose breaker trips after 5 calls with at least half failing.
func NewExecutor(name string, p Policy, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// client errors say nothing about the health of the remote side
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	}
	return &Executor{policy: p, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Run executes op with retries inside the breaker.
func (e *Executor) Run(ctx context.Context, op func(context.Context) error) error {
	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, Do(ctx, e.policy, op)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", e.breaker.Name(), ErrCircuitOpen)
	}
	return err
}

// State returns the breaker state name.
func (e *Executor) State() string {
	return e.breaker.State().String()
}
