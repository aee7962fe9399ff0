package resilience

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

// ErrorClassification tells the executor whether an error may be retried and
// whether it counts against the circuit breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor guards the renderer, compressor, recommender and job publisher.
// Every operation has its own circuit breaker; retries are bounded and
// exponential except for single-attempt operations. A call rejected by an open
// breaker comes back as domain.ErrTemporary so it surfaces as 503.
type Executor struct {
	cfg Config
	log logging.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config, log logging.Logger) *Executor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Executor{
		cfg:      cfg.normalize(),
		log:      log.With(logging.Fields{"component": "resilience"}),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.executeWithRetry(ctx, op, fn, classifier)
	}

	breaker := e.circuitBreaker(op, classifier)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, op, fn, classifier)
	})
	if IsCircuitOpen(err) {
		e.log.Warn("circuit_rejected_call", logging.Fields{"operation": op, "state": breaker.State().String()})
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return err
}

// OpenCircuits lists operations whose breaker is not closed, sorted by name.
func (e *Executor) OpenCircuits() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	for op, breaker := range e.breakers {
		if breaker.State() != gobreaker.StateClosed {
			out = append(out, op+"="+breaker.State().String())
		}
	}
	sort.Strings(out)
	return out
}

func (e *Executor) maxAttempts(operation string) int {
	if singleAttemptOps[operation] {
		return 1
	}
	return e.cfg.RetryMaxAttempts
}

func (e *Executor) executeWithRetry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	maxAttempts := e.maxAttempts(operation)
	backoff := e.cfg.RetryInitialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		class := classifier(err)
		if !class.Retryable || attempt == maxAttempts {
			return err
		}

		wait := backoff
		if wait > e.cfg.RetryMaxBackoff {
			wait = e.cfg.RetryMaxBackoff
		}
		e.log.Warn("retry_attempt", logging.Fields{
			"operation":    operation,
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"backoff_ms":   float64(wait.Microseconds()) / 1000.0,
			"error":        err.Error(),
		})

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		backoff = time.Duration(float64(backoff) * e.cfg.RetryMultiplier)
		if backoff > e.cfg.RetryMaxBackoff {
			backoff = e.cfg.RetryMaxBackoff
		}
	}

	return nil
}

func (e *Executor) circuitBreaker(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			class := classifier(err)
			return !class.RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			e.log.Warn("circuit_breaker_state_change", logging.Fields{
				"operation": name,
				"from":      from.String(),
				"to":        to.String(),
			})
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

// IsCircuitOpen reports whether err was produced by an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// defaultClassifier retries only errors already tagged as temporary.
func defaultClassifier(err error) ErrorClassification {
	if errors.Is(err, context.Canceled) {
		return ErrorClassification{}
	}
	return ErrorClassification{
		Retryable:     domain.IsKind(err, domain.ErrTemporary),
		RecordFailure: true,
	}
}
