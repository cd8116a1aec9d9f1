package llm

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat", "llm")

// Retrier handles retry logic for LLM operations
type Retrier struct {
	config RetryConfig

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RetryOperation represents an operation that can be retried
type RetryOperation[T any] func(ctx context.Context, attempt int) (T, error)

// Execute executes an operation with retry logic. A nil Retrier runs the
// operation once.
func Execute[T any](r *Retrier, ctx context.Context, operation RetryOperation[T]) (T, error) {
	var zero T
	if r == nil {
		return operation(ctx, 0)
	}

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := operation(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !r.shouldRetry(err, attempt) {
			if attempt > 0 && attempt >= r.config.MaxRetries {
				return zero, errors.Wrapf(err, "operation failed after %d attempts", r.config.MaxRetries+1)
			}
			return zero, err
		}

		delay := r.calculateDelay(attempt, err)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "retrying",
			"attempt", attempt+1,
			"delay", delay.String(),
			"err", err.Error())

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, errors.Wrapf(lastErr, "operation failed after %d attempts", r.config.MaxRetries+1)
}

// shouldRetry determines if an operation should be retried
func (r *Retrier) shouldRetry(err error, attempt int) bool {
	if attempt >= r.config.MaxRetries {
		return false
	}

	if llmErr, ok := IsLLMError(err); ok {
		return llmErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range r.config.RetryableErrors {
		if strings.Contains(errStr, strings.ToLower(retryableErr)) {
			return true
		}
	}

	return false
}

// calculateDelay calculates the delay before the next retry
func (r *Retrier) calculateDelay(attempt int, err error) time.Duration {
	if llmErr, ok := IsLLMError(err); ok && llmErr.RetryAfter > 0 {
		delay := time.Duration(llmErr.RetryAfter) * time.Second
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
		return delay
	}

	factor := r.config.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	base := float64(r.config.InitialDelay)
	delay := base * math.Pow(factor, float64(attempt))

	// jitter of +/-25%
	r.mu.Lock()
	jitter := 0.25 * delay * (r.rand.Float64()*2 - 1)
	r.mu.Unlock()
	delay += jitter

	if r.config.MaxDelay > 0 && delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if delay < float64(r.config.InitialDelay) {
		delay = float64(r.config.InitialDelay)
	}

	return time.Duration(delay)
}
