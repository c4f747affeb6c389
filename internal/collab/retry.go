package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dusk-indust/historicalcourt/internal/logging"
)

var _ Generator = (*RetryGenerator)(nil)

// RetryGenerator retries ServiceErrors from the wrapped Generator with
// exponential backoff. Other errors are returned immediately. Every attempt
// runs under its own timeout when one is set.
type RetryGenerator struct {
	next         Generator
	attempts     int
	initialDelay time.Duration
	timeout      time.Duration
	log          *slog.Logger
}

// NewRetryGenerator wraps next. attempts counts the first call; values
// below 1 are treated as 1.
func NewRetryGenerator(next Generator, attempts int, initialDelay, timeout time.Duration) *RetryGenerator {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryGenerator{
		next:         next,
		attempts:     attempts,
		initialDelay: initialDelay,
		timeout:      timeout,
		log:          logging.New("collab"),
	}
}

// Generate calls the wrapped generator until it succeeds, returns a
// non-service error, the attempts are exhausted, or ctx is done.
func (r *RetryGenerator) Generate(ctx context.Context, prompt PromptContext) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initialDelay
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.attempts-1)), ctx)

	attempt := 0
	var out string
	op := func() error {
		attempt++
		callCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		text, err := r.next.Generate(callCtx, prompt)
		if err == nil {
			out = text
			return nil
		}
		if !IsServiceError(err) {
			return backoff.Permanent(err)
		}
		r.log.Warn("generation attempt failed", "role", prompt[KeyRole], "attempt", attempt, "of", r.attempts, "error", err)
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return out, nil
}

func (r *RetryGenerator) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
