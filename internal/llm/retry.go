package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ciq-assistant/internal/contextutil"
)

// ErrTimeout is returned when a model call exceeds its deadline twice.
var ErrTimeout = errors.New("model call timed out")

// withRetry runs op under a per-attempt timeout. If the attempt hits its own
// deadline while the parent context is still live, op runs one more time.
func withRetry(ctx context.Context, timeout time.Duration, name string, op func(context.Context) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		err = runAttempt(ctx, timeout, op)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.WarnContext(ctx, "model call timed out",
			"call", name,
			"attempt", attempt,
			"timeout", timeout,
		)
	}
	return fmt.Errorf("%w: %s after 2 attempts: %w", ErrTimeout, name, err)
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
