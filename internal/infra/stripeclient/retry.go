package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v75"
)

// withBackoff runs op up to maxAttempts times, sleeping base*attempt
// between tries. Only provider rate limiting is retried; every other
// error returns immediately. Exhaustion is reported as a distinct,
// wrapped error rather than the bare last failure.
func withBackoff(ctx context.Context, maxAttempts int, base time.Duration, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRateLimited(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", maxAttempts, lastErr)
}

func isRateLimited(err error) bool {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return false
	}
	return sErr.HTTPStatusCode == http.StatusTooManyRequests || sErr.Code == stripe.ErrorCodeRateLimit
}
