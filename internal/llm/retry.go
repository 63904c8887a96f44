package llm

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"
)

const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// sleeper is swapped out in tests to avoid real backoff delays.
var sleeper = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRetry runs fn up to maxAttempts times with exponential backoff.
// 4xx responses are returned immediately; 5xx and network-level failures
// are retried.
func withRetry(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * (1 << uint(attempt))
			log.Printf("llm retry attempt=%d delay=%s error=%v", attempt, delay, lastErr)
			if err := sleeper(ctx, delay); err != nil {
				return "", err
			}
		}
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return "", err
		}
	}
	return "", lastErr
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.IsClientError()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "client.timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
