package main

import (
	"context"
	"time"
)

const (
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
	retryMaxWait  = 5 * time.Second
)

// retryable reports whether a status code is worth another attempt.
func retryable(status int) bool {
	return status == 429 || status >= 500
}

// withRetry runs fn with exponential backoff on transient failures. fn
// returns the HTTP status it saw (0 when the request never went out) so
// transport errors and 429/5xx both back off while 4xx fails fast.
func withRetry(ctx context.Context, fn func() (int, error)) error {
	wait := retryBaseWait
	var lastErr error

	for i := 0; i < retryAttempts; i++ {
		status, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if status != 0 && !retryable(status) {
			return err
		}
		if i == retryAttempts-1 {
			break
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait < retryMaxWait {
			wait *= 2
		}
	}
	return lastErr
}
