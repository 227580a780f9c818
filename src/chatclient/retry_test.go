package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRetrySucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return http.StatusBadGateway, errors.New("bad gateway")
		}
		return http.StatusOK, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryFailsFastOnClientError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() (int, error) {
		calls++
		return http.StatusNotFound, errors.New("not found")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesTransportErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	assert.Error(t, err)
	assert.Equal(t, retryAttempts, calls)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, func() (int, error) {
		return http.StatusTooManyRequests, errors.New("rate limited")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
