package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/dinewise-core/server/internal/core/error"
)

func fastPolicy() Policy {
	return Policy{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}
}

func TestExecutor_RetriesTransientErrors(t *testing.T) {
	e := NewExecutor(fastPolicy())
	calls := 0
	got, err := Do(context.Background(), e, "search", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errx.New(errors.New("unavailable"), http.StatusServiceUnavailable, "upstream down")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestExecutor_DoesNotRetryClientErrors(t *testing.T) {
	e := NewExecutor(fastPolicy())
	calls := 0
	err := e.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		return errx.New(errors.New("bad input"), http.StatusBadRequest, "bad request")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
}

func TestExecutor_BreakerOpensAfterFailures(t *testing.T) {
	p := fastPolicy()
	p.RetryMaxAttempts = 1
	e := NewExecutor(p)
	boom := errors.New("boom")

	for range 2 {
		err := e.Execute(context.Background(), "gateway", func(context.Context) error { return boom }, nil)
		assert.ErrorIs(t, err, boom)
	}

	called := false
	err := e.Execute(context.Background(), "gateway", func(context.Context) error {
		called = true
		return nil
	}, nil)
	assert.False(t, called)
	assert.True(t, IsCircuitOpen(err))

	// breakers are per operation
	err = e.Execute(context.Background(), "catalog", func(context.Context) error { return nil }, nil)
	assert.NoError(t, err)
}

func TestExecutor_CancellationDoesNotTripBreaker(t *testing.T) {
	e := NewExecutor(fastPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 5 {
		err := e.Execute(ctx, "web", func(context.Context) error { return nil }, nil)
		assert.ErrorIs(t, err, context.Canceled)
	}

	called := false
	err := e.Execute(context.Background(), "web", func(context.Context) error {
		called = true
		return nil
	}, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDo_NilExecutorCallsThrough(t *testing.T) {
	got, err := Do(context.Background(), nil, "x", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestTransientClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{"canceled", context.Canceled, Classification{}},
		{"deadline", context.DeadlineExceeded, Classification{}},
		{"bad gateway", errx.WrapGateway(errors.New("x")), Classification{Retryable: true, RecordFailure: true}},
		{"rate limited", errx.New(nil, http.StatusTooManyRequests, "slow down"), Classification{Retryable: true, RecordFailure: true}},
		{"not found", errx.New(nil, http.StatusNotFound, "missing"), Classification{}},
		{"plain", errors.New("x"), Classification{RecordFailure: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TransientClassifier(tt.err))
		})
	}
}

func TestPolicyNormalize(t *testing.T) {
	p := Policy{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	def := DefaultPolicy()
	assert.Equal(t, def.RetryMaxAttempts, p.RetryMaxAttempts)
	assert.Equal(t, time.Second, p.RetryMaxBackoff)
	assert.Equal(t, def.BreakerFailureRatio, p.BreakerFailureRatio)
	assert.Equal(t, def.BreakerHalfOpenMaxCalls, p.BreakerHalfOpenMaxCalls)
}
