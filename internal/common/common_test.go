package common

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapStoreError(t *testing.T) {
	tests := []struct {
		err         error
		name        string
		unavailable bool
	}{
		{name: "nil", err: nil},
		{name: "bad conn", err: driver.ErrBadConn, unavailable: true},
		{name: "refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), unavailable: true},
		{name: "already wrapped", err: fmt.Errorf("%w: x", ErrStoreUnavailable), unavailable: true},
		{name: "not found", err: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapStoreError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.unavailable, errors.Is(got, ErrStoreUnavailable))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrStoreUnavailable))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("busy"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("bad"), Retryable: false}))
	assert.False(t, IsRetryable(ErrInvalidTransaction))
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrStoreUnavailable
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrStoreUnavailable
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error returns at once", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrUnsupportedKind
		}, opts)
		assert.ErrorIs(t, err, ErrUnsupportedKind)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error {
			return ErrStoreUnavailable
		}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUserError(t *testing.T) {
	err := NewUserError("Could not open database", ErrStoreUnavailable)
	assert.Equal(t, "Could not open database: store unavailable", err.Error())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Could not open database", ue.UserMessage)

	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, slog.LevelInfo, "json"))
	slog.Debug("hidden")
	slog.Info("shown", "id", "1-0")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"id":"1-0"`)

	assert.ErrorIs(t, SetupLogger(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}

func TestCompilePrefix(t *testing.T) {
	re, err := CompilePrefix("BOLT|UBER")
	require.NoError(t, err)
	assert.True(t, re.MatchString("UBER *TRIP"))
	assert.False(t, re.MatchString("PAY UBER"))

	_, err = CompilePrefix("(")
	assert.Error(t, err)
}
