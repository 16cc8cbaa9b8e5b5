package minimalkv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	retry "github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"not exist", fs.ErrNotExist, false},
		{"permission", fs.ErrPermission, false},
		{"interrupted", syscall.EINTR, true},
		{"again", syscall.EAGAIN, true},
		{"busy", syscall.EBUSY, true},
		{"timed out", syscall.ETIMEDOUT, true},
		{"wrapped transient", fmt.Errorf("write: %w", syscall.EBUSY), true},
		{"arbitrary", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return retry.RetryableError(errors.New("transient"))
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	gaveUp := false
	err := Retry(context.Background(), func(context.Context) error {
		attempts++
		return permanent
	}, func(context.Context) { gaveUp = true })
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.True(t, gaveUp)
}
