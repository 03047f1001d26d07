package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      New(ErrCodeDiscordAPI, "send failed"),
			expected: "DISCORD_API: send failed",
		},
		{
			name:     "with cause",
			err:      Wrap(errors.New("boom"), ErrCodeDatabaseQuery, "insert failed"),
			expected: "DATABASE_QUERY: insert failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrCodeInternalError, "wrapped")

	assert.True(t, errors.Is(err, cause))
}

func TestIsRetryable(t *testing.T) {
	transient := WrapRetryable(errors.New("503"), ErrCodeDiscordAPI, "server error")
	permanent := Wrap(errors.New("400"), ErrCodeDiscordAPI, "bad payload")

	assert.True(t, IsRetryable(transient))
	assert.False(t, IsRetryable(permanent))

	// Classification survives further wrapping.
	assert.False(t, IsRetryable(fmt.Errorf("delivery: %w", permanent)))
	assert.True(t, IsRetryable(fmt.Errorf("delivery: %w", transient)))

	// Unclassified errors default to transient.
	assert.True(t, IsRetryable(errors.New("unknown")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeRateLimit, GetCode(New(ErrCodeRateLimit, "429")))
	assert.Equal(t, ErrCodeInternalError, GetCode(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeGZCTFAPI, "fetch failed").
		WithContext("game_id", int64(3)).
		WithContext("status", 502)

	assert.Equal(t, int64(3), err.Context["game_id"])
	assert.Equal(t, 502, err.Context["status"])
}
