package mmwave

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/behrlich/go-mmwave/internal/hal"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("Start", ErrCodeInvalidState, "driver not initialized")
	assert.Equal(t, "mmwave: driver not initialized (op=Start)", err.Error())

	bare := &Error{Code: ErrCodeTimeout}
	assert.Equal(t, "mmwave: timeout", bare.Error())
}

func TestIsCode(t *testing.T) {
	err := NewError("PollReport", ErrCodeTimeout, "no report available")
	assert.True(t, IsCode(err, ErrCodeTimeout))
	assert.False(t, IsCode(err, ErrCodeQueueFull))
	assert.False(t, IsCode(nil, ErrCodeTimeout))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeTimeout))

	// Wrapped structured errors still match through errors.As.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeTimeout))
}

func TestErrorsIsMatchesByCategory(t *testing.T) {
	a := NewError("Start", ErrCodeInvalidState, "x")
	b := NewError("Stop", ErrCodeInvalidState, "y")
	c := NewError("Stop", ErrCodeTimeout, "z")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrapErrorMapsInternalSentinels(t *testing.T) {
	tests := []struct {
		inner error
		want  ErrorCode
	}{
		{hal.ErrInvalidState, ErrCodeInvalidState},
		{hal.ErrMemory, ErrCodeMemoryFault},
		{hal.ErrQueueFull, ErrCodeQueueFull},
		{hal.ErrTimeout, ErrCodeTimeout},
		{errors.New("port exploded"), ErrCodePlatformFault},
	}
	for _, tt := range tests {
		err := WrapError("SendInquiry", tt.inner)
		assert.Equal(t, tt.want, err.Code, "wrapping %v", tt.inner)
		assert.ErrorIs(t, err, tt.inner)
	}
}

func TestWrapErrorNil(t *testing.T) {
	assert.Nil(t, WrapError("Init", nil))
}

func TestWrapErrorKeepsStructuredCode(t *testing.T) {
	inner := NewError("Init", ErrCodeBadArgument, "no device")
	err := WrapError("Outer", inner)
	assert.Equal(t, ErrCodeBadArgument, err.Code)
	assert.Equal(t, "Outer", err.Op)
}
