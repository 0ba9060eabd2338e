package mmwave

import (
	"errors"
	"fmt"

	"github.com/behrlich/go-mmwave/internal/codec"
	"github.com/behrlich/go-mmwave/internal/hal"
)

// Error represents a structured driver error with operation context and a
// high-level error category.
type Error struct {
	Op    string    // Operation that failed (e.g., "Start", "InquiryHeartbeat")
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("mmwave: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("mmwave: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches two structured errors by category.
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories.
type ErrorCode string

const (
	// ErrCodeInvalidState means a lifecycle guard rejected the call.
	ErrCodeInvalidState ErrorCode = "invalid state"
	// ErrCodeBadArgument means a value was outside its declared domain.
	ErrCodeBadArgument ErrorCode = "bad argument"
	// ErrCodeBadMode means the operation is forbidden in the current
	// operating mode.
	ErrCodeBadMode ErrorCode = "bad mode"
	// ErrCodeMemoryFault means an allocation was refused by the
	// accountant or the platform.
	ErrCodeMemoryFault ErrorCode = "memory fault"
	// ErrCodeQueueFull means a bounded queue refused within its timeout.
	ErrCodeQueueFull ErrorCode = "queue full"
	// ErrCodeTimeout means a bounded wait elapsed.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeProtocolFault means a frame was dropped by the codec.
	// Protocol faults are recovered internally and surface to users only
	// as the absence of events; the code exists for metrics and logs.
	ErrCodeProtocolFault ErrorCode = "protocol fault"
	// ErrCodePlatformFault means the underlying UART or task API failed.
	ErrCodePlatformFault ErrorCode = "platform fault"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps an error produced by an inner layer, mapping its kind
// onto the public error categories.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if me, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: me.Code, Msg: me.Msg, Inner: me.Inner}
	}
	return &Error{Op: op, Code: mapInnerError(inner), Msg: inner.Error(), Inner: inner}
}

// mapInnerError maps internal-layer sentinel errors to error categories.
func mapInnerError(err error) ErrorCode {
	switch {
	case errors.Is(err, hal.ErrInvalidState):
		return ErrCodeInvalidState
	case errors.Is(err, hal.ErrMemory), errors.Is(err, codec.ErrMemory):
		return ErrCodeMemoryFault
	case errors.Is(err, hal.ErrQueueFull):
		return ErrCodeQueueFull
	case errors.Is(err, hal.ErrTimeout):
		return ErrCodeTimeout
	default:
		return ErrCodePlatformFault
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}
