// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and error handling utilities for the microkern substrate.
//
// Every recoverable condition is a returned error value; the only fatal
// conditions in the substrate (free-list corruption, deferred-free queue
// overflow) panic, because no caller can meaningfully continue past them.

package api

import "fmt"

// Common errors used across the library.
var (
	// ErrClosed is returned when operating on a closed channel, queue,
	// oneshot or byte ring.
	ErrClosed = fmt.Errorf("channel is closed")

	// ErrQueueFull is returned by synchronous enqueue attempts against a
	// bounded queue with no free slot. The caller still owns the item.
	ErrQueueFull = fmt.Errorf("queue is full")

	// ErrQueueEmpty is returned by synchronous dequeue attempts against an
	// empty bounded queue.
	ErrQueueEmpty = fmt.Errorf("queue is empty")

	// ErrInsufficientSize is returned by synchronous grant requests when no
	// contiguous region of the requested kind exists.
	ErrInsufficientSize = fmt.Errorf("insufficient contiguous size")

	// ErrGrantInProgress is returned when a second write (or read) grant is
	// requested while one of the same kind is outstanding.
	ErrGrantInProgress = fmt.Errorf("grant already in progress")

	// ErrSenderActive is returned when a oneshot sender is requested while a
	// previous sender is still live.
	ErrSenderActive = fmt.Errorf("sender already active")

	// ErrNoSender is returned by a oneshot receive when no sender has been
	// created, or the previous sender was dropped without sending.
	ErrNoSender = fmt.Errorf("no sender active")

	// ErrAlreadyInitialized is returned when initializing an
	// already-initialized singleton (the heap).
	ErrAlreadyInitialized = fmt.Errorf("already initialized")

	// ErrNotInitialized is returned when using a singleton before its
	// one-time initialization.
	ErrNotInitialized = fmt.Errorf("not initialized")

	// ErrBusy is returned by try-lock paths when the guard is held.
	ErrBusy = fmt.Errorf("resource busy")

	// ErrOutOfMemory is returned by synchronous allocation attempts when the
	// free list has no region large enough.
	ErrOutOfMemory = fmt.Errorf("out of memory")

	// ErrAlreadyExists is returned on duplicate registration.
	ErrAlreadyExists = fmt.Errorf("resource already exists")

	// ErrUnknownService is returned when dispatching to an unregistered or
	// kernel-only service identifier.
	ErrUnknownService = fmt.Errorf("unknown service")

	// ErrDeserialize is returned when cross-privilege request bytes do not
	// decode into the registered request type.
	ErrDeserialize = fmt.Errorf("deserialization failed")

	// ErrInvalidArgument is returned for malformed caller input.
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrNotSupported is returned for operations a handle cannot perform.
	ErrNotSupported = fmt.Errorf("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeClosed
	ErrCodeFull
	ErrCodeEmpty
	ErrCodeInsufficientSize
	ErrCodeGrantInProgress
	ErrCodeSenderActive
	ErrCodeNoSender
	ErrCodeAlreadyExists
	ErrCodeUnknownService
	ErrCodeDeserialize
	ErrCodeInvalidArgument
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}
