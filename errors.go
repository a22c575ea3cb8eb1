// errors.go: Error handling integration for Lumen
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes for the lumen logging library.
const (
	// Core logging errors
	ErrCodeLoggerCreation errors.ErrorCode = "LUMEN_LOGGER_CREATION"
	ErrCodeLoggerClosed   errors.ErrorCode = "LUMEN_LOGGER_CLOSED"
	ErrCodeLoggerExecution errors.ErrorCode = "LUMEN_LOGGER_EXECUTION"

	// Configuration errors
	ErrCodeInvalidConfig errors.ErrorCode = "LUMEN_INVALID_CONFIG"
	ErrCodeInvalidLevel  errors.ErrorCode = "LUMEN_INVALID_LEVEL"
	ErrCodeInvalidFormat errors.ErrorCode = "LUMEN_INVALID_FORMAT"
	ErrCodeInvalidOutput errors.ErrorCode = "LUMEN_INVALID_OUTPUT"

	// Field and encoding errors
	ErrCodeInvalidField   errors.ErrorCode = "LUMEN_INVALID_FIELD"
	ErrCodeEncodingFailed errors.ErrorCode = "LUMEN_ENCODING_FAILED"
	ErrCodeBufferOverflow errors.ErrorCode = "LUMEN_BUFFER_OVERFLOW"

	// Writer and sink errors
	ErrCodeWriterNotAvailable errors.ErrorCode = "LUMEN_WRITER_NOT_AVAILABLE"
	ErrCodeWriteFailed        errors.ErrorCode = "LUMEN_WRITE_FAILED"
	ErrCodeFlushFailed        errors.ErrorCode = "LUMEN_FLUSH_FAILED"
	ErrCodeSyncFailed         errors.ErrorCode = "LUMEN_SYNC_FAILED"

	// Queue / overflow errors
	ErrCodeRingInvalidCapacity  errors.ErrorCode = "LUMEN_RING_INVALID_CAPACITY"
	ErrCodeRingInvalidBatchSize errors.ErrorCode = "LUMEN_RING_INVALID_BATCH_SIZE"
	ErrCodeRingMissingProcessor errors.ErrorCode = "LUMEN_RING_MISSING_PROCESSOR"
	ErrCodeRingClosed           errors.ErrorCode = "LUMEN_RING_CLOSED"
	ErrCodeQueueFull            errors.ErrorCode = "LUMEN_QUEUE_FULL"

	// Router / filter / sampler errors
	ErrCodeFilterFailed  errors.ErrorCode = "LUMEN_FILTER_FAILED"
	ErrCodeRouteNotFound errors.ErrorCode = "LUMEN_ROUTE_NOT_FOUND"

	// File and rotation errors
	ErrCodeFileOpen         errors.ErrorCode = "LUMEN_FILE_OPEN"
	ErrCodeFileWrite        errors.ErrorCode = "LUMEN_FILE_WRITE"
	ErrCodeFileRotation     errors.ErrorCode = "LUMEN_FILE_ROTATION"
	ErrCodePermissionDenied errors.ErrorCode = "LUMEN_PERMISSION_DENIED"

	// Encryption errors
	ErrCodeEncryptionFailed errors.ErrorCode = "LUMEN_ENCRYPTION_FAILED"
	ErrCodeDecryptionFailed errors.ErrorCode = "LUMEN_DECRYPTION_FAILED"
	ErrCodeInvalidFrame     errors.ErrorCode = "LUMEN_INVALID_FRAME"
	ErrCodeKeyRotation      errors.ErrorCode = "LUMEN_KEY_ROTATION"

	// Network sink errors
	ErrCodeNetworkDial    errors.ErrorCode = "LUMEN_NETWORK_DIAL"
	ErrCodeNetworkTimeout errors.ErrorCode = "LUMEN_NETWORK_TIMEOUT"
)

// ErrorHandler processes errors surfaced by the logging system itself
// (never by a failed producer call, which always fails silently).
type ErrorHandler func(err *errors.Error)

var defaultErrorHandler ErrorHandler = func(err *errors.Error) {
	fmt.Fprintf(os.Stderr, "[LUMEN ERROR] %s: %s\n", err.Code, err.Message)
	if err.Cause != nil {
		fmt.Fprintf(os.Stderr, "[LUMEN ERROR] caused by: %v\n", err.Cause)
	}
}

var currentErrorHandler = defaultErrorHandler

// SetErrorHandler installs a custom handler for internal logging errors
// (sink write failures, overflow, decryption failures).
func SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		currentErrorHandler = defaultErrorHandler
		return
	}
	currentErrorHandler = handler
}

// GetErrorHandler returns the current error handler.
func GetErrorHandler() ErrorHandler {
	return currentErrorHandler
}

func handleError(err *errors.Error) {
	if err == nil {
		return
	}
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context["go_version"] = runtime.Version()
	err.Context["goroutines"] = runtime.NumGoroutine()
	currentErrorHandler(err)
}

// NewLoggerError creates a library error tagged with caller information.
func NewLoggerError(code errors.ErrorCode, message string) *errors.Error {
	err := errors.New(code, message).
		WithSeverity("error").
		WithContext("component", "lumen").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			_ = err.WithContext("caller_func", fn.Name())
		}
		_ = err.WithContext("caller_file", file)
		_ = err.WithContext("caller_line", line)
	}
	return err
}

// NewLoggerErrorWithField creates a library error annotated with the
// offending field name and value, used by config validation.
func NewLoggerErrorWithField(code errors.ErrorCode, message, field, value string) *errors.Error {
	return errors.NewWithField(code, message, field, value).
		WithSeverity("error").
		WithContext("component", "lumen").
		WithContext("timestamp", time.Now().UTC())
}

// WrapLoggerError wraps a lower-level error (e.g. a sink's os.File error)
// with library context.
func WrapLoggerError(originalErr error, code errors.ErrorCode, message string) *errors.Error {
	err := errors.Wrap(originalErr, code, message).
		WithSeverity("error").
		WithContext("component", "lumen").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			_ = err.WithContext("caller_func", fn.Name())
		}
		_ = err.WithContext("caller_file", file)
		_ = err.WithContext("caller_line", line)
	}
	return err
}

// IsRetryableError reports whether err is a retryable library error.
func IsRetryableError(err error) bool {
	if lerr, ok := err.(*errors.Error); ok {
		return lerr.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from err, if it is a library error.
func GetErrorCode(err error) errors.ErrorCode {
	if lerr, ok := err.(*errors.Error); ok {
		return lerr.ErrorCode()
	}
	return ""
}

// IsLoggerError reports whether err carries the given library error code.
func IsLoggerError(err error, code errors.ErrorCode) bool {
	return errors.HasCode(err, code)
}

// RecoverWithError recovers from a panic and converts it to a library error,
// attaching a stack trace captured at the recovery point.
func RecoverWithError(code errors.ErrorCode) *errors.Error {
	if r := recover(); r != nil {
		message := fmt.Sprintf("panic recovered: %v", r)
		err := NewLoggerError(code, message)
		_ = err.WithContext("panic_value", r)
		_ = err.WithContext("recovery_time", time.Now().UTC())

		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		_ = err.WithContext("panic_stack", string(buf[:n]))
		return err
	}
	return nil
}

// SafeExecute runs fn, converting any panic into a library error routed
// through the current ErrorHandler instead of propagating.
func SafeExecute(fn func() error, operation string) error {
	defer func() {
		if err := RecoverWithError(ErrCodeLoggerExecution); err != nil {
			_ = err.WithContext("operation", operation)
			handleError(err)
		}
	}()
	return fn()
}

func validateErrorCodes() {
	codes := []errors.ErrorCode{
		ErrCodeLoggerCreation, ErrCodeLoggerClosed, ErrCodeLoggerExecution,
		ErrCodeInvalidConfig, ErrCodeInvalidLevel, ErrCodeInvalidFormat, ErrCodeInvalidOutput,
		ErrCodeInvalidField, ErrCodeEncodingFailed, ErrCodeBufferOverflow,
		ErrCodeWriterNotAvailable, ErrCodeWriteFailed, ErrCodeFlushFailed, ErrCodeSyncFailed,
		ErrCodeRingInvalidCapacity, ErrCodeRingInvalidBatchSize, ErrCodeRingMissingProcessor,
		ErrCodeRingClosed, ErrCodeQueueFull,
		ErrCodeFilterFailed, ErrCodeRouteNotFound,
		ErrCodeFileOpen, ErrCodeFileWrite, ErrCodeFileRotation, ErrCodePermissionDenied,
		ErrCodeEncryptionFailed, ErrCodeDecryptionFailed, ErrCodeInvalidFrame, ErrCodeKeyRotation,
		ErrCodeNetworkDial, ErrCodeNetworkTimeout,
	}

	for _, code := range codes {
		if len(string(code)) == 0 {
			panic("lumen: empty error code detected")
		}
		if string(code)[:6] != "LUMEN_" {
			panic(fmt.Sprintf("lumen: error code %s does not follow LUMEN_ prefix convention", code))
		}
	}
}

func init() {
	validateErrorCodes()
}
