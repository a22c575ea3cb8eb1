// errors_test.go: error handler wiring, wrap/code helpers, panic recovery
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"errors"
	"testing"

	gerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetErrorHandlerReceivesHandledErrors(t *testing.T) {
	t.Cleanup(func() { SetErrorHandler(nil) })

	var got *gerrors.Error
	SetErrorHandler(func(err *gerrors.Error) { got = err })

	handleError(NewLoggerError(ErrCodeWriteFailed, "disk full"))

	require.NotNil(t, got)
	assert.Equal(t, ErrCodeWriteFailed, got.ErrorCode())
}

func TestSetErrorHandlerNilRestoresDefault(t *testing.T) {
	SetErrorHandler(func(err *gerrors.Error) {})
	SetErrorHandler(nil)
	assert.NotNil(t, GetErrorHandler())
}

func TestWrapLoggerErrorPreservesCodeAndCause(t *testing.T) {
	cause := errors.New("underlying failure")
	wrapped := WrapLoggerError(cause, ErrCodeFileOpen, "could not open file")

	assert.Equal(t, ErrCodeFileOpen, GetErrorCode(wrapped))
	assert.True(t, IsLoggerError(wrapped, ErrCodeFileOpen))
	assert.False(t, IsLoggerError(wrapped, ErrCodeFileWrite))
}

func TestGetErrorCodeOnPlainErrorIsEmpty(t *testing.T) {
	assert.Equal(t, gerrors.ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestRecoverWithErrorCapturesPanic(t *testing.T) {
	var recovered *gerrors.Error
	func() {
		defer func() { recovered = RecoverWithError(ErrCodeLoggerExecution) }()
		panic("boom")
	}()

	require.NotNil(t, recovered)
	assert.Equal(t, ErrCodeLoggerExecution, recovered.ErrorCode())
}

func TestRecoverWithErrorNoPanicReturnsNil(t *testing.T) {
	var recovered *gerrors.Error
	func() {
		defer func() { recovered = RecoverWithError(ErrCodeLoggerExecution) }()
	}()
	assert.Nil(t, recovered)
}

func TestSafeExecuteConvertsPanicInsteadOfPropagating(t *testing.T) {
	t.Cleanup(func() { SetErrorHandler(nil) })

	var handled *gerrors.Error
	SetErrorHandler(func(err *gerrors.Error) { handled = err })

	assert.NotPanics(t, func() {
		_ = SafeExecute(func() error {
			panic("writer exploded")
		}, "test-operation")
	})

	require.NotNil(t, handled)
	assert.Equal(t, ErrCodeLoggerExecution, handled.ErrorCode())
}

func TestSafeExecutePassesThroughOrdinaryError(t *testing.T) {
	want := errors.New("ordinary failure")
	err := SafeExecute(func() error { return want }, "test-operation")
	assert.Equal(t, want, err)
}
