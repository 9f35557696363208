package util

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindForbidden
	KindRateLimited
	KindPaymentRequired
	KindUpstream
	KindPersistence
)

// AppError 对外只暴露 Message，Err 只用于服务端日志
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status 映射到 HTTP 状态码
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable 调用方是否可以稍后重试
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindUpstream, KindPersistence:
		return true
	}
	return false
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewRateLimitedError() *AppError {
	return &AppError{Kind: KindRateLimited, Message: "Rate limit exceeded. Please try again in a moment."}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

func NewPersistenceError(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: message, Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "An unexpected error occurred. Please try again", Err: err}
}

// AsAppError 非 AppError 一律视为内部错误
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

var (
	ErrActivityNotFound = NewNotFoundError("Activity not found")
	ErrNoActivities     = NewNotFoundError("No activities available")
	ErrPermissionDenied = NewForbiddenError("Insufficient permissions")
	ErrTeacherRequired  = NewForbiddenError("Teacher access required")
)
