package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code surfaced to API clients.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeValidationFailed Code = "validation_failed"
	CodeVersionConflict  Code = "version_conflict"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeExternalError    Code = "external_error"
	CodeInternal         Code = "internal_error"
)

// AppError is the domain error carried from services to handlers. Detail
// holds structured payloads such as the full validation error list.
type AppError struct {
	Code       Code        `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Detail     interface{} `json:"detail,omitempty"`
	Err        error       `json:"-"`
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

// AsAppError unwraps err to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func ValidationFailed(message string, detail interface{}) *AppError {
	return &AppError{
		Code:       CodeValidationFailed,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Detail:     detail,
	}
}

func VersionConflict(message string, detail interface{}) *AppError {
	return &AppError{
		Code:       CodeVersionConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Detail:     detail,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func External(message string, err error) *AppError {
	return &AppError{Code: CodeExternalError, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}
