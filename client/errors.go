// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the Changas API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`
	// Code is the machine-readable error code (e.g. "UNAUTHORIZED").
	Code string `json:"code"`
	// Message is the human-readable, client-safe error message.
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsUnauthorized reports whether the error is an authentication failure.
//
// This is the ONLY error class that justifies tearing a session down;
// everything else is treated as transient.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether the error is a missing-resource error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict reports whether the error is a uniqueness/business conflict.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsValidation reports whether the error is an input validation failure.
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest
}

// ErrMalformedResponse is returned when the server answers with a success
// status but the payload is missing its expected shape (e.g. a login success
// without a user). It must never produce a half-authenticated state.
var ErrMalformedResponse = errors.New("invalid server response")

// IsMalformedResponse reports whether err stems from a malformed success payload.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsUnauthorized reports whether err is a 401 [*APIError].
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// ErrorMessage extracts the best user-facing message from err.
//
// Precedence: server-provided message, then the transport error's own
// message, then a generic fallback.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}

	return "Ha ocurrido un error inesperado"
}

// parseError converts a non-2xx response body into an [*APIError].
//
// The server always answers errors with the {error, code} envelope; anything
// that doesn't parse falls back to the raw body and status text.
func parseError(statusCode int, body []byte) error {
	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}

	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       envelope.Code,
			Message:    envelope.Error,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Code:       http.StatusText(statusCode),
		Message:    string(body),
	}
}
