// Package response provides the JSON envelope used by every API endpoint:
// a data field on success and an error field on failure.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agentstation/recordsync/pkg/errors"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot be reported.
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a successful response with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// Accepted writes a successful response with 202 status.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusUnauthorized, Fail("UNAUTHORIZED", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusConflict, Fail("CONFLICT", message, details))
}

// Unprocessable writes a 422 error response naming the offending fields.
func Unprocessable(w http.ResponseWriter, message string, fields []string) {
	resp := Fail("VALIDATION_FAILED", message, "")
	resp.Error.Fields = fields
	JSON(w, http.StatusUnprocessableEntity, resp)
}

// RateLimited writes a 429 error response.
func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, Fail("RATE_LIMITED", "Rate limit exceeded", message))
}

// InternalError writes a 500 error response without exposing the cause.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// BadGateway writes a 502 error response for a failed host call.
func BadGateway(w http.ResponseWriter, code, message string) {
	JSON(w, http.StatusBadGateway, Fail(code, "Host call failed", message))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// ErrorFromType maps session errors to HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	var (
		validation *errors.ValidationError
		failure    *errors.Failure
		remote     *errors.RemoteError
	)

	switch {
	case errors.As(err, &validation):
		Unprocessable(w, validation.Error(), validation.Fields)
	case errors.Is(err, errors.ErrUnknownField), errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	case errors.Is(err, errors.ErrSubmitInProgress),
		errors.Is(err, errors.ErrReadOnly),
		errors.Is(err, errors.ErrIdentityLocked),
		errors.Is(err, errors.ErrInvalidState):
		Conflict(w, err.Error(), "")
	case errors.IsBridgeUnavailable(err):
		ServiceUnavailable(w, err.Error())
	case errors.IsTimeout(err), errors.IsCanceled(err):
		JSON(w, http.StatusGatewayTimeout, Fail("TIMEOUT", "Request did not complete", err.Error()))
	case errors.As(err, &failure):
		BadGateway(w, strings.ToUpper(string(failure.Kind)), failure.Message)
	case errors.As(err, &remote):
		BadGateway(w, "REMOTE_ERROR", remote.Error())
	default:
		InternalError(w, err)
	}
}
