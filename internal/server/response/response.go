// Package response provides the JSON envelope every catalogsync API
// endpoint answers with: a data field on success, an error field on
// failure, and both when a failed import still produced a run record.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// Response is the envelope of every API answer.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes resp with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
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

// PayloadTooLarge writes a 413 error response.
func PayloadTooLarge(w http.ResponseWriter, limit int64) {
	JSON(w, http.StatusRequestEntityTooLarge, Fail(
		"PAYLOAD_TOO_LARGE",
		"Upload too large",
		"Uploads are limited to "+formatBytes(limit),
	))
}

// RateLimited writes a 429 error response.
func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, Fail("RATE_LIMITED", "Rate limit exceeded", message))
}

// InternalError writes a generic 500 error response.
func InternalError(w http.ResponseWriter) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// Classify maps a typed error to its HTTP status and error envelope.
// Failures reported by a remote source are the upstream's fault, so they
// are checked before the generic classes they also match.
func Classify(err error) (int, *Error) {
	var apiErr *errors.APIError
	switch {
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, &Error{Code: "UPSTREAM_ERROR", Message: err.Error()}
	case errors.IsTimeout(err):
		return http.StatusGatewayTimeout, &Error{Code: "TIMEOUT", Message: err.Error()}
	case errors.IsNotFound(err):
		return http.StatusNotFound, &Error{Code: "NOT_FOUND", Message: err.Error()}
	case errors.IsValidationError(err):
		return http.StatusBadRequest, &Error{Code: "BAD_REQUEST", Message: err.Error()}
	case errors.IsCanceled(err):
		return http.StatusServiceUnavailable, &Error{Code: "CANCELED", Message: err.Error()}
	default:
		return http.StatusInternalServerError, &Error{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
			Details: "An unexpected error occurred",
		}
	}
}

// ErrorFromType writes the response Classify picks for err.
func ErrorFromType(w http.ResponseWriter, err error) {
	status, e := Classify(err)
	JSON(w, status, Response{Error: e})
}

// FailedWith writes err together with data, used when a failed operation
// still produced a record worth returning.
func FailedWith(w http.ResponseWriter, data any, err error) {
	status, e := Classify(err)
	JSON(w, status, Response{Data: data, Error: e})
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
