package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/testforge/pomsuite/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Error represents an API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes a list response
type Meta struct {
	Total int    `json:"total"`
	Query string `json:"query,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// JSONWithMeta writes a JSON list response
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta *Meta) {
	write(w, status, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	})
}

// ErrorFromDomain converts a suite error to an HTTP error response
func ErrorFromDomain(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		JSONError(w, statusFor(appErr.Code), appErr.Code, appErr.Message)
		return
	}

	JSONError(w, http.StatusInternalServerError, domain.ErrCodeInternal, "Internal server error")
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeElementNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConfig, domain.ErrCodeAssertion:
		return http.StatusBadRequest
	case domain.ErrCodeWaitTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeDriverUnavailable, domain.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
