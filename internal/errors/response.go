package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the standardized error format returned to clients.
// It provides machine-readable error codes for robust error handling.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code, message, and optional context.
type ErrorDetail struct {
	Code      ErrorCode              `json:"code"`              // Machine-readable error code
	Message   string                 `json:"message"`           // Human-readable error message
	Retryable bool                   `json:"retryable"`         // Whether the client should retry
	Details   map[string]interface{} `json:"details,omitempty"` // Optional context (productId, etc.)
}

// NewErrorResponse creates a standardized error response.
func NewErrorResponse(code ErrorCode, message string, details map[string]interface{}) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: code.IsRetryable(),
			Details:   details,
		},
	}
}

// WriteJSON writes the error response as JSON with the given status code.
func (e ErrorResponse) WriteJSON(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e)
}

// WriteError writes a typed service error, honoring any status override it carries.
func WriteError(w http.ResponseWriter, err error) {
	typed := AsError(err)
	resp := NewErrorResponse(typed.Code, typed.Message, nil)
	resp.WriteJSON(w, typed.HTTPStatus())
}

// WriteSimpleError writes an error from a bare code and message.
func WriteSimpleError(w http.ResponseWriter, code ErrorCode, message string) {
	resp := NewErrorResponse(code, message, nil)
	resp.WriteJSON(w, code.HTTPStatus())
}

// WriteErrorWithDetail writes an error with a single detail field.
func WriteErrorWithDetail(w http.ResponseWriter, code ErrorCode, message string, key string, value interface{}) {
	resp := NewErrorResponse(code, message, map[string]interface{}{key: value})
	resp.WriteJSON(w, code.HTTPStatus())
}
