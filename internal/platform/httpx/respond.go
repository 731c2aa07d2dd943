// Package httpx provides the JSON response envelope shared by every API handler.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape of every API endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Message string `json:"message"`
	Error   any    `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK wraps result and message into a success envelope.
func OK(w http.ResponseWriter, result any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Result: result, Message: message})
}

// Fail wraps a failure into the envelope with the given status.
func Fail(w http.ResponseWriter, status int, message string, detail any) {
	JSON(w, status, Envelope{Success: false, Result: nil, Message: message, Error: detail})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
