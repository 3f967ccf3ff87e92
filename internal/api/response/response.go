package response

import (
	"encoding/json"
	"net/http"
)

// Payload is the envelope of every JSON response.
type Payload struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends payload with the given status.
func JSON(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Success sends data in a successful envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Payload{Success: true, Data: data})
}

// Message sends a successful envelope carrying only a message.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Payload{Success: true, Message: msg})
}

// Error sends a failed envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Payload{Success: false, Error: msg})
}
