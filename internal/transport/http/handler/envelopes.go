package handler

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusEnvelope wraps the send-otp success response.
type StatusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VerifyEnvelope wraps verify-otp responses, success and failure alike.
type VerifyEnvelope struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
}

// VerificationEnvelope wraps the attestation lookup response.
type VerificationEnvelope struct {
	Verified  bool   `json:"verified"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
