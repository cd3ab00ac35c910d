package domain

import "time"

// OTPRecord is the pending one-time password issued to an email address.
// There is at most one live record per email; a new issuance replaces it.
type OTPRecord struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now.
// A record is still valid at the exact expiry instant.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
