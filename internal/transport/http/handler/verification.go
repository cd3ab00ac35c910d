package handler

import (
	"net/http"

	"github.com/go-wallet-otp/internal/transport/http/middleware"
)

// VerificationHandler reports the email attested by a verification token.
type VerificationHandler struct{}

func NewVerificationHandler() *VerificationHandler { return &VerificationHandler{} }

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	env := VerificationEnvelope{Verified: true, Email: claims.Email}
	if claims.ExpiresAt != nil {
		env.ExpiresAt = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, env)
}
