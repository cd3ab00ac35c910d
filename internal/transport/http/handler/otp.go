package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-wallet-otp/internal/application/otp"
	"github.com/go-wallet-otp/internal/domain"
	"github.com/go-wallet-otp/internal/pkg/validate"
)

// Response messages, kept verbatim for the wallet UI.
const (
	msgEmailRequired    = "Email is required"
	msgOTPSent          = "OTP sent successfully"
	msgSendFailed       = "Failed to send OTP"
	msgFieldsRequired   = "Email and OTP are required"
	msgNoOTP            = "No OTP found for this email"
	msgOTPExpired       = "OTP expired"
	msgInvalidOTP       = "Invalid OTP"
	msgOTPVerified      = "OTP verified successfully"
	msgVerificationFail = "Failed to verify OTP"
)

type SendOTPRequest struct {
	Email string `json:"email" validate:"required"`
}

// VerifyOTPRequest accepts the code as "code" or, for older clients, "otp".
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
	OTP   string `json:"otp,omitempty" validate:"-"`
}

// OTPHandler serves the OTP issue and verify endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgEmailRequired)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgEmailRequired)
		return
	}

	if err := h.svc.RequestOTP(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrBadRequest):
			writeError(w, http.StatusBadRequest, msgEmailRequired)
		default:
			if !errors.Is(err, domain.ErrMailDispatch) {
				slog.Error("send otp failed", "email", req.Email, "err", err)
			}
			writeError(w, http.StatusInternalServerError, msgSendFailed)
		}
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: "success", Message: msgOTPSent})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}
	if req.Code == "" {
		req.Code = req.OTP
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}

	v, err := h.svc.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		status, msg := verifyFailure(err)
		if status == http.StatusBadRequest {
			writeError(w, status, msg)
			return
		}
		if status == http.StatusInternalServerError {
			slog.Error("verify otp failed", "email", req.Email, "err", err)
		}
		writeJSON(w, status, VerifyEnvelope{Verified: false, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{Verified: true, Message: msgOTPVerified, Token: v.Token})
}

// verifyFailure maps a VerifyOTP error to its HTTP status and message.
func verifyFailure(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, msgFieldsRequired
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNoOTP
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, msgOTPExpired
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, msgInvalidOTP
	default:
		return http.StatusInternalServerError, msgVerificationFail
	}
}
