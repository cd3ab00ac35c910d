package http

import (
	"github.com/go-wallet-otp/internal/application/otp"
	jwtinfra "github.com/go-wallet-otp/internal/infrastructure/jwt"
	"github.com/go-wallet-otp/internal/pkg/clock"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	OTPStore otp.Store
	Mailer   otp.Mailer
	// JWTProvider is optional; without it no attestation tokens are issued
	// and /verification is not mounted.
	JWTProvider *jwtinfra.Provider
	// Clock is optional and defaults to the system clock.
	Clock clock.Clocker
}
