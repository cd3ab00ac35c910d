package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-wallet-otp/internal/application/otp"
	"github.com/go-wallet-otp/internal/config"
	"github.com/go-wallet-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-wallet-otp/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Throttling is off unless RATE_LIMIT_RPS is set.
	otpMw := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		otpMw = appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst).Limit
	}

	svcDeps := otp.ServiceDeps{
		Store:       deps.OTPStore,
		Mailer:      deps.Mailer,
		Clock:       deps.Clock,
		TTL:         cfg.OTPTTL,
		MailTimeout: cfg.MailTimeout,
	}
	if deps.JWTProvider != nil {
		svcDeps.Signer = deps.JWTProvider
	}
	otpSvc := otp.NewService(svcDeps)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc)

	r.Get("/health-check/{action}", healthH.Ping)
	r.With(otpMw).Post("/send-otp", otpH.Send)
	r.With(otpMw).Post("/verify-otp", otpH.Verify)

	if deps.JWTProvider != nil {
		verificationH := handler.NewVerificationHandler()
		r.With(appmiddleware.Auth(deps.JWTProvider)).Get("/verification", verificationH.Get)
	}

	return r
}
