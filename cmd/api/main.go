package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-wallet-otp/internal/application/otp"
	"github.com/go-wallet-otp/internal/config"
	"github.com/go-wallet-otp/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-wallet-otp/internal/infrastructure/jwt"
	"github.com/go-wallet-otp/internal/infrastructure/logmail"
	"github.com/go-wallet-otp/internal/infrastructure/memory"
	"github.com/go-wallet-otp/internal/infrastructure/smtp"
	"github.com/go-wallet-otp/internal/infrastructure/sns"
	transporthttp "github.com/go-wallet-otp/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	store, err := newOTPStore(cfg)
	if err != nil {
		log.Fatalf("otp store: %v", err)
	}

	mailer, err := newMailer(cfg)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	// Attestation tokens are optional; missing keys disable them.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else if !errors.Is(err, jwtinfra.ErrNotConfigured) {
		slog.Warn("attestation tokens disabled", "err", err)
	}

	deps := &transporthttp.Deps{
		OTPStore:    store,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// WriteTimeout leaves room for a mail dispatch that runs up to MailTimeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.MailTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.AppEnv, "store", cfg.OTPStore, "mail", cfg.MailProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newOTPStore(cfg *config.Config) (otp.Store, error) {
	switch cfg.OTPStore {
	case config.StoreMemory:
		return memory.NewOTPStore(), nil
	case config.StoreDynamo:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Creates the table if it doesn't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTableOTPs)
		return dynamo.NewOTPRepo(client, cfg.DynamoTableOTPs), nil
	default:
		return nil, fmt.Errorf("unknown OTP_STORE %q (want %s)", cfg.OTPStore,
			strings.Join([]string{config.StoreMemory, config.StoreDynamo}, "|"))
	}
}

func newMailer(cfg *config.Config) (otp.Mailer, error) {
	switch cfg.MailProvider {
	case config.MailSMTP:
		return smtp.NewMailer(cfg), nil
	case config.MailSNS:
		p, err := sns.NewPublisher(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.MailLog:
		return logmail.NewMailer(slog.Default()), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q (want %s)", cfg.MailProvider,
			strings.Join([]string{config.MailSMTP, config.MailSNS, config.MailLog}, "|"))
	}
}
