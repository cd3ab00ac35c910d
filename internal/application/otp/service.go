package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-wallet-otp/internal/domain"
	"github.com/go-wallet-otp/internal/pkg/clock"
	"github.com/go-wallet-otp/internal/pkg/keylock"
	"github.com/go-wallet-otp/internal/pkg/otpcode"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMailTimeout = 10 * time.Second

	MailSubject = "Your Wallet Verification OTP"
)

// Store persists the pending OTP for each email. Get returns a
// domain.ErrNotFound-wrapped error when nothing is stored; Put overwrites.
type Store interface {
	Get(ctx context.Context, email string) (*domain.OTPRecord, error)
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Delete(ctx context.Context, email string) error
}

// Mailer delivers the OTP message.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// TokenSigner issues an attestation token for a verified email.
type TokenSigner interface {
	Sign(email string) (string, error)
}

// Verification is the outcome of a successful VerifyOTP.
type Verification struct {
	Email      string
	VerifiedAt time.Time
	Token      string // empty when no signer is configured
}

type Service interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*Verification, error)
}

// ServiceDeps carries the collaborators of the OTP service. Signer, Clock,
// Locker and Generate are optional; zero durations fall back to the defaults.
type ServiceDeps struct {
	Store       Store
	Mailer      Mailer
	Signer      TokenSigner
	Clock       clock.Clocker
	Locker      *keylock.Locker
	Generate    func() (string, error)
	TTL         time.Duration
	MailTimeout time.Duration
}

type service struct {
	store       Store
	mailer      Mailer
	signer      TokenSigner
	clock       clock.Clocker
	locker      *keylock.Locker
	generate    func() (string, error)
	ttl         time.Duration
	mailTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:       deps.Store,
		mailer:      deps.Mailer,
		signer:      deps.Signer,
		clock:       deps.Clock,
		locker:      deps.Locker,
		generate:    deps.Generate,
		ttl:         deps.TTL,
		mailTimeout: deps.MailTimeout,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.locker == nil {
		s.locker = keylock.New()
	}
	if s.generate == nil {
		s.generate = otpcode.Generate
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.mailTimeout <= 0 {
		s.mailTimeout = DefaultMailTimeout
	}
	return s
}

// RequestOTP stores a fresh code for email, replacing any pending one, and
// mails it. A failed dispatch leaves the stored code in place.
func (s *service) RequestOTP(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}

	code, err := s.generate()
	if err != nil {
		return err
	}
	rec := &domain.OTPRecord{
		Email:     email,
		Code:      code,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}

	unlock := s.locker.Lock(email)
	err = s.store.Put(ctx, rec)
	unlock()
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	if err := s.mailer.SendEmail(mailCtx, email, MailSubject, s.mailBody(code)); err != nil {
		slog.Error("failed to send otp email", "email", email, "err", err)
		return fmt.Errorf("send otp email: %w: %w", domain.ErrMailDispatch, err)
	}

	slog.Info("otp sent", "email", email, "expires_at", rec.ExpiresAt)
	slog.Debug("otp issued", "email", email, "code", code)
	return nil
}

// VerifyOTP checks code against the pending record for email. Matching and
// expired records are consumed; a mismatch keeps the record for a retry.
func (s *service) VerifyOTP(ctx context.Context, email, code string) (*Verification, error) {
	if email == "" || code == "" {
		return nil, fmt.Errorf("email and code are required: %w", domain.ErrBadRequest)
	}

	unlock := s.locker.Lock(email)
	defer unlock()

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no otp for %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}

	now := s.clock.Now()
	if rec.Expired(now) {
		if err := s.store.Delete(ctx, email); err != nil {
			return nil, fmt.Errorf("delete expired otp: %w", err)
		}
		return nil, fmt.Errorf("otp expired at %s: %w", rec.ExpiresAt.Format(time.RFC3339), domain.ErrExpired)
	}

	if rec.Code != code {
		return nil, fmt.Errorf("invalid otp: %w", domain.ErrUnauthorized)
	}

	if err := s.store.Delete(ctx, email); err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}

	v := &Verification{Email: email, VerifiedAt: now}
	if s.signer != nil {
		token, err := s.signer.Sign(email)
		if err != nil {
			slog.Warn("failed to sign verification token", "email", email, "err", err)
		} else {
			v.Token = token
		}
	}
	slog.Info("otp verified", "email", email)
	return v, nil
}

func (s *service) mailBody(code string) string {
	return fmt.Sprintf("Your OTP for wallet creation is: %s\n\nThis code will expire in %s.", code, humanDuration(s.ttl))
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
}
