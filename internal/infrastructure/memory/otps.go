// Package memory holds process-lifetime stores. Nothing here survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-wallet-otp/internal/domain"
)

// OTPStore keeps pending OTP records in a map keyed by email.
type OTPStore struct {
	mu      sync.RWMutex
	records map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]domain.OTPRecord)}
}

func (s *OTPStore) Get(_ context.Context, email string) (*domain.OTPRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[email]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *OTPStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	s.records[rec.Email] = *rec
	s.mu.Unlock()
	return nil
}

func (s *OTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.records, email)
	s.mu.Unlock()
	return nil
}

// Len returns the number of pending records.
func (s *OTPStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
