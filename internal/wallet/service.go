package wallet

import (
	"context"
	"errors"

	"github.com/solamate/fundpool/internal/keys"
)

// Common errors
var (
	ErrAccountNotFound     = errors.New("wallet account not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// Store handles wallet account persistence
type Store interface {
	GetByIdentity(ctx context.Context, identity keys.Identity) (*Account, error)
	Deposit(ctx context.Context, identity keys.Identity, amount int64) (*Account, error)
}

// Service handles wallet business logic
type Service struct {
	store Store
}

// NewService creates a new wallet service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get retrieves an account by identity
func (s *Service) Get(ctx context.Context, identity keys.Identity) (*Account, error) {
	account, err := s.store.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// Deposit credits an account, creating it on first use. This is the dev
// faucet standing in for value arriving from outside the system.
func (s *Service) Deposit(ctx context.Context, identity keys.Identity, amount int64) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Deposit(ctx, identity, amount)
}
