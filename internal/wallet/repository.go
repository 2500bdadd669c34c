package wallet

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solamate/fundpool/internal/keys"
)

// Repository handles wallet account persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new wallet repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByIdentity retrieves an account by identity
func (r *Repository) GetByIdentity(ctx context.Context, identity keys.Identity) (*Account, error) {
	query := `
		SELECT identity, balance, created_at
		FROM wallet_accounts
		WHERE identity = $1
	`

	account := &Account{}
	var id string
	err := r.db.QueryRowContext(ctx, query, identity.String()).Scan(
		&id,
		&account.Balance,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet account: %w", err)
	}

	account.Identity, err = keys.ParseIdentity(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored identity: %w", err)
	}

	return account, nil
}

// Deposit credits an account, creating it if absent
func (r *Repository) Deposit(ctx context.Context, identity keys.Identity, amount int64) (*Account, error) {
	query := `
		INSERT INTO wallet_accounts (identity, balance)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET balance = wallet_accounts.balance + $2
		RETURNING balance, created_at
	`

	account := &Account{Identity: identity}
	err := r.db.QueryRowContext(ctx, query, identity.String(), amount).Scan(
		&account.Balance,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	return account, nil
}
