package event

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/internal/wallet"
)

const eventColumns = `address, creator, title, total_amount, remaining_amount, deadline, metadata_ref, status, application_count, approved_count, created_at`

// Repository handles funding event persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new event repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create debits the creator's wallet and inserts the event record in one
// transaction
func (r *Repository) Create(ctx context.Context, ev *FundingEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	debit := `
		UPDATE wallet_accounts
		SET balance = balance - $2
		WHERE identity = $1 AND balance >= $2
	`
	result, err := tx.ExecContext(ctx, debit, ev.Creator.String(), ev.TotalAmount)
	if err != nil {
		return fmt.Errorf("failed to debit creator: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return wallet.ErrInsufficientBalance
	}

	insert := `
		INSERT INTO funding_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insert,
		ev.Address.String(),
		ev.Creator.String(),
		ev.Title,
		ev.TotalAmount,
		ev.RemainingAmount,
		ev.Deadline,
		ev.MetadataRef,
		ev.Status,
		ev.ApplicationCount,
		ev.ApprovedCount,
		ev.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create funding event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetByAddress retrieves a funding event by its address
func (r *Repository) GetByAddress(ctx context.Context, addr keys.Address) (*FundingEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM funding_events WHERE address = $1`

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get funding event: %w", err)
	}

	return ev, nil
}

// List retrieves funding events with pagination, newest first
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*FundingEvent, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM funding_events`
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count funding events: %w", err)
	}

	query := `
		SELECT ` + eventColumns + `
		FROM funding_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list funding events: %w", err)
	}
	defer rows.Close()

	var events []*FundingEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan funding event: %w", err)
		}
		events = append(events, ev)
	}

	return events, total, nil
}

// Close sweeps the remaining balance back to the creator and marks the event
// closed, in one transaction. The swept amount is the balance read under the
// row lock, so it reflects any disbursement that landed before the sweep.
func (r *Repository) Close(ctx context.Context, addr keys.Address) (*FundingEvent, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var creator string
	var remaining int64
	lock := `SELECT creator, remaining_amount FROM funding_events WHERE address = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, addr.String()).Scan(&creator, &remaining); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to lock funding event: %w", err)
	}

	if remaining > 0 {
		credit := `
			INSERT INTO wallet_accounts (identity, balance)
			VALUES ($1, $2)
			ON CONFLICT (identity) DO UPDATE SET balance = wallet_accounts.balance + $2
		`
		if _, err := tx.ExecContext(ctx, credit, creator, remaining); err != nil {
			return nil, 0, fmt.Errorf("failed to return remainder to creator: %w", err)
		}
	}

	update := `
		UPDATE funding_events
		SET remaining_amount = 0, status = $2
		WHERE address = $1
		RETURNING ` + eventColumns

	ev, err := scanEvent(tx.QueryRowContext(ctx, update, addr.String(), StatusClosed))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to close funding event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit: %w", err)
	}

	return ev, remaining, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*FundingEvent, error) {
	ev := &FundingEvent{}
	var addr, creator string
	if err := row.Scan(
		&addr,
		&creator,
		&ev.Title,
		&ev.TotalAmount,
		&ev.RemainingAmount,
		&ev.Deadline,
		&ev.MetadataRef,
		&ev.Status,
		&ev.ApplicationCount,
		&ev.ApprovedCount,
		&ev.CreatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if ev.Address, err = keys.ParseAddress(addr); err != nil {
		return nil, err
	}
	if ev.Creator, err = keys.ParseIdentity(creator); err != nil {
		return nil, err
	}

	return ev, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
