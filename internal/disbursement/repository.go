package disbursement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
)

// Repository performs the disbursement transaction
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new disbursement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Disburse moves the approved amount from the event's custody to the
// applicant's wallet and stamps the application Paid, in one transaction.
// The conditional updates re-run the status and balance guards, so a stale
// snapshot loses here instead of corrupting the pool.
func (r *Repository) Disburse(ctx context.Context, eventAddr, appAddr keys.Address, applicant keys.Identity, amount int64, drawDown bool) (*application.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if drawDown {
		debit := `
			UPDATE funding_events
			SET remaining_amount = remaining_amount - $2
			WHERE address = $1 AND remaining_amount >= $2
		`
		result, err := tx.ExecContext(ctx, debit, eventAddr.String(), amount)
		if err != nil {
			return nil, fmt.Errorf("failed to draw down event custody: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return nil, event.ErrInsufficientFunds
		}
	}

	credit := `
		INSERT INTO wallet_accounts (identity, balance)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET balance = wallet_accounts.balance + $2
	`
	if _, err := tx.ExecContext(ctx, credit, applicant.String(), amount); err != nil {
		return nil, fmt.Errorf("failed to credit applicant: %w", err)
	}

	update := `
		UPDATE applications
		SET status = $2
		WHERE address = $1 AND status = $3
		RETURNING address, event_address, applicant, requested_amount, approved_amount, metadata_ref, status, applied_at
	`

	app := &application.Application{}
	var addr, evAddr, appl string
	err = tx.QueryRowContext(ctx, update, appAddr.String(), application.StatusPaid, application.StatusApproved).Scan(
		&addr,
		&evAddr,
		&appl,
		&app.RequestedAmount,
		&app.ApprovedAmount,
		&app.MetadataRef,
		&app.Status,
		&app.AppliedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotApproved
		}
		return nil, fmt.Errorf("failed to mark application paid: %w", err)
	}

	if app.Address, err = keys.ParseAddress(addr); err != nil {
		return nil, err
	}
	if app.Event, err = keys.ParseAddress(evAddr); err != nil {
		return nil, err
	}
	if app.Applicant, err = keys.ParseIdentity(appl); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return app, nil
}
