package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
)

const applicationColumns = `address, event_address, applicant, requested_amount, approved_amount, metadata_ref, status, applied_at`

// Repository handles application persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new application repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending application and bumps the event's application
// counter in one transaction
func (r *Repository) Create(ctx context.Context, app *Application) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, insert,
		app.Address.String(),
		app.Event.String(),
		app.Applicant.String(),
		app.RequestedAmount,
		app.ApprovedAmount,
		app.MetadataRef,
		app.Status,
		app.AppliedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateApplication
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	bump := `UPDATE funding_events SET application_count = application_count + 1 WHERE address = $1`
	if _, err := tx.ExecContext(ctx, bump, app.Event.String()); err != nil {
		return fmt.Errorf("failed to bump application count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetByAddress retrieves an application by its address
func (r *Repository) GetByAddress(ctx context.Context, addr keys.Address) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE address = $1`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// ListByEvent retrieves all applications for an event, oldest first
func (r *Repository) ListByEvent(ctx context.Context, eventAddr keys.Address) ([]*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE event_address = $1
		ORDER BY applied_at
	`

	rows, err := r.db.QueryContext(ctx, query, eventAddr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// Approve moves a pending application to Approved and bumps the event's
// approved counter, optionally reserving the amount from the pool, in one
// transaction
func (r *Repository) Approve(ctx context.Context, appAddr, eventAddr keys.Address, amount int64, reserve bool) (*Application, error) {
	// A non-positive amount would make the balance guard below vacuous
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE applications
		SET status = $2, approved_amount = $3
		WHERE address = $1 AND status = $4
		RETURNING ` + applicationColumns

	app, err := scanApplication(tx.QueryRowContext(ctx, update, appAddr.String(), StatusApproved, amount, StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to approve application: %w", err)
	}

	if reserve {
		debit := `
			UPDATE funding_events
			SET approved_count = approved_count + 1, remaining_amount = remaining_amount - $2
			WHERE address = $1 AND remaining_amount >= $2
		`
		result, err := tx.ExecContext(ctx, debit, eventAddr.String(), amount)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve funds: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return nil, event.ErrInsufficientFunds
		}
	} else {
		bump := `UPDATE funding_events SET approved_count = approved_count + 1 WHERE address = $1`
		if _, err := tx.ExecContext(ctx, bump, eventAddr.String()); err != nil {
			return nil, fmt.Errorf("failed to bump approved count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return app, nil
}

// Reject moves a pending application to Rejected
func (r *Repository) Reject(ctx context.Context, appAddr keys.Address) (*Application, error) {
	update := `
		UPDATE applications
		SET status = $2
		WHERE address = $1 AND status = $3
		RETURNING ` + applicationColumns

	app, err := scanApplication(r.db.QueryRowContext(ctx, update, appAddr.String(), StatusRejected, StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to reject application: %w", err)
	}

	return app, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*Application, error) {
	app := &Application{}
	var addr, eventAddr, applicant string
	if err := row.Scan(
		&addr,
		&eventAddr,
		&applicant,
		&app.RequestedAmount,
		&app.ApprovedAmount,
		&app.MetadataRef,
		&app.Status,
		&app.AppliedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if app.Address, err = keys.ParseAddress(addr); err != nil {
		return nil, err
	}
	if app.Event, err = keys.ParseAddress(eventAddr); err != nil {
		return nil, err
	}
	if app.Applicant, err = keys.ParseIdentity(applicant); err != nil {
		return nil, err
	}

	return app, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
