package split

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/solamate/fundpool/internal/keys"
)

// Repository handles split data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new split repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const splitColumns = "address, creator, title, total_amount, member_count, amount_per_person, settled_count, status, metadata_ref, created_at"

const memberColumns = "address, split_address, member, amount_owed, paid, paid_at"

// CreateSplit inserts a new group split
func (r *Repository) CreateSplit(ctx context.Context, split *GroupSplit) error {
	query := `
		INSERT INTO group_splits (address, creator, title, total_amount, member_count, amount_per_person, settled_count, status, metadata_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		split.Address.String(),
		split.Creator.String(),
		split.Title,
		split.TotalAmount,
		split.MemberCount,
		split.AmountPerPerson,
		split.SettledCount,
		split.Status,
		split.MetadataRef,
		split.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSplit
		}
		return fmt.Errorf("failed to create split: %w", err)
	}

	return nil
}

// GetByAddress retrieves a split by its address
func (r *Repository) GetByAddress(ctx context.Context, addr keys.Address) (*GroupSplit, error) {
	query := `SELECT ` + splitColumns + ` FROM group_splits WHERE address = $1`

	split, err := scanSplit(r.db.QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	return split, nil
}

// ListByCreator retrieves all splits created by the given identity
func (r *Repository) ListByCreator(ctx context.Context, creator keys.Identity) ([]*GroupSplit, error) {
	query := `SELECT ` + splitColumns + ` FROM group_splits WHERE creator = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, creator.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	var splits []*GroupSplit
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}

	return splits, rows.Err()
}

// AddMember inserts a membership row, guarding on the split still being
// active inside the same transaction.
func (r *Repository) AddMember(ctx context.Context, member *SplitMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	guard := `SELECT status FROM group_splits WHERE address = $1 FOR UPDATE`
	var status Status
	if err := tx.QueryRowContext(ctx, guard, member.Split.String()).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return ErrSplitNotFound
		}
		return fmt.Errorf("failed to lock split: %w", err)
	}
	if status != StatusActive {
		return ErrSplitNotActive
	}

	insert := `
		INSERT INTO split_members (address, split_address, member, amount_owed, paid)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, insert,
		member.Address.String(),
		member.Split.String(),
		member.Member.String(),
		member.AmountOwed,
		member.Paid,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetMember retrieves a split member by its address
func (r *Repository) GetMember(ctx context.Context, addr keys.Address) (*SplitMember, error) {
	query := `SELECT ` + memberColumns + ` FROM split_members WHERE address = $1`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, addr.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all members of a split
func (r *Repository) ListMembers(ctx context.Context, split keys.Address) ([]*SplitMember, error) {
	query := `SELECT ` + memberColumns + ` FROM split_members WHERE split_address = $1 ORDER BY address`

	rows, err := r.db.QueryContext(ctx, query, split.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*SplitMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// MarkPaid flips the paid flag and bumps the split's settled count in one
// transaction. The split is locked and its status re-checked under the lock,
// so a close landing first wins. The CASE settles the split exactly when the
// last member pays.
func (r *Repository) MarkPaid(ctx context.Context, memberAddr, splitAddr keys.Address, paidAt time.Time) (*GroupSplit, *SplitMember, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	guard := `SELECT status FROM group_splits WHERE address = $1 FOR UPDATE`
	var status Status
	if err := tx.QueryRowContext(ctx, guard, splitAddr.String()).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrSplitNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock split: %w", err)
	}
	if status != StatusActive {
		return nil, nil, ErrSplitNotActive
	}

	flip := `
		UPDATE split_members
		SET paid = TRUE, paid_at = $2
		WHERE address = $1 AND paid = FALSE
		RETURNING ` + memberColumns + `
	`
	member, err := scanMember(tx.QueryRowContext(ctx, flip, memberAddr.String(), paidAt))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrAlreadyPaid
		}
		return nil, nil, fmt.Errorf("failed to mark member paid: %w", err)
	}

	settle := `
		UPDATE group_splits
		SET settled_count = settled_count + 1,
		    status = CASE WHEN settled_count + 1 >= member_count AND status = $2 THEN $3 ELSE status END
		WHERE address = $1
		RETURNING ` + splitColumns + `
	`
	split, err := scanSplit(tx.QueryRowContext(ctx, settle, splitAddr.String(), StatusActive, StatusSettled))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrSplitNotFound
		}
		return nil, nil, fmt.Errorf("failed to update split: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit: %w", err)
	}

	return split, member, nil
}

// CloseSplit stamps the split Closed from any state
func (r *Repository) CloseSplit(ctx context.Context, addr keys.Address) (*GroupSplit, error) {
	query := `
		UPDATE group_splits
		SET status = $2
		WHERE address = $1
		RETURNING ` + splitColumns + `
	`

	split, err := scanSplit(r.db.QueryRowContext(ctx, query, addr.String(), StatusClosed))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSplitNotFound
		}
		return nil, fmt.Errorf("failed to close split: %w", err)
	}

	return split, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSplit(row rowScanner) (*GroupSplit, error) {
	split := &GroupSplit{}
	var addr, creator string
	err := row.Scan(
		&addr,
		&creator,
		&split.Title,
		&split.TotalAmount,
		&split.MemberCount,
		&split.AmountPerPerson,
		&split.SettledCount,
		&split.Status,
		&split.MetadataRef,
		&split.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if split.Address, err = keys.ParseAddress(addr); err != nil {
		return nil, err
	}
	if split.Creator, err = keys.ParseIdentity(creator); err != nil {
		return nil, err
	}

	return split, nil
}

func scanMember(row rowScanner) (*SplitMember, error) {
	member := &SplitMember{}
	var addr, splitAddr, memberID string
	var paidAt sql.NullTime
	err := row.Scan(
		&addr,
		&splitAddr,
		&memberID,
		&member.AmountOwed,
		&member.Paid,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}

	if member.Address, err = keys.ParseAddress(addr); err != nil {
		return nil, err
	}
	if member.Split, err = keys.ParseAddress(splitAddr); err != nil {
		return nil, err
	}
	if member.Member, err = keys.ParseIdentity(memberID); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		member.PaidAt = &t
	}

	return member, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
