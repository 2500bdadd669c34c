package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/wallet"
)

func sampleEvent() *event.FundingEvent {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	creator := testIdentity(1)
	return &event.FundingEvent{
		Address:         event.DeriveAddress(creator, createdAt),
		Creator:         creator,
		Title:           "Community fund",
		TotalAmount:     1000,
		RemainingAmount: 1000,
		Deadline:        createdAt.Add(24 * time.Hour),
		MetadataRef:     "ipfs://QmEvent",
		Status:          event.StatusActive,
		CreatedAt:       createdAt,
	}
}

func TestRepositoryCreateDebitsThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ev := sampleEvent()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_accounts").
		WithArgs(ev.Creator.String(), ev.TotalAmount).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO funding_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := event.NewRepository(db)
	require.NoError(t, repo.Create(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateRollsBackOnUnfundedWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ev := sampleEvent()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_accounts").
		WithArgs(ev.Creator.String(), ev.TotalAmount).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := event.NewRepository(db)
	err = repo.Create(context.Background(), ev)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByAddressReturnsNilWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ev := sampleEvent()

	mock.ExpectQuery("SELECT (.+) FROM funding_events WHERE address").
		WithArgs(ev.Address.String()).
		WillReturnRows(sqlmock.NewRows([]string{"address"}))

	repo := event.NewRepository(db)
	got, err := repo.GetByAddress(context.Background(), ev.Address)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByAddressScansRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ev := sampleEvent()
	columns := []string{
		"address", "creator", "title", "total_amount", "remaining_amount",
		"deadline", "metadata_ref", "status", "application_count",
		"approved_count", "created_at",
	}

	mock.ExpectQuery("SELECT (.+) FROM funding_events WHERE address").
		WithArgs(ev.Address.String()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			ev.Address.String(), ev.Creator.String(), ev.Title,
			ev.TotalAmount, ev.RemainingAmount, ev.Deadline,
			ev.MetadataRef, string(ev.Status), 0, 0, ev.CreatedAt,
		))

	repo := event.NewRepository(db)
	got, err := repo.GetByAddress(context.Background(), ev.Address)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ev.Address, got.Address)
	assert.Equal(t, ev.Creator, got.Creator)
	assert.Equal(t, ev.TotalAmount, got.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
