package disbursement_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/disbursement"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/internal/memstore"
)

func testIdentity(b byte) keys.Identity {
	var id keys.Identity
	id[0] = b
	return id
}

type fixture struct {
	ms      *memstore.Store
	events  *event.Service
	apps    *application.Service
	disb    *disbursement.Service
	creator keys.Identity
	event   *event.FundingEvent
}

// newFixture stands up an active event holding the given pool.
func newFixture(t *testing.T, pool int64, reserve bool) *fixture {
	t.Helper()

	ms := memstore.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	events := event.NewService(ms.Events(), nil, event.WithNow(clock))
	apps := application.NewService(ms.Applications(), ms.Events(), reserve, nil, application.WithNow(clock))

	disb := disbursement.NewService(ms.Disbursements(), ms.Events(), ms.Applications(), reserve, nil)

	creator := testIdentity(1)
	_, err := ms.Wallets().Deposit(context.Background(), creator, pool)
	require.NoError(t, err)

	ev, err := events.Create(context.Background(), creator, &event.CreateEventRequest{
		Title:       "Community fund",
		Amount:      pool,
		Deadline:    now.Add(24 * time.Hour).Unix(),
		MetadataRef: "ipfs://QmEvent",
	})
	require.NoError(t, err)

	return &fixture{ms: ms, events: events, apps: apps, disb: disb, creator: creator, event: ev}
}

// approve runs an applicant through apply and approve for the given amount.
func (f *fixture) approve(t *testing.T, applicant keys.Identity, amount int64) *application.Application {
	t.Helper()

	app, err := f.apps.Apply(context.Background(), applicant, &application.ApplyRequest{
		Event:           f.event.Address.String(),
		RequestedAmount: amount,
		MetadataRef:     "ipfs://QmApp",
	})
	require.NoError(t, err)

	approved, err := f.apps.Approve(context.Background(), f.creator, app.Address, &application.ApproveRequest{ApprovedAmount: amount})
	require.NoError(t, err)
	return approved
}

func (f *fixture) disburseRequest(app *application.Application) *disbursement.DisburseRequest {
	return &disbursement.DisburseRequest{
		Event:       f.event.Address.String(),
		Application: app.Address.String(),
	}
}

func TestDisbursePaysApplicantFromPool(t *testing.T) {
	f := newFixture(t, 100, false)
	applicant := testIdentity(2)
	app := f.approve(t, applicant, 60)

	// Any caller may trigger disbursement, not just the creator
	paid, amount, err := f.disb.Disburse(context.Background(), testIdentity(9), f.disburseRequest(app))
	require.NoError(t, err)

	assert.Equal(t, int64(60), amount)
	assert.Equal(t, application.StatusPaid, paid.Status)

	ev, err := f.events.GetByAddress(context.Background(), f.event.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(40), ev.RemainingAmount)

	account, err := f.ms.Wallets().GetByIdentity(context.Background(), applicant)
	require.NoError(t, err)
	assert.Equal(t, int64(60), account.Balance)
}

func TestDisburseRequiresApprovedStatus(t *testing.T) {
	f := newFixture(t, 100, false)

	app, err := f.apps.Apply(context.Background(), testIdentity(2), &application.ApplyRequest{
		Event:           f.event.Address.String(),
		RequestedAmount: 50,
		MetadataRef:     "ipfs://QmApp",
	})
	require.NoError(t, err)

	_, _, err = f.disb.Disburse(context.Background(), testIdentity(2), f.disburseRequest(app))
	assert.ErrorIs(t, err, disbursement.ErrNotApproved)
}

func TestDisburseIsOneShot(t *testing.T) {
	f := newFixture(t, 100, false)
	app := f.approve(t, testIdentity(2), 50)

	_, _, err := f.disb.Disburse(context.Background(), testIdentity(2), f.disburseRequest(app))
	require.NoError(t, err)

	_, _, err = f.disb.Disburse(context.Background(), testIdentity(2), f.disburseRequest(app))
	assert.ErrorIs(t, err, disbursement.ErrNotApproved)
}

func TestDisburseRejectsForeignApplication(t *testing.T) {
	f := newFixture(t, 100, false)
	app := f.approve(t, testIdentity(2), 50)

	req := f.disburseRequest(app)
	req.Event = keys.Derive("other", []byte("event")).String()
	_, _, err := f.disb.Disburse(context.Background(), testIdentity(2), req)
	assert.ErrorIs(t, err, event.ErrEventNotFound)

	// A real event that the application does not belong to
	other := testIdentity(7)
	_, err = f.ms.Wallets().Deposit(context.Background(), other, 10)
	require.NoError(t, err)
	otherEvent, err := f.events.Create(context.Background(), other, &event.CreateEventRequest{
		Title:       "Other fund",
		Amount:      10,
		Deadline:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).Unix(),
		MetadataRef: "ipfs://QmOther",
	})
	require.NoError(t, err)

	req = f.disburseRequest(app)
	req.Event = otherEvent.Address.String()
	_, _, err = f.disb.Disburse(context.Background(), testIdentity(2), req)
	assert.ErrorIs(t, err, disbursement.ErrMismatchedRecords)
}

// Two approvals may together commit more than the pool holds; the first
// disbursement drains the pool and the second fails the re-validation.
func TestOverCommittedApprovalsLoseAtDisbursement(t *testing.T) {
	f := newFixture(t, 100, false)

	first := f.approve(t, testIdentity(2), 80)
	second := f.approve(t, testIdentity(3), 80)

	_, amount, err := f.disb.Disburse(context.Background(), testIdentity(2), f.disburseRequest(first))
	require.NoError(t, err)
	assert.Equal(t, int64(80), amount)

	_, _, err = f.disb.Disburse(context.Background(), testIdentity(3), f.disburseRequest(second))
	assert.ErrorIs(t, err, event.ErrInsufficientFunds)

	// The losing application keeps its approval
	app, err := f.apps.GetByAddress(context.Background(), second.Address)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, app.Status)

	ev, err := f.events.GetByAddress(context.Background(), f.event.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(20), ev.RemainingAmount)
}

// Under the reservation policy the pool was debited at approval time, so
// disbursement pays without drawing it down again.
func TestDisburseSkipsDrawDownUnderReservation(t *testing.T) {
	f := newFixture(t, 100, true)
	applicant := testIdentity(2)
	app := f.approve(t, applicant, 80)

	ev, err := f.events.GetByAddress(context.Background(), f.event.Address)
	require.NoError(t, err)
	require.Equal(t, int64(20), ev.RemainingAmount)

	_, amount, err := f.disb.Disburse(context.Background(), applicant, f.disburseRequest(app))
	require.NoError(t, err)
	assert.Equal(t, int64(80), amount)

	ev, err = f.events.GetByAddress(context.Background(), f.event.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(20), ev.RemainingAmount)

	account, err := f.ms.Wallets().GetByIdentity(context.Background(), applicant)
	require.NoError(t, err)
	assert.Equal(t, int64(80), account.Balance)
}

// Value entering the event equals value leaving it: disbursed amounts plus
// the close sweep add back up to the original deposit.
func TestPoolValueIsConserved(t *testing.T) {
	f := newFixture(t, 100, false)
	applicant := testIdentity(2)
	app := f.approve(t, applicant, 60)

	_, disbursed, err := f.disb.Disburse(context.Background(), applicant, f.disburseRequest(app))
	require.NoError(t, err)

	_, swept, err := f.events.Close(context.Background(), f.creator, f.event.Address)
	require.NoError(t, err)

	assert.Equal(t, int64(100), disbursed+swept)

	creatorAccount, err := f.ms.Wallets().GetByIdentity(context.Background(), f.creator)
	require.NoError(t, err)
	applicantAccount, err := f.ms.Wallets().GetByIdentity(context.Background(), applicant)
	require.NoError(t, err)
	assert.Equal(t, int64(100), creatorAccount.Balance+applicantAccount.Balance)
}
