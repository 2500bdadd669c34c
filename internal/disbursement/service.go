package disbursement

import (
	"context"
	"errors"

	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/audit"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
)

// Common errors
var (
	ErrNotApproved       = errors.New("application not approved")
	ErrMismatchedRecords = errors.New("application does not belong to this event")
)

// Store performs the value-transfer step: event custody down, applicant
// wallet up, application stamped Paid, all in one atomic operation.
type Store interface {
	// Disburse pays amount to the applicant and marks the application Paid.
	// With drawDown set (the default policy) it also debits the event's
	// remaining balance, failing with event.ErrInsufficientFunds when the
	// pool no longer covers the amount — the re-validation that compensates
	// for approvals not reserving funds. Returns ErrNotApproved if the
	// application is not in the Approved state.
	Disburse(ctx context.Context, eventAddr, appAddr keys.Address, applicant keys.Identity, amount int64, drawDown bool) (*application.Application, error)
}

// Service handles disbursement business logic
type Service struct {
	store   Store
	events  event.Store
	apps    application.Store
	reserve bool
	audit   *audit.Worker
}

// NewService creates a new disbursement service. reserve must match the
// application service's policy: under reservation the pool was already
// debited at approval time, so disbursement pays without drawing it down
// again.
func NewService(store Store, events event.Store, apps application.Store, reserve bool, auditWorker *audit.Worker) *Service {
	return &Service{
		store:   store,
		events:  events,
		apps:    apps,
		reserve: reserve,
		audit:   auditWorker,
	}
}

// Disburse drains an approved application from the event's custody. Any
// caller may trigger it; the guards are the application's status and the
// pool's balance, nothing else.
func (s *Service) Disburse(ctx context.Context, caller keys.Identity, req *DisburseRequest) (*application.Application, int64, error) {
	eventAddr, err := keys.ParseAddress(req.Event)
	if err != nil {
		return nil, 0, err
	}
	appAddr, err := keys.ParseAddress(req.Application)
	if err != nil {
		return nil, 0, err
	}

	ev, err := s.events.GetByAddress(ctx, eventAddr)
	if err != nil {
		return nil, 0, err
	}
	if ev == nil {
		return nil, 0, event.ErrEventNotFound
	}

	app, err := s.apps.GetByAddress(ctx, appAddr)
	if err != nil {
		return nil, 0, err
	}
	if app == nil {
		return nil, 0, application.ErrApplicationNotFound
	}
	if app.Event != eventAddr {
		return nil, 0, ErrMismatchedRecords
	}

	if app.Status != application.StatusApproved {
		return nil, 0, ErrNotApproved
	}
	if !s.reserve && app.ApprovedAmount > ev.RemainingAmount {
		return nil, 0, event.ErrInsufficientFunds
	}

	paid, err := s.store.Disburse(ctx, eventAddr, appAddr, app.Applicant, app.ApprovedAmount, !s.reserve)
	if err != nil {
		return nil, 0, err
	}

	s.record(audit.KindFundsDisbursed, map[string]string{
		"event":       eventAddr.String(),
		"application": appAddr.String(),
		"caller":      caller.String(),
	})

	return paid, app.ApprovedAmount, nil
}

func (s *Service) record(kind audit.Kind, data map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.NewEvent(kind, audit.WithData(data)))
}
