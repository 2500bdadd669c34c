package application

import (
	"context"
	"errors"
	"time"

	"github.com/solamate/fundpool/internal/audit"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
)

// Common errors
var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidMetadata      = errors.New("metadata reference must be between 1 and 64 bytes")
	ErrEventNotActive       = errors.New("event is not active")
	ErrEventExpired         = errors.New("event has expired")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrDuplicateApplication = errors.New("an application for this event and applicant already exists")
	ErrAlreadyProcessed     = errors.New("application already processed")
	ErrNotAuthorized        = errors.New("only the event creator can perform this action")
)

// Store handles application persistence. Each mutation is atomic with the
// counter it maintains on the owning event record.
type Store interface {
	// Create stores a pending application and increments the event's
	// application_count in the same operation. Returns
	// ErrDuplicateApplication when the (event, applicant) address is
	// already occupied.
	Create(ctx context.Context, app *Application) error

	GetByAddress(ctx context.Context, addr keys.Address) (*Application, error)

	ListByEvent(ctx context.Context, eventAddr keys.Address) ([]*Application, error)

	// Approve moves a pending application to Approved with the given amount
	// and increments the event's approved_count. When reserve is set it also
	// debits the event's remaining balance, failing with
	// event.ErrInsufficientFunds if the pool cannot cover the amount.
	// Returns ErrAlreadyProcessed if the application is no longer pending.
	Approve(ctx context.Context, appAddr, eventAddr keys.Address, amount int64, reserve bool) (*Application, error)

	// Reject moves a pending application to Rejected. Returns
	// ErrAlreadyProcessed if the application is no longer pending.
	Reject(ctx context.Context, appAddr keys.Address) (*Application, error)
}

// Service handles application business logic
type Service struct {
	store   Store
	events  event.Store
	reserve bool
	audit   *audit.Worker
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNow overrides the service clock. Tests use it to pin the deadline
// check.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new application service. When reserve is true the
// service runs the hardened commitment policy: approvals debit the pool
// immediately instead of leaving the balance untouched until disbursement.
func NewService(store Store, events event.Store, reserve bool, auditWorker *audit.Worker, opts ...Option) *Service {
	s := &Service{
		store:   store,
		events:  events,
		reserve: reserve,
		audit:   auditWorker,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply submits a pending application against an active, unexpired event.
// The requested amount is not checked against the pool here; that check
// happens at approval time.
func (s *Service) Apply(ctx context.Context, applicant keys.Identity, req *ApplyRequest) (*Application, error) {
	if req.RequestedAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.MetadataRef) == 0 || len(req.MetadataRef) > event.MaxMetadataLen {
		return nil, ErrInvalidMetadata
	}

	eventAddr, err := keys.ParseAddress(req.Event)
	if err != nil {
		return nil, err
	}

	ev, err := s.events.GetByAddress(ctx, eventAddr)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, event.ErrEventNotFound
	}
	if ev.Status != event.StatusActive {
		return nil, ErrEventNotActive
	}
	if !s.now().Before(ev.Deadline) {
		return nil, ErrEventExpired
	}

	app := &Application{
		Address:         DeriveAddress(eventAddr, applicant),
		Event:           eventAddr,
		Applicant:       applicant,
		RequestedAmount: req.RequestedAmount,
		MetadataRef:     req.MetadataRef,
		Status:          StatusPending,
		AppliedAt:       s.now(),
	}

	if err := s.store.Create(ctx, app); err != nil {
		return nil, err
	}

	s.record(audit.KindApplicationSubmitted, map[string]string{
		"address":   app.Address.String(),
		"event":     eventAddr.String(),
		"applicant": applicant.String(),
	})

	return app, nil
}

// GetByAddress retrieves an application by its address
func (s *Service) GetByAddress(ctx context.Context, addr keys.Address) (*Application, error) {
	app, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

// ListByEvent retrieves all applications submitted against an event
func (s *Service) ListByEvent(ctx context.Context, eventAddr keys.Address) ([]*Application, error) {
	ev, err := s.events.GetByAddress(ctx, eventAddr)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, event.ErrEventNotFound
	}

	return s.store.ListByEvent(ctx, eventAddr)
}

// Approve grants an application the given amount. The amount is validated
// against the event's current remaining balance; in the default policy the
// balance is not debited here, so concurrent approvals can together commit
// more than the pool holds and the loser surfaces at disbursement time.
func (s *Service) Approve(ctx context.Context, caller keys.Identity, addr keys.Address, req *ApproveRequest) (*Application, error) {
	// Amounts are signed here; a non-positive approval would pass the
	// balance guard and corrupt the pool at disbursement time.
	if req.ApprovedAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	app, ev, err := s.loadForDecision(ctx, caller, addr)
	if err != nil {
		return nil, err
	}
	if req.ApprovedAmount > ev.RemainingAmount {
		return nil, event.ErrInsufficientFunds
	}

	approved, err := s.store.Approve(ctx, app.Address, ev.Address, req.ApprovedAmount, s.reserve)
	if err != nil {
		return nil, err
	}

	s.record(audit.KindApplicationApproved, map[string]string{
		"address": addr.String(),
		"event":   ev.Address.String(),
	})

	return approved, nil
}

// Reject declines a pending application. The (event, applicant) address
// stays occupied, so the applicant cannot re-apply.
func (s *Service) Reject(ctx context.Context, caller keys.Identity, addr keys.Address) (*Application, error) {
	app, ev, err := s.loadForDecision(ctx, caller, addr)
	if err != nil {
		return nil, err
	}

	rejected, err := s.store.Reject(ctx, app.Address)
	if err != nil {
		return nil, err
	}

	s.record(audit.KindApplicationRejected, map[string]string{
		"address": addr.String(),
		"event":   ev.Address.String(),
	})

	return rejected, nil
}

// loadForDecision loads an application and its event and runs the guards
// shared by Approve and Reject: the caller must be the event creator and the
// application must still be pending.
func (s *Service) loadForDecision(ctx context.Context, caller keys.Identity, addr keys.Address) (*Application, *event.FundingEvent, error) {
	app, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	if app == nil {
		return nil, nil, ErrApplicationNotFound
	}

	ev, err := s.events.GetByAddress(ctx, app.Event)
	if err != nil {
		return nil, nil, err
	}
	if ev == nil {
		return nil, nil, event.ErrEventNotFound
	}

	if caller != ev.Creator {
		return nil, nil, ErrNotAuthorized
	}
	if app.Status != StatusPending {
		return nil, nil, ErrAlreadyProcessed
	}

	return app, ev, nil
}

func (s *Service) record(kind audit.Kind, data map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.NewEvent(kind, audit.WithData(data)))
}
