package event

import (
	"context"
	"errors"
	"time"

	"github.com/solamate/fundpool/internal/audit"
	"github.com/solamate/fundpool/internal/keys"
)

// Common errors
var (
	ErrInvalidTitle    = errors.New("title must be between 1 and 64 bytes")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidMetadata = errors.New("metadata reference must be between 1 and 64 bytes")
	ErrEventNotFound   = errors.New("funding event not found")
	ErrDuplicateEvent  = errors.New("a funding event already exists at this address")
	ErrNotAuthorized   = errors.New("only the event creator can perform this action")

	// ErrInsufficientFunds is the conservation error for the event's pool.
	// It is shared with the application and disbursement packages, which
	// validate commitments against the same remaining balance.
	ErrInsufficientFunds = errors.New("insufficient funds in event")
)

// Store handles funding event persistence. Create and Close are single
// atomic operations: the value transfer and the record mutation either both
// happen or neither does.
type Store interface {
	// Create debits the creator's wallet by ev.TotalAmount and stores the
	// record at its derived address, all-or-nothing. Returns
	// wallet.ErrInsufficientBalance when the creator cannot cover the
	// deposit and ErrDuplicateEvent when the address is already occupied.
	Create(ctx context.Context, ev *FundingEvent) error

	GetByAddress(ctx context.Context, addr keys.Address) (*FundingEvent, error)

	List(ctx context.Context, limit, offset int) ([]*FundingEvent, int, error)

	// Close sweeps the whole remaining balance back to the creator's wallet,
	// zeroes it and flips the status. It reports the amount it actually
	// transferred, read under the same transaction as the sweep. Closing an
	// event whose balance is already zero transfers nothing.
	Close(ctx context.Context, addr keys.Address) (*FundingEvent, int64, error)
}

// Service handles funding event business logic
type Service struct {
	store Store
	audit *audit.Worker
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNow overrides the service clock. Tests use it to pin creation times
// and the deadline check.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new event service
func NewService(store Store, auditWorker *audit.Worker, opts ...Option) *Service {
	s := &Service{
		store: store,
		audit: auditWorker,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a new funding event. The deposit of the full amount into the
// record's custody happens atomically with record creation.
func (s *Service) Create(ctx context.Context, creator keys.Identity, req *CreateEventRequest) (*FundingEvent, error) {
	if len(req.Title) == 0 || len(req.Title) > MaxTitleLen {
		return nil, ErrInvalidTitle
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.MetadataRef) == 0 || len(req.MetadataRef) > MaxMetadataLen {
		return nil, ErrInvalidMetadata
	}

	createdAt := s.now().Truncate(time.Second)
	ev := &FundingEvent{
		Address:         DeriveAddress(creator, createdAt),
		Creator:         creator,
		Title:           req.Title,
		TotalAmount:     req.Amount,
		RemainingAmount: req.Amount,
		Deadline:        time.Unix(req.Deadline, 0),
		MetadataRef:     req.MetadataRef,
		Status:          StatusActive,
		CreatedAt:       createdAt,
	}

	if err := s.store.Create(ctx, ev); err != nil {
		return nil, err
	}

	s.record(audit.KindEventCreated, map[string]string{
		"address": ev.Address.String(),
		"creator": ev.Creator.String(),
	})

	return ev, nil
}

// GetByAddress retrieves a funding event by its address
func (s *Service) GetByAddress(ctx context.Context, addr keys.Address) (*FundingEvent, error) {
	ev, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	return ev, nil
}

// List retrieves funding events with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*FundingEvent, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.List(ctx, perPage, offset)
}

// Close returns any undisbursed remainder to the creator and marks the event
// closed. It is callable at any status; a second close finds a zero balance
// and transfers nothing.
func (s *Service) Close(ctx context.Context, caller keys.Identity, addr keys.Address) (*FundingEvent, int64, error) {
	ev, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		return nil, 0, err
	}
	if ev == nil {
		return nil, 0, ErrEventNotFound
	}
	if caller != ev.Creator {
		return nil, 0, ErrNotAuthorized
	}

	closed, swept, err := s.store.Close(ctx, addr)
	if err != nil {
		return nil, 0, err
	}

	s.record(audit.KindEventClosed, map[string]string{
		"address": addr.String(),
		"creator": caller.String(),
	})

	return closed, swept, nil
}

func (s *Service) record(kind audit.Kind, data map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.NewEvent(kind, audit.WithData(data)))
}
