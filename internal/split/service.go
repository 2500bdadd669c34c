package split

import (
	"context"
	"errors"
	"time"

	"github.com/solamate/fundpool/internal/audit"
	"github.com/solamate/fundpool/internal/keys"
)

// Common errors
var (
	ErrInvalidTitle       = errors.New("title must be 1-64 characters")
	ErrInvalidAmount      = errors.New("total amount must be positive")
	ErrInvalidMemberCount = errors.New("member count must be between 1 and 20")
	ErrInvalidMetadata    = errors.New("metadata reference must be 1-64 characters")
	ErrSplitNotFound      = errors.New("split not found")
	ErrMemberNotFound     = errors.New("split member not found")
	ErrDuplicateSplit     = errors.New("split already exists")
	ErrDuplicateMember    = errors.New("member already added to this split")
	ErrSplitNotActive     = errors.New("split is not active")
	ErrAlreadyPaid        = errors.New("member has already paid")
	ErrNotAuthorized      = errors.New("caller is not authorized for this split")
)

// Store defines the interface for split data access
type Store interface {
	CreateSplit(ctx context.Context, split *GroupSplit) error
	GetByAddress(ctx context.Context, addr keys.Address) (*GroupSplit, error)
	ListByCreator(ctx context.Context, creator keys.Identity) ([]*GroupSplit, error)

	// AddMember inserts the membership row. Returns ErrSplitNotActive if the
	// split left the Active state, ErrDuplicateMember on a repeated member.
	AddMember(ctx context.Context, member *SplitMember) error
	GetMember(ctx context.Context, addr keys.Address) (*SplitMember, error)
	ListMembers(ctx context.Context, split keys.Address) ([]*SplitMember, error)

	// MarkPaid flips the member's paid flag, bumps the split's settled count
	// and settles the split once every member has paid. The split's Active
	// status is re-checked inside the same operation (ErrSplitNotActive), so
	// a concurrent close wins. Returns the updated pair. ErrAlreadyPaid if
	// the flag was already set.
	MarkPaid(ctx context.Context, memberAddr, splitAddr keys.Address, paidAt time.Time) (*GroupSplit, *SplitMember, error)

	// CloseSplit stamps the split Closed regardless of its current state.
	CloseSplit(ctx context.Context, addr keys.Address) (*GroupSplit, error)
}

// Service handles split business logic
type Service struct {
	store Store
	audit *audit.Worker
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNow overrides the service clock. Tests use it to pin creation times.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new split service
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

// Create records a new group split. The split holds no funds; each member's
// share is the floor of total over count, so up to count-1 units of the
// total are never owed by anyone.
func (s *Service) Create(ctx context.Context, caller keys.Identity, req *CreateSplitRequest) (*GroupSplit, error) {
	if len(req.Title) == 0 || len(req.Title) > MaxTitleLen {
		return nil, ErrInvalidTitle
	}
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.MemberCount < MinMemberCount || req.MemberCount > MaxMemberCount {
		return nil, ErrInvalidMemberCount
	}
	if len(req.MetadataRef) == 0 || len(req.MetadataRef) > MaxMetadataLen {
		return nil, ErrInvalidMetadata
	}

	createdAt := s.now().Truncate(time.Second)
	split := &GroupSplit{
		Address:         DeriveSplitAddress(caller, createdAt),
		Creator:         caller,
		Title:           req.Title,
		TotalAmount:     req.TotalAmount,
		MemberCount:     req.MemberCount,
		AmountPerPerson: req.TotalAmount / int64(req.MemberCount),
		SettledCount:    0,
		Status:          StatusActive,
		MetadataRef:     req.MetadataRef,
		CreatedAt:       createdAt,
	}

	if err := s.store.CreateSplit(ctx, split); err != nil {
		return nil, err
	}

	s.record(audit.KindSplitCreated, map[string]string{
		"split":   split.Address.String(),
		"creator": caller.String(),
	})

	return split, nil
}

// Get retrieves a split by address
func (s *Service) Get(ctx context.Context, addr keys.Address) (*GroupSplit, error) {
	split, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, ErrSplitNotFound
	}
	return split, nil
}

// ListByCreator retrieves all splits created by the given identity
func (s *Service) ListByCreator(ctx context.Context, creator keys.Identity) ([]*GroupSplit, error) {
	return s.store.ListByCreator(ctx, creator)
}

// AddMember enrolls an identity into an active split. Creator only. Each
// member owes the fixed per-person share computed at creation.
func (s *Service) AddMember(ctx context.Context, caller keys.Identity, splitAddr keys.Address, req *AddMemberRequest) (*SplitMember, error) {
	memberID, err := keys.ParseIdentity(req.Member)
	if err != nil {
		return nil, err
	}

	split, err := s.store.GetByAddress(ctx, splitAddr)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, ErrSplitNotFound
	}
	if split.Creator != caller {
		return nil, ErrNotAuthorized
	}
	if split.Status != StatusActive {
		return nil, ErrSplitNotActive
	}

	member := &SplitMember{
		Address:    DeriveMemberAddress(splitAddr, memberID),
		Split:      splitAddr,
		Member:     memberID,
		AmountOwed: split.AmountPerPerson,
		Paid:       false,
	}

	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.record(audit.KindMemberAdded, map[string]string{
		"split":  splitAddr.String(),
		"member": memberID.String(),
	})

	return member, nil
}

// ListMembers retrieves the members of a split
func (s *Service) ListMembers(ctx context.Context, splitAddr keys.Address) ([]*SplitMember, error) {
	split, err := s.store.GetByAddress(ctx, splitAddr)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, ErrSplitNotFound
	}
	return s.store.ListMembers(ctx, splitAddr)
}

// MarkPaid acknowledges a member's out-of-band payment. The member may mark
// themselves, or the creator may mark on their behalf. When the last member
// pays, the split flips to Settled on its own; this is the only automatic
// state transition in the system.
func (s *Service) MarkPaid(ctx context.Context, caller keys.Identity, splitAddr, memberAddr keys.Address) (*GroupSplit, *SplitMember, error) {
	split, err := s.store.GetByAddress(ctx, splitAddr)
	if err != nil {
		return nil, nil, err
	}
	if split == nil {
		return nil, nil, ErrSplitNotFound
	}
	if split.Status != StatusActive {
		return nil, nil, ErrSplitNotActive
	}

	member, err := s.store.GetMember(ctx, memberAddr)
	if err != nil {
		return nil, nil, err
	}
	if member == nil || member.Split != splitAddr {
		return nil, nil, ErrMemberNotFound
	}
	if member.Paid {
		return nil, nil, ErrAlreadyPaid
	}
	if caller != member.Member && caller != split.Creator {
		return nil, nil, ErrNotAuthorized
	}

	updatedSplit, updatedMember, err := s.store.MarkPaid(ctx, memberAddr, splitAddr, s.now().Truncate(time.Second))
	if err != nil {
		return nil, nil, err
	}

	s.record(audit.KindMemberPaid, map[string]string{
		"split":  splitAddr.String(),
		"member": member.Member.String(),
		"status": string(updatedSplit.Status),
	})

	return updatedSplit, updatedMember, nil
}

// Close archives a split. Creator only. There is no settlement requirement:
// the split holds no funds, so closing it forfeits nothing and works from
// any state, including Settled.
func (s *Service) Close(ctx context.Context, caller keys.Identity, splitAddr keys.Address) (*GroupSplit, error) {
	split, err := s.store.GetByAddress(ctx, splitAddr)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, ErrSplitNotFound
	}
	if split.Creator != caller {
		return nil, ErrNotAuthorized
	}

	closed, err := s.store.CloseSplit(ctx, splitAddr)
	if err != nil {
		return nil, err
	}

	s.record(audit.KindSplitClosed, map[string]string{
		"split":   splitAddr.String(),
		"creator": caller.String(),
	})

	return closed, nil
}

func (s *Service) record(kind audit.Kind, data map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.NewEvent(kind, audit.WithData(data)))
}
