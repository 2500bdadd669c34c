// Package memstore is an in-memory implementation of every feature store,
// used by the memory storage driver and by service tests. One mutex guards
// the whole world, which gives each ledger operation the same atomicity the
// SQL stores get from a transaction. Per-feature views expose the world
// through the store interfaces.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/disbursement"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/internal/split"
	"github.com/solamate/fundpool/internal/wallet"
)

// Store holds all ledger state in memory
type Store struct {
	mu           sync.Mutex
	accounts     map[keys.Identity]*wallet.Account
	events       map[keys.Address]*event.FundingEvent
	applications map[keys.Address]*application.Application
	splits       map[keys.Address]*split.GroupSplit
	members      map[keys.Address]*split.SplitMember
	now          func() time.Time
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		accounts:     make(map[keys.Identity]*wallet.Account),
		events:       make(map[keys.Address]*event.FundingEvent),
		applications: make(map[keys.Address]*application.Application),
		splits:       make(map[keys.Address]*split.GroupSplit),
		members:      make(map[keys.Address]*split.SplitMember),
		now:          time.Now,
	}
}

// Wallets returns the wallet view of the store
func (s *Store) Wallets() wallet.Store { return walletStore{s} }

// Events returns the funding event view of the store
func (s *Store) Events() event.Store { return eventStore{s} }

// Applications returns the application view of the store
func (s *Store) Applications() application.Store { return applicationStore{s} }

// Disbursements returns the disbursement view of the store
func (s *Store) Disbursements() disbursement.Store { return disbursementStore{s} }

// Splits returns the group split view of the store
func (s *Store) Splits() split.Store { return splitStore{s} }

// credit adds to a balance, creating the account if needed. Caller holds the
// lock.
func (s *Store) credit(identity keys.Identity, amount int64) *wallet.Account {
	account, ok := s.accounts[identity]
	if !ok {
		account = &wallet.Account{Identity: identity, CreatedAt: s.now()}
		s.accounts[identity] = account
	}
	account.Balance += amount
	return account
}

type walletStore struct{ *Store }

func (s walletStore) GetByIdentity(_ context.Context, identity keys.Identity) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[identity]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (s walletStore) Deposit(_ context.Context, identity keys.Identity, amount int64) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *s.credit(identity, amount)
	return &copied, nil
}

type eventStore struct{ *Store }

func (s eventStore) Create(_ context.Context, ev *event.FundingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.Address]; exists {
		return event.ErrDuplicateEvent
	}

	account, ok := s.accounts[ev.Creator]
	if !ok || account.Balance < ev.TotalAmount {
		return wallet.ErrInsufficientBalance
	}
	account.Balance -= ev.TotalAmount

	copied := *ev
	s.events[ev.Address] = &copied
	return nil
}

func (s eventStore) GetByAddress(_ context.Context, addr keys.Address) (*event.FundingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[addr]
	if !ok {
		return nil, nil
	}
	copied := *ev
	return &copied, nil
}

func (s eventStore) List(_ context.Context, limit, offset int) ([]*event.FundingEvent, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*event.FundingEvent, 0, len(s.events))
	for _, ev := range s.events {
		copied := *ev
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Address.Less(all[j].Address)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s eventStore) Close(_ context.Context, addr keys.Address) (*event.FundingEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[addr]
	if !ok {
		return nil, 0, event.ErrEventNotFound
	}

	swept := ev.RemainingAmount
	if swept > 0 {
		s.credit(ev.Creator, swept)
		ev.RemainingAmount = 0
	}
	ev.Status = event.StatusClosed

	copied := *ev
	return &copied, swept, nil
}

type applicationStore struct{ *Store }

func (s applicationStore) Create(_ context.Context, app *application.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.Address]; exists {
		return application.ErrDuplicateApplication
	}
	ev, ok := s.events[app.Event]
	if !ok {
		return event.ErrEventNotFound
	}
	ev.ApplicationCount++

	copied := *app
	s.applications[app.Address] = &copied
	return nil
}

func (s applicationStore) GetByAddress(_ context.Context, addr keys.Address) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[addr]
	if !ok {
		return nil, nil
	}
	copied := *app
	return &copied, nil
}

func (s applicationStore) ListByEvent(_ context.Context, eventAddr keys.Address) ([]*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var apps []*application.Application
	for _, app := range s.applications {
		if app.Event == eventAddr {
			copied := *app
			apps = append(apps, &copied)
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].AppliedAt.Equal(apps[j].AppliedAt) {
			return apps[i].AppliedAt.Before(apps[j].AppliedAt)
		}
		return apps[i].Address.Less(apps[j].Address)
	})
	return apps, nil
}

func (s applicationStore) Approve(_ context.Context, appAddr, eventAddr keys.Address, amount int64, reserve bool) (*application.Application, error) {
	if amount <= 0 {
		return nil, application.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[appAddr]
	if !ok {
		return nil, application.ErrApplicationNotFound
	}
	if app.Status != application.StatusPending {
		return nil, application.ErrAlreadyProcessed
	}
	ev, ok := s.events[eventAddr]
	if !ok {
		return nil, event.ErrEventNotFound
	}

	if reserve {
		if ev.RemainingAmount < amount {
			return nil, event.ErrInsufficientFunds
		}
		ev.RemainingAmount -= amount
	}

	app.Status = application.StatusApproved
	app.ApprovedAmount = amount
	ev.ApprovedCount++

	copied := *app
	return &copied, nil
}

func (s applicationStore) Reject(_ context.Context, appAddr keys.Address) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[appAddr]
	if !ok {
		return nil, application.ErrApplicationNotFound
	}
	if app.Status != application.StatusPending {
		return nil, application.ErrAlreadyProcessed
	}

	app.Status = application.StatusRejected

	copied := *app
	return &copied, nil
}

type disbursementStore struct{ *Store }

func (s disbursementStore) Disburse(_ context.Context, eventAddr, appAddr keys.Address, applicant keys.Identity, amount int64, drawDown bool) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[appAddr]
	if !ok {
		return nil, application.ErrApplicationNotFound
	}
	if app.Status != application.StatusApproved {
		return nil, disbursement.ErrNotApproved
	}

	if drawDown {
		ev, ok := s.events[eventAddr]
		if !ok {
			return nil, event.ErrEventNotFound
		}
		if ev.RemainingAmount < amount {
			return nil, event.ErrInsufficientFunds
		}
		ev.RemainingAmount -= amount
	}

	s.credit(applicant, amount)
	app.Status = application.StatusPaid

	copied := *app
	return &copied, nil
}

type splitStore struct{ *Store }

func (s splitStore) CreateSplit(_ context.Context, gs *split.GroupSplit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.splits[gs.Address]; exists {
		return split.ErrDuplicateSplit
	}

	copied := *gs
	s.splits[gs.Address] = &copied
	return nil
}

func (s splitStore) GetByAddress(_ context.Context, addr keys.Address) (*split.GroupSplit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.splits[addr]
	if !ok {
		return nil, nil
	}
	copied := *gs
	return &copied, nil
}

func (s splitStore) ListByCreator(_ context.Context, creator keys.Identity) ([]*split.GroupSplit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var splits []*split.GroupSplit
	for _, gs := range s.splits {
		if gs.Creator == creator {
			copied := *gs
			splits = append(splits, &copied)
		}
	}
	sort.Slice(splits, func(i, j int) bool {
		if !splits[i].CreatedAt.Equal(splits[j].CreatedAt) {
			return splits[i].CreatedAt.After(splits[j].CreatedAt)
		}
		return splits[i].Address.Less(splits[j].Address)
	})
	return splits, nil
}

func (s splitStore) AddMember(_ context.Context, member *split.SplitMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.splits[member.Split]
	if !ok {
		return split.ErrSplitNotFound
	}
	if gs.Status != split.StatusActive {
		return split.ErrSplitNotActive
	}
	if _, exists := s.members[member.Address]; exists {
		return split.ErrDuplicateMember
	}

	copied := *member
	s.members[member.Address] = &copied
	return nil
}

func (s splitStore) GetMember(_ context.Context, addr keys.Address) (*split.SplitMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[addr]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (s splitStore) ListMembers(_ context.Context, splitAddr keys.Address) ([]*split.SplitMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members []*split.SplitMember
	for _, member := range s.members {
		if member.Split == splitAddr {
			copied := *member
			members = append(members, &copied)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Address.Less(members[j].Address)
	})
	return members, nil
}

func (s splitStore) MarkPaid(_ context.Context, memberAddr, splitAddr keys.Address, paidAt time.Time) (*split.GroupSplit, *split.SplitMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.splits[splitAddr]
	if !ok {
		return nil, nil, split.ErrSplitNotFound
	}
	if gs.Status != split.StatusActive {
		return nil, nil, split.ErrSplitNotActive
	}
	member, ok := s.members[memberAddr]
	if !ok {
		return nil, nil, split.ErrMemberNotFound
	}
	if member.Paid {
		return nil, nil, split.ErrAlreadyPaid
	}

	member.Paid = true
	t := paidAt
	member.PaidAt = &t

	gs.SettledCount++
	if gs.SettledCount >= gs.MemberCount && gs.Status == split.StatusActive {
		gs.Status = split.StatusSettled
	}

	splitCopy := *gs
	memberCopy := *member
	return &splitCopy, &memberCopy, nil
}

func (s splitStore) CloseSplit(_ context.Context, addr keys.Address) (*split.GroupSplit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.splits[addr]
	if !ok {
		return nil, split.ErrSplitNotFound
	}
	gs.Status = split.StatusClosed

	copied := *gs
	return &copied, nil
}
