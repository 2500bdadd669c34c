package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the ledger operation an audit event records. Using a named
// type keeps the trail queryable by a closed set of values instead of free
// strings.
type Kind string

const (
	KindEventCreated         Kind = "event.created"
	KindEventClosed          Kind = "event.closed"
	KindApplicationSubmitted Kind = "application.submitted"
	KindApplicationApproved  Kind = "application.approved"
	KindApplicationRejected  Kind = "application.rejected"
	KindFundsDisbursed       Kind = "funds.disbursed"
	KindSplitCreated         Kind = "split.created"
	KindMemberAdded          Kind = "split.member_added"
	KindMemberPaid           Kind = "split.member_paid"
	KindSplitClosed          Kind = "split.closed"
)

// Event is a single entry in the operation audit trail.
type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Kind      Kind              `json:"kind,omitempty"`
	Data      any               `json:"data,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Option func(*Event)

// WithData attaches the operation's key fields to the event.
func WithData(data any) Option {
	return func(e *Event) {
		e.Data = data
	}
}

// WithMetadata attaches request-scoped context (request id, caller).
func WithMetadata(metadata map[string]string) Option {
	return func(e *Event) {
		e.Metadata = metadata
	}
}

// NewEvent stamps a new trail entry of the given kind.
func NewEvent(kind Kind, opts ...Option) Event {
	e := Event{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Recorder is the sink the worker drains into.
type Recorder interface {
	Save(ctx context.Context, e Event) error
	GetByKind(ctx context.Context, kind Kind) ([]Event, error)
}

// MemoryRecorder keeps events in memory. It backs the memory storage driver
// and tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Save(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryRecorder) GetByKind(ctx context.Context, kind Kind) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]Event, 0)
	for _, e := range m.events {
		if e.Kind == kind {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Len returns the number of recorded events.
func (m *MemoryRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
