package event

import (
	"time"

	"github.com/solamate/fundpool/internal/keys"
)

// Status represents the lifecycle state of a funding event
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Limits on creator-supplied fields, in bytes.
const (
	MaxTitleLen    = 64
	MaxMetadataLen = 64
)

// AddressTag namespaces funding event addresses.
const AddressTag = "funding_event"

// FundingEvent is a pooled fund under the custody of its own record. The
// deposit moves in at creation; Disburse and Close are the only operations
// that move value out. The record is never deleted: a closed event stays
// behind as an audit record with a zero balance.
type FundingEvent struct {
	Address          keys.Address  `json:"address"`
	Creator          keys.Identity `json:"creator"`
	Title            string        `json:"title"`
	TotalAmount      int64         `json:"total_amount"`
	RemainingAmount  int64         `json:"remaining_amount"`
	Deadline         time.Time     `json:"deadline"`
	MetadataRef      string        `json:"metadata_ref"`
	Status           Status        `json:"status"`
	ApplicationCount int           `json:"application_count"`
	ApprovedCount    int           `json:"approved_count"`
	CreatedAt        time.Time     `json:"created_at"`
}

// DeriveAddress computes the deterministic address for an event created by
// the given identity at the given time.
func DeriveAddress(creator keys.Identity, createdAt time.Time) keys.Address {
	return keys.DeriveTimed(AddressTag, creator, createdAt.Unix())
}
