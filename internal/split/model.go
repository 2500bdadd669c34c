package split

import (
	"time"

	"github.com/solamate/fundpool/internal/keys"
)

// Status represents the lifecycle state of a group split
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusSettled Status = "SETTLED"
	StatusClosed  Status = "CLOSED"
)

// Field bounds.
const (
	MinMemberCount = 1
	MaxMemberCount = 20
	MaxTitleLen    = 64
	MaxMetadataLen = 64
)

// Address namespace tags.
const (
	SplitAddressTag  = "group_split"
	MemberAddressTag = "split_member"
)

// GroupSplit tracks peer-owed shares of a shared expense. No value moves
// through it; members settle out of band and the record only acknowledges
// payment. The per-person share is floor division of the total, and the
// remainder is dropped, not redistributed.
type GroupSplit struct {
	Address         keys.Address  `json:"address"`
	Creator         keys.Identity `json:"creator"`
	Title           string        `json:"title"`
	TotalAmount     int64         `json:"total_amount"`
	MemberCount     int           `json:"member_count"`
	AmountPerPerson int64         `json:"amount_per_person"`
	SettledCount    int           `json:"settled_count"`
	Status          Status        `json:"status"`
	MetadataRef     string        `json:"metadata_ref"`
	CreatedAt       time.Time     `json:"created_at"`
}

// SplitMember is one obligation within a split. Keyed on the (split, member)
// pair; paid flips false to true exactly once.
type SplitMember struct {
	Address    keys.Address  `json:"address"`
	Split      keys.Address  `json:"split"`
	Member     keys.Identity `json:"member"`
	AmountOwed int64         `json:"amount_owed"`
	Paid       bool          `json:"paid"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
}

// DeriveSplitAddress computes the deterministic address for a split created
// by the given identity at the given time.
func DeriveSplitAddress(creator keys.Identity, createdAt time.Time) keys.Address {
	return keys.DeriveTimed(SplitAddressTag, creator, createdAt.Unix())
}

// DeriveMemberAddress computes the deterministic address for a membership
// from its split and member.
func DeriveMemberAddress(split keys.Address, member keys.Identity) keys.Address {
	return keys.Derive(MemberAddressTag, split[:], member[:])
}
