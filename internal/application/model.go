package application

import (
	"time"

	"github.com/solamate/fundpool/internal/keys"
)

// Status represents the lifecycle state of an application
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPaid     Status = "PAID"
)

// AddressTag namespaces application addresses.
const AddressTag = "application"

// Application is a request for a share of a funding event's pool. Its
// address is keyed on the (event, applicant) pair, so each identity gets at
// most one application per event; a rejected application blocks the pair for
// good.
type Application struct {
	Address         keys.Address  `json:"address"`
	Event           keys.Address  `json:"event"`
	Applicant       keys.Identity `json:"applicant"`
	RequestedAmount int64         `json:"requested_amount"`
	ApprovedAmount  int64         `json:"approved_amount"`
	MetadataRef     string        `json:"metadata_ref"`
	Status          Status        `json:"status"`
	AppliedAt       time.Time     `json:"applied_at"`
}

// DeriveAddress computes the deterministic address for an application from
// its event and applicant.
func DeriveAddress(event keys.Address, applicant keys.Identity) keys.Address {
	return keys.Derive(AddressTag, event[:], applicant[:])
}
