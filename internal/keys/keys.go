package keys

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the width of identities and record addresses in bytes.
const Size = 32

// Common errors
var (
	ErrInvalidIdentity = errors.New("identity must be a base58-encoded 32-byte key")
	ErrInvalidAddress  = errors.New("address must be a base58-encoded 32-byte value")
)

// Identity is the public key of an account, as proven by the host runtime.
type Identity [Size]byte

// Address is the deterministic storage location of a ledger record.
type Address [Size]byte

// ParseIdentity decodes a base58 identity string.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != Size {
		return id, ErrInvalidIdentity
	}
	copy(id[:], raw)
	return id, nil
}

// ParseAddress decodes a base58 record address string.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != Size {
		return addr, ErrInvalidAddress
	}
	copy(addr[:], raw)
	return addr, nil
}

// String returns the base58 form of the identity.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Less defines the canonical total order over identities, used wherever a
// pair of keys must be stored in a fixed order.
func (id Identity) Less(other Identity) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// String returns the base58 form of the address.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Less defines the canonical total order over addresses.
func (a Address) Less(other Address) bool {
	return bytes.Compare(a[:], other[:]) < 0
}

// MarshalText implements encoding.TextMarshaler so identities render as
// base58 in JSON payloads.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Derive computes the storage address for a record as a pure function of a
// namespace tag and the record's key fields. Re-deriving with the same inputs
// always yields the same address, which is how collaborators look records up
// without a separate index.
func Derive(tag string, parts ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write(p)
	}
	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// DeriveTimed is Derive for records keyed on an owner plus a creation time in
// unix seconds (funding events and group splits).
func DeriveTimed(tag string, owner Identity, unixSeconds int64) Address {
	ts := make([]byte, 8)
	for i := 0; i < 8; i++ {
		ts[i] = byte(unixSeconds >> (8 * i))
	}
	return Derive(tag, owner[:], ts)
}

// MustParseIdentity is ParseIdentity for tests and fixtures; it panics on
// malformed input.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(fmt.Sprintf("keys: bad identity %q: %v", s, err))
	}
	return id
}
