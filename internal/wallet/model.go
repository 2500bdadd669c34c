package wallet

import (
	"time"

	"github.com/solamate/fundpool/internal/keys"
)

// Account is the external balance of a single identity. Ledger operations
// debit and credit it through the atomic transfer step inside their own
// transactions; this package only exposes the account surface itself.
type Account struct {
	Identity  keys.Identity `json:"identity"`
	Balance   int64         `json:"balance"`
	CreatedAt time.Time     `json:"created_at"`
}
