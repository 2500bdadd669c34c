package wallet

// DepositRequest represents a faucet deposit into an account
type DepositRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// AccountResponse represents the response for a wallet account
type AccountResponse struct {
	Identity  string `json:"identity"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// ToResponse converts an Account model to an AccountResponse DTO
func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		Identity:  a.Identity.String(),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
