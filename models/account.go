package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the current balance for exactly one user. The balance is
// only ever mutated inside a ledger transaction; at rest it equals the
// signed sum of all committed movements and savings transfers.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}
