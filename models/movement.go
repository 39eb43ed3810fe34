package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// MOVEMENT MODEL
// ============================================================================

// Movement kinds. Amounts are stored positive; the kind decides the sign
// applied to the account balance.
const (
	MovementIncome      = "income"
	MovementExpense     = "expense"
	MovementDirectDebit = "direct_debit"
)

// Movement is an immutable ledger entry. Entries are created exactly once
// and never updated or deleted.
type Movement struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	CategoryID   string          `json:"category_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CreateMovementRequest struct {
	Kind        string          `json:"kind" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	CategoryID  string          `json:"category_id" binding:"required"`
	Description string          `json:"description"`
}

type MovementFilters struct {
	Kind string `form:"kind"`
	From string `form:"from"`
	To   string `form:"to"`
}

type MovementStats struct {
	CategoryName string          `json:"category"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}
