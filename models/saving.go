package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// SAVINGS MODELS
// ============================================================================

// Saving is a committed transfer of funds from the account into the savings
// pool. Like movements, savings are append-only ledger entries.
type Saving struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Goal      *SavingsGoal    `json:"goal,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SavingsGoal is optional metadata attached to a saving. It never affects
// the account balance and stays freely editable.
type SavingsGoal struct {
	ID           string          `json:"id"`
	SavingID     string          `json:"saving_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

type CreateSavingRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type UpsertGoalRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
}

type SavingProgress struct {
	SavingID     string          `json:"saving_id"`
	Saved        decimal.Decimal `json:"saved"`
	GoalName     string          `json:"goal_name,omitempty"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Progress     float64         `json:"progress_pct"`
	CreatedAt    time.Time       `json:"created_at"`
}
