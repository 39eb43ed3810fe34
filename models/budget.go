package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// BUDGET MODEL
// ============================================================================

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

type Budget struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	LimitAmount  decimal.Decimal `json:"limit_amount"`
	Period       string          `json:"period"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateBudgetRequest struct {
	CategoryID  string          `json:"category_id" binding:"required"`
	LimitAmount decimal.Decimal `json:"limit_amount" binding:"required"`
	Period      string          `json:"period"`
}

type UpdateBudgetRequest struct {
	CategoryID  string          `json:"category_id" binding:"required"`
	LimitAmount decimal.Decimal `json:"limit_amount" binding:"required"`
	Period      string          `json:"period" binding:"required"`
}

// BudgetStatus compares a budget limit against actual spend in the current
// period, derived from the movement history.
type BudgetStatus struct {
	Budget    Budget          `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	UsedPct   float64         `json:"used_pct"`
	Exceeded  bool            `json:"exceeded"`
}
