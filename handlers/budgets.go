package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/fintrackapp/finance-api/middleware"
	"github.com/fintrackapp/finance-api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BudgetHandler struct {
	DB *sql.DB
}

func validPeriod(p string) bool {
	switch p {
	case models.PeriodWeekly, models.PeriodMonthly, models.PeriodYearly:
		return true
	}
	return false
}

func (h *BudgetHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Period == "" {
		req.Period = models.PeriodMonthly
	}
	if !validPeriod(req.Period) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be weekly, monthly or yearly"})
		return
	}
	if !req.LimitAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit_amount must be positive"})
		return
	}

	budget := models.Budget{
		ID:          uuid.New().String(),
		UserID:      userID,
		CategoryID:  req.CategoryID,
		LimitAmount: req.LimitAmount,
		Period:      req.Period,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err := h.DB.ExecContext(c.Request.Context(), `
		INSERT INTO budgets (id, user_id, category_id, limit_amount, period, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, budget.ID, budget.UserID, budget.CategoryID, budget.LimitAmount, budget.Period, budget.CreatedAt, budget.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget"})
		return
	}

	c.JSON(http.StatusCreated, budget)
}

func (h *BudgetHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT b.id, b.user_id, b.category_id, c.name, b.limit_amount, b.period, b.created_at, b.updated_at
		FROM budgets b
		JOIN categories c ON b.category_id = c.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
		return
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.LimitAmount, &b.Period, &b.CreatedAt, &b.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read budgets"})
			return
		}
		budgets = append(budgets, b)
	}

	c.JSON(http.StatusOK, budgets)
}

func (h *BudgetHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	budget, err := h.fetch(c, userID, c.Param("id"))
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, budget)
}

func (h *BudgetHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validPeriod(req.Period) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be weekly, monthly or yearly"})
		return
	}
	if !req.LimitAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit_amount must be positive"})
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(), `
		UPDATE budgets
		SET category_id = $1, limit_amount = $2, period = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`, req.CategoryID, req.LimitAmount, req.Period, time.Now(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update budget"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}

	budget, err := h.fetch(c, userID, c.Param("id"))
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (h *BudgetHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(), "DELETE FROM budgets WHERE id = $1 AND user_id = $2", c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}

// Status compares the budget limit against actual spend (expenses and direct
// debits) within the current period window.
func (h *BudgetHandler) Status(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	budget, err := h.fetch(c, userID, c.Param("id"))
	if err != nil {
		return
	}

	var spent decimal.Decimal
	err = h.DB.QueryRowContext(c.Request.Context(), `
		SELECT COALESCE(SUM(m.amount), 0)
		FROM movements m
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1
		  AND m.category_id = $2
		  AND m.kind IN ('expense', 'direct_debit')
		  AND m.created_at >= DATE_TRUNC($3, NOW())
	`, userID, budget.CategoryID, periodTrunc(budget.Period)).Scan(&spent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute budget status"})
		return
	}

	usedPct := 0.0
	if budget.LimitAmount.IsPositive() {
		usedPct, _ = spent.Div(budget.LimitAmount).Mul(decimal.NewFromInt(100)).Float64()
	}

	c.JSON(http.StatusOK, models.BudgetStatus{
		Budget:    *budget,
		Spent:     spent,
		Remaining: budget.LimitAmount.Sub(spent),
		UsedPct:   usedPct,
		Exceeded:  spent.GreaterThan(budget.LimitAmount),
	})
}

func periodTrunc(period string) string {
	switch period {
	case models.PeriodWeekly:
		return "week"
	case models.PeriodYearly:
		return "year"
	default:
		return "month"
	}
}

func (h *BudgetHandler) fetch(c *gin.Context, userID, budgetID string) (*models.Budget, error) {
	var b models.Budget
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT b.id, b.user_id, b.category_id, c.name, b.limit_amount, b.period, b.created_at, b.updated_at
		FROM budgets b
		JOIN categories c ON b.category_id = c.id
		WHERE b.id = $1 AND b.user_id = $2
	`, budgetID, userID).Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.LimitAmount, &b.Period, &b.CreatedAt, &b.UpdatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return nil, err
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, err
	}
	return &b, nil
}
