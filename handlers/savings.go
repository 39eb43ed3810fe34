package handlers

import (
	"database/sql"
	"net/http"

	"github.com/fintrackapp/finance-api/middleware"
	"github.com/fintrackapp/finance-api/models"
	"github.com/fintrackapp/finance-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SavingsHandler struct {
	DB     *sql.DB
	Ledger *services.Ledger
	WS     *WSHandler
}

// Create transfers funds into the savings pool through the ledger.
func (h *SavingsHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateSavingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saving, err := h.Ledger.RecordSaving(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	if h.WS != nil {
		h.WS.BroadcastUpdate(userID, "saving_recorded")
	}

	c.JSON(http.StatusCreated, saving)
}

func (h *SavingsHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT s.id, s.account_id, s.amount, s.created_at,
		       g.id, g.name, COALESCE(g.description, ''), g.target_amount
		FROM savings s
		JOIN accounts a ON s.account_id = a.id
		LEFT JOIN savings_goals g ON g.saving_id = s.id
		WHERE a.user_id = $1
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch savings"})
		return
	}
	defer rows.Close()

	savings := []models.Saving{}
	for rows.Next() {
		var s models.Saving
		var goalID, goalName, goalDesc sql.NullString
		var target decimal.NullDecimal
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Amount, &s.CreatedAt, &goalID, &goalName, &goalDesc, &target); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read savings"})
			return
		}
		if goalID.Valid {
			goal := models.SavingsGoal{
				ID:          goalID.String,
				SavingID:    s.ID,
				Name:        goalName.String,
				Description: goalDesc.String,
			}
			if target.Valid {
				goal.TargetAmount = target.Decimal
			}
			s.Goal = &goal
		}
		savings = append(savings, s)
	}

	c.JSON(http.StatusOK, savings)
}

// Progress reports goal completion per saving pool.
func (h *SavingsHandler) Progress(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT s.id, s.amount, s.created_at,
		       COALESCE(g.name, ''), COALESCE(g.target_amount, 0),
		       CASE WHEN COALESCE(g.target_amount, 0) > 0
		            THEN LEAST(s.amount / g.target_amount * 100, 100)
		            ELSE 0 END
		FROM savings s
		JOIN accounts a ON s.account_id = a.id
		LEFT JOIN savings_goals g ON g.saving_id = s.id
		WHERE a.user_id = $1
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}
	defer rows.Close()

	progress := []models.SavingProgress{}
	for rows.Next() {
		var p models.SavingProgress
		if err := rows.Scan(&p.SavingID, &p.Saved, &p.CreatedAt, &p.GoalName, &p.TargetAmount, &p.Progress); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read progress"})
			return
		}
		progress = append(progress, p)
	}

	c.JSON(http.StatusOK, progress)
}

// UpsertGoal attaches or replaces the goal metadata on a saving. Goals never
// touch the balance, so this is plain CRUD outside the ledger.
func (h *SavingsHandler) UpsertGoal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpsertGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.TargetAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_amount must be positive"})
		return
	}

	savingID := c.Param("id")
	if !h.ownsSaving(c, userID, savingID) {
		return
	}

	goal := models.SavingsGoal{
		ID:           uuid.New().String(),
		SavingID:     savingID,
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
	}

	_, err := h.DB.ExecContext(c.Request.Context(), `
		INSERT INTO savings_goals (id, saving_id, name, description, target_amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (saving_id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, target_amount = EXCLUDED.target_amount
	`, goal.ID, goal.SavingID, goal.Name, goal.Description, goal.TargetAmount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save goal"})
		return
	}

	c.JSON(http.StatusOK, goal)
}

func (h *SavingsHandler) DeleteGoal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	savingID := c.Param("id")
	if !h.ownsSaving(c, userID, savingID) {
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(), "DELETE FROM savings_goals WHERE saving_id = $1", savingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete goal"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}

// Delete always refuses: savings transfers are committed ledger entries.
func (h *SavingsHandler) Delete(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Savings transfers are append-only ledger entries and cannot be deleted",
	})
}

func (h *SavingsHandler) ownsSaving(c *gin.Context, userID, savingID string) bool {
	var exists bool
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT EXISTS(
			SELECT 1 FROM savings s
			JOIN accounts a ON s.account_id = a.id
			WHERE s.id = $1 AND a.user_id = $2
		)
	`, savingID, userID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return false
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Saving not found"})
		return false
	}
	return true
}
