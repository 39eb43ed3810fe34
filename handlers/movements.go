package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/fintrackapp/finance-api/middleware"
	"github.com/fintrackapp/finance-api/models"
	"github.com/fintrackapp/finance-api/services"

	"github.com/gin-gonic/gin"
)

type MovementHandler struct {
	DB     *sql.DB
	Ledger *services.Ledger
	WS     *WSHandler
}

// Create records a movement through the ledger. The kind may be forced by the
// route (the /expenses and /incomes groups) or supplied in the body.
func (h *MovementHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if forced, ok := c.Get("movement_kind"); ok {
		req.Kind = forced.(string)
	}

	movement, err := h.Ledger.RecordMovement(c.Request.Context(), userID, req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	if h.WS != nil {
		h.WS.BroadcastUpdate(userID, "movement_recorded")
	}

	c.JSON(http.StatusCreated, movement)
}

// List returns the user's movements, optionally filtered by kind and a
// created_at date range (YYYY-MM-DD).
func (h *MovementHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var filters models.MovementFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if kind, ok := c.Get("movement_kind"); ok {
		filters.Kind = kind.(string)
	}

	query := `
		SELECT m.id, m.account_id, m.category_id, m.kind, m.amount, COALESCE(m.description, ''), c.name, m.created_at
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1
	`
	args := []interface{}{userID}

	if filters.Kind != "" {
		args = append(args, filters.Kind)
		query += ` AND m.kind = $2`
	}
	if filters.From != "" {
		args = append(args, filters.From)
		query += ` AND m.created_at >= $` + strconv.Itoa(len(args))
	}
	if filters.To != "" {
		args = append(args, filters.To)
		query += ` AND m.created_at < ($` + strconv.Itoa(len(args)) + `::date + 1)`
	}
	query += ` ORDER BY m.created_at DESC`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movements"})
		return
	}
	defer rows.Close()

	movements := []models.Movement{}
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.AccountID, &m.CategoryID, &m.Kind, &m.Amount, &m.Description, &m.CategoryName, &m.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read movements"})
			return
		}
		movements = append(movements, m)
	}

	c.JSON(http.StatusOK, movements)
}

func (h *MovementHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var m models.Movement
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT m.id, m.account_id, m.category_id, m.kind, m.amount, COALESCE(m.description, ''), c.name, m.created_at
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE m.id = $1 AND a.user_id = $2
	`, c.Param("id"), userID).Scan(&m.ID, &m.AccountID, &m.CategoryID, &m.Kind, &m.Amount, &m.Description, &m.CategoryName, &m.CreatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movement not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, m)
}

// Stats aggregates the last 30 days of movements per category.
func (h *MovementHandler) Stats(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	kind := c.DefaultQuery("kind", models.MovementExpense)

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT c.name, SUM(m.amount), COUNT(*)
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1 AND m.kind = $2 AND m.created_at >= NOW() - INTERVAL '30 days'
		GROUP BY c.name
		ORDER BY SUM(m.amount) DESC
	`, userID, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	defer rows.Close()

	stats := []models.MovementStats{}
	for rows.Next() {
		var s models.MovementStats
		if err := rows.Scan(&s.CategoryName, &s.Total, &s.Count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
			return
		}
		stats = append(stats, s)
	}

	c.JSON(http.StatusOK, stats)
}

// Delete always refuses: the ledger is append-only. Removing a committed
// movement without reversing its balance effect would break the balance
// invariant, so no deletion path exists.
func (h *MovementHandler) Delete(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Ledger entries are append-only; record a compensating movement instead",
	})
}

// Balance exposes the ledger's consistent balance read.
func (h *MovementHandler) Balance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.Ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}
