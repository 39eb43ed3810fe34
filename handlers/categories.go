package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/fintrackapp/finance-api/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type CategoryHandler struct {
	DB *sql.DB
}

func (h *CategoryHandler) List(c *gin.Context) {
	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT id, name, COALESCE(description, '')
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read categories"})
			return
		}
		categories = append(categories, cat)
	}

	c.JSON(http.StatusOK, categories)
}

// Create is admin-only (guarded by RequireAdmin in routes).
func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var cat models.Category
	err := h.DB.QueryRowContext(c.Request.Context(), `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, COALESCE(description, '')
	`, req.Name, req.Description).Scan(&cat.ID, &cat.Name, &cat.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "Category already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, cat)
}
