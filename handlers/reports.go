package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fintrackapp/finance-api/middleware"
	"github.com/fintrackapp/finance-api/services"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct {
	Service *services.ReportsService
}

func NewReportsHandler(service *services.ReportsService) *ReportsHandler {
	return &ReportsHandler{Service: service}
}

func (h *ReportsHandler) Summary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dateRange, err := services.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	summary, err := h.Service.Summary(c.Request.Context(), userID, dateRange)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReportsHandler) Cashflow(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	year := time.Now().Year()
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be a number"})
			return
		}
		year = parsed
	}

	series, err := h.Service.Cashflow(c.Request.Context(), userID, year)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "months": series})
}

func (h *ReportsHandler) Categories(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dateRange, err := services.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	breakdown, err := h.Service.Categories(c.Request.Context(), userID, dateRange)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

func (h *ReportsHandler) Recurring(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	months := 6
	if v := c.Query("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "months must be a number"})
			return
		}
		months = parsed
	}

	recurring, err := h.Service.Recurring(c.Request.Context(), userID, months)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, recurring)
}

func (h *ReportsHandler) Savings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	overview, err := h.Service.Savings(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
