package handlers

import (
	"errors"
	"net/http"

	"github.com/fintrackapp/finance-api/services"
	"github.com/fintrackapp/finance-api/utils"

	"github.com/gin-gonic/gin"
)

// respondLedgerError translates typed ledger errors into transport status
// codes. Raw persistence error text is logged, never sent to clients.
func respondLedgerError(c *gin.Context, err error) {
	var lerr *services.LedgerError
	if errors.As(err, &lerr) {
		switch lerr.Kind {
		case services.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": lerr.Message, "kind": lerr.Kind})
		case services.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": lerr.Message, "kind": lerr.Kind})
		case services.KindInsufficientFunds:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": lerr.Message, "kind": lerr.Kind})
		case services.KindTransient:
			utils.LogWarn("transient ledger failure: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporary failure, please retry", "kind": lerr.Kind})
		default:
			utils.LogError("ledger failure: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		}
		return
	}

	utils.LogError("unexpected error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
