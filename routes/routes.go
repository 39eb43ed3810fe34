package routes

import (
	"database/sql"

	"github.com/fintrackapp/finance-api/handlers"
	"github.com/fintrackapp/finance-api/middleware"
	"github.com/fintrackapp/finance-api/models"
	"github.com/fintrackapp/finance-api/services"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/register", authHandler.Register)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupProfileRoutes sets up protected profile and 2FA routes.
func SetupProfileRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/auth/profile", authHandler.Profile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
}

// SetupMovementRoutes wires the ledger write path plus movement reads. The
// /expenses and /incomes groups are convenience views over the same ledger
// operation with the kind pinned by the route.
func SetupMovementRoutes(rg *gin.RouterGroup, db *sql.DB, ledger *services.Ledger, ws *handlers.WSHandler) {
	h := &handlers.MovementHandler{DB: db, Ledger: ledger, WS: ws}

	rg.POST("/movements", h.Create)
	rg.GET("/movements", h.List)
	rg.GET("/movements/stats", h.Stats)
	rg.GET("/movements/:id", h.Get)
	rg.DELETE("/movements/:id", h.Delete)

	rg.GET("/balance", h.Balance)

	expenses := rg.Group("/expenses")
	expenses.Use(forceKind(models.MovementExpense))
	{
		expenses.POST("", h.Create)
		expenses.GET("", h.List)
	}

	incomes := rg.Group("/incomes")
	incomes.Use(forceKind(models.MovementIncome))
	{
		incomes.POST("", h.Create)
		incomes.GET("", h.List)
	}
}

func forceKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("movement_kind", kind)
		c.Next()
	}
}

// SetupSavingsRoutes wires savings transfers and goal metadata.
func SetupSavingsRoutes(rg *gin.RouterGroup, db *sql.DB, ledger *services.Ledger, ws *handlers.WSHandler) {
	h := &handlers.SavingsHandler{DB: db, Ledger: ledger, WS: ws}

	rg.POST("/savings", h.Create)
	rg.GET("/savings", h.List)
	rg.GET("/savings/progress", h.Progress)
	rg.PUT("/savings/:id/goal", h.UpsertGoal)
	rg.DELETE("/savings/:id/goal", h.DeleteGoal)
	rg.DELETE("/savings/:id", h.Delete)
}

// SetupBudgetRoutes sets up budget CRUD and status.
func SetupBudgetRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := &handlers.BudgetHandler{DB: db}

	rg.POST("/budgets", h.Create)
	rg.GET("/budgets", h.List)
	rg.GET("/budgets/:id", h.Get)
	rg.GET("/budgets/:id/status", h.Status)
	rg.PUT("/budgets/:id", h.Update)
	rg.DELETE("/budgets/:id", h.Delete)
}

// SetupCategoryRoutes sets up category listing plus admin-only creation.
func SetupCategoryRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := &handlers.CategoryHandler{DB: db}

	rg.GET("/categories", h.List)
	rg.POST("/categories", middleware.RequireAdmin(), h.Create)
}

// SetupDashboardRoutes sets up the aggregated dashboard views.
func SetupDashboardRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := handlers.NewDashboardHandler(services.NewDashboardService(db))

	rg.GET("/dashboard/summary", h.Summary)
	rg.GET("/dashboard/charts", h.Charts)
	rg.GET("/dashboard/alerts", h.Alerts)
}

// SetupReportRoutes sets up the reporting queries.
func SetupReportRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := handlers.NewReportsHandler(services.NewReportsService(db))

	rg.GET("/reports/summary", h.Summary)
	rg.GET("/reports/cashflow", h.Cashflow)
	rg.GET("/reports/categories", h.Categories)
	rg.GET("/reports/recurring", h.Recurring)
	rg.GET("/reports/savings", h.Savings)
}

// SetupOrganizationRoutes sets up organization management.
func SetupOrganizationRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := handlers.NewOrganizationHandler(services.NewOrganizationService(db))

	rg.POST("/organizations", h.Create)
	rg.POST("/organizations/members", h.AddMember)
	rg.GET("/organizations/members", h.Members)
	rg.DELETE("/organizations/members/:member_id", h.RemoveMember)
}
