package services

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

type DashboardService struct {
	db *sql.DB
}

func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

type CategorySpend struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type DashboardSummary struct {
	UserName      string          `json:"user_name"`
	Balance       decimal.Decimal `json:"balance"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalSavings  decimal.Decimal `json:"total_savings"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	SavingsRate   float64         `json:"savings_rate_pct"`
	ByCategory    []CategorySpend `json:"expenses_by_category"`
}

// Summary aggregates the current month's activity plus all-time savings into
// the headline dashboard cards.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*DashboardSummary, error) {
	summary := &DashboardSummary{}

	err := s.db.QueryRowContext(ctx, `
		SELECT u.name, a.balance
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE u.id = $1
	`, userID).Scan(&summary.UserName, &summary.Balance)
	if err == sql.ErrNoRows {
		return nil, notFoundError("no account found for user")
	}
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN m.kind = 'income' THEN m.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.kind IN ('expense', 'direct_debit') THEN m.amount ELSE 0 END), 0)
		FROM movements m
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1
		  AND m.created_at >= DATE_TRUNC('month', NOW())
	`, userID).Scan(&summary.TotalIncome, &summary.TotalExpenses)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(s.amount), 0)
		FROM savings s
		JOIN accounts a ON s.account_id = a.id
		WHERE a.user_id = $1
	`, userID).Scan(&summary.TotalSavings)
	if err != nil {
		return nil, err
	}

	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpenses)
	if summary.TotalIncome.IsPositive() {
		summary.SavingsRate, _ = summary.TotalSavings.Div(summary.TotalIncome).Mul(decimal.NewFromInt(100)).Float64()
	}

	byCategory, err := s.expensesByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary.ByCategory = byCategory

	return summary, nil
}

func (s *DashboardService) expensesByCategory(ctx context.Context, userID string) ([]CategorySpend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, SUM(m.amount), COUNT(*)
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1
		  AND m.kind IN ('expense', 'direct_debit')
		  AND m.created_at >= DATE_TRUNC('month', NOW())
		GROUP BY c.name
		ORDER BY SUM(m.amount) DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spend := []CategorySpend{}
	for rows.Next() {
		var cs CategorySpend
		if err := rows.Scan(&cs.Category, &cs.Total, &cs.Count); err != nil {
			return nil, err
		}
		spend = append(spend, cs)
	}
	return spend, nil
}

type ChartPoint struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Charts returns series data keyed by chart type: expenses (pie per
// category), income (monthly bars, income vs expenses handled client-side)
// or savings (cumulative line).
func (s *DashboardService) Charts(ctx context.Context, userID, chartType string) ([]ChartPoint, error) {
	var query string
	switch chartType {
	case "expenses":
		query = `
			SELECT c.name, SUM(m.amount)
			FROM movements m
			JOIN categories c ON m.category_id = c.id
			JOIN accounts a ON m.account_id = a.id
			WHERE a.user_id = $1 AND m.kind IN ('expense', 'direct_debit')
			  AND m.created_at >= DATE_TRUNC('month', NOW())
			GROUP BY c.name
			ORDER BY SUM(m.amount) DESC`
	case "income":
		query = `
			SELECT TO_CHAR(DATE_TRUNC('month', m.created_at), 'YYYY-MM'), SUM(m.amount)
			FROM movements m
			JOIN accounts a ON m.account_id = a.id
			WHERE a.user_id = $1 AND m.kind = 'income'
			  AND m.created_at >= NOW() - INTERVAL '12 months'
			GROUP BY 1
			ORDER BY 1`
	case "savings":
		query = `
			SELECT TO_CHAR(DATE_TRUNC('month', s.created_at), 'YYYY-MM'), SUM(s.amount)
			FROM savings s
			JOIN accounts a ON s.account_id = a.id
			WHERE a.user_id = $1
			  AND s.created_at >= NOW() - INTERVAL '12 months'
			GROUP BY 1
			ORDER BY 1`
	default:
		return nil, validationError("unknown chart type %q", chartType)
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []ChartPoint{}
	for rows.Next() {
		var p ChartPoint
		if err := rows.Scan(&p.Label, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// ============================================================================
// ALERTS
// ============================================================================

type Alert struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Alerts runs the financial health rules over the current month's numbers.
func (s *DashboardService) Alerts(ctx context.Context, userID string) ([]Alert, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	alerts := []Alert{}

	if summary.Balance.LessThan(decimal.NewFromInt(100)) {
		alerts = append(alerts, Alert{
			Type:    "LOW_BALANCE",
			Level:   "warning",
			Message: "Your balance is running low.",
		})
	}

	if summary.TotalIncome.IsPositive() && summary.TotalExpenses.GreaterThan(summary.TotalIncome) {
		alerts = append(alerts, Alert{
			Type:    "OVERSPENDING",
			Level:   "critical",
			Message: "You spent more than you earned this month.",
		})
	}

	if summary.TotalIncome.IsPositive() && summary.SavingsRate < 10 {
		alerts = append(alerts, Alert{
			Type:    "LOW_SAVINGS_RATE",
			Level:   "info",
			Message: "You are saving less than 10% of your income.",
		})
	}

	overruns, err := s.budgetOverruns(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, overruns...)

	return alerts, nil
}

func (s *DashboardService) budgetOverruns(ctx context.Context, userID string) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, b.limit_amount, COALESCE(SUM(m.amount), 0)
		FROM budgets b
		JOIN categories c ON b.category_id = c.id
		LEFT JOIN accounts a ON a.user_id = b.user_id
		LEFT JOIN movements m ON m.account_id = a.id
			AND m.category_id = b.category_id
			AND m.kind IN ('expense', 'direct_debit')
			AND m.created_at >= DATE_TRUNC('month', NOW())
		WHERE b.user_id = $1
		GROUP BY c.name, b.limit_amount
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		var category string
		var limit, spent decimal.Decimal
		if err := rows.Scan(&category, &limit, &spent); err != nil {
			return nil, err
		}
		if spent.GreaterThan(limit) {
			alerts = append(alerts, Alert{
				Type:    "BUDGET_EXCEEDED",
				Level:   "warning",
				Message: "Budget for " + category + " exceeded (" + spent.StringFixed(2) + " of " + limit.StringFixed(2) + ").",
			})
		}
	}
	return alerts, nil
}
