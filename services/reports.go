package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type ReportsService struct {
	db *sql.DB
}

func NewReportsService(db *sql.DB) *ReportsService {
	return &ReportsService{db: db}
}

// DateRange bounds a report query. Zero values mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if from != "" {
		r.From, err = time.Parse("2006-01-02", from)
		if err != nil {
			return r, validationError("invalid from date, expected YYYY-MM-DD")
		}
	}
	if to != "" {
		r.To, err = time.Parse("2006-01-02", to)
		if err != nil {
			return r, validationError("invalid to date, expected YYYY-MM-DD")
		}
		r.To = r.To.AddDate(0, 0, 1) // inclusive end day
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, validationError("to date is before from date")
	}
	return r, nil
}

type FinancialSummary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalSavings  decimal.Decimal `json:"total_savings"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	MovementCount int             `json:"movement_count"`
}

// Summary totals a user's activity within a date range.
func (s *ReportsService) Summary(ctx context.Context, userID string, r DateRange) (*FinancialSummary, error) {
	from, to := rangeBounds(r)
	summary := &FinancialSummary{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN m.kind = 'income' THEN m.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.kind IN ('expense', 'direct_debit') THEN m.amount ELSE 0 END), 0),
			COUNT(*)
		FROM movements m
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1 AND m.created_at >= $2 AND m.created_at < $3
	`, userID, from, to).Scan(&summary.TotalIncome, &summary.TotalExpenses, &summary.MovementCount)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(s.amount), 0)
		FROM savings s
		JOIN accounts a ON s.account_id = a.id
		WHERE a.user_id = $1 AND s.created_at >= $2 AND s.created_at < $3
	`, userID, from, to).Scan(&summary.TotalSavings)
	if err != nil {
		return nil, err
	}

	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}

type MonthlyCashflow struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// Cashflow returns the month-by-month income/expense series for a year.
func (s *ReportsService) Cashflow(ctx context.Context, userID string, year int) ([]MonthlyCashflow, error) {
	if year < 2000 || year > 2100 {
		return nil, validationError("year out of range")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT TO_CHAR(DATE_TRUNC('month', m.created_at), 'YYYY-MM'),
			COALESCE(SUM(CASE WHEN m.kind = 'income' THEN m.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.kind IN ('expense', 'direct_debit') THEN m.amount ELSE 0 END), 0)
		FROM movements m
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1 AND EXTRACT(YEAR FROM m.created_at) = $2
		GROUP BY 1
		ORDER BY 1
	`, userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []MonthlyCashflow{}
	for rows.Next() {
		var m MonthlyCashflow
		if err := rows.Scan(&m.Month, &m.Income, &m.Expenses); err != nil {
			return nil, err
		}
		m.Net = m.Income.Sub(m.Expenses)
		series = append(series, m)
	}
	return series, nil
}

type CategoryBreakdown struct {
	Category string          `json:"category"`
	Kind     string          `json:"kind"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Categories breaks movements down per category and kind within a range.
func (s *ReportsService) Categories(ctx context.Context, userID string, r DateRange) ([]CategoryBreakdown, error) {
	from, to := rangeBounds(r)

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, m.kind, SUM(m.amount), COUNT(*)
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1 AND m.created_at >= $2 AND m.created_at < $3
		GROUP BY c.name, m.kind
		ORDER BY SUM(m.amount) DESC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := []CategoryBreakdown{}
	for rows.Next() {
		var b CategoryBreakdown
		if err := rows.Scan(&b.Category, &b.Kind, &b.Total, &b.Count); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	return breakdown, nil
}

type RecurringPayment struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	AvgAmount   decimal.Decimal `json:"avg_amount"`
	Occurrences int             `json:"occurrences"`
	LastSeen    time.Time       `json:"last_seen"`
}

// Recurring detects direct debits that repeated across the lookback window.
func (s *ReportsService) Recurring(ctx context.Context, userID string, months int) ([]RecurringPayment, error) {
	if months <= 0 {
		months = 6
	}
	if months > 36 {
		return nil, validationError("months lookback too large")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(m.description, ''), c.name, ROUND(AVG(m.amount), 2), COUNT(*), MAX(m.created_at)
		FROM movements m
		JOIN categories c ON m.category_id = c.id
		JOIN accounts a ON m.account_id = a.id
		WHERE a.user_id = $1
		  AND m.kind = 'direct_debit'
		  AND m.created_at >= NOW() - ($2 * INTERVAL '1 month')
		GROUP BY m.description, c.name
		HAVING COUNT(*) >= 2
		ORDER BY COUNT(*) DESC
	`, userID, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recurring := []RecurringPayment{}
	for rows.Next() {
		var r RecurringPayment
		if err := rows.Scan(&r.Description, &r.Category, &r.AvgAmount, &r.Occurrences, &r.LastSeen); err != nil {
			return nil, err
		}
		recurring = append(recurring, r)
	}
	return recurring, nil
}

type SavingsOverview struct {
	TotalSaved    decimal.Decimal `json:"total_saved"`
	PoolCount     int             `json:"pool_count"`
	GoalsTotal    decimal.Decimal `json:"goals_total"`
	GoalsProgress float64         `json:"goals_progress_pct"`
}

func (s *ReportsService) Savings(ctx context.Context, userID string) (*SavingsOverview, error) {
	overview := &SavingsOverview{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(s.amount), 0), COUNT(*), COALESCE(SUM(g.target_amount), 0)
		FROM savings s
		JOIN accounts a ON s.account_id = a.id
		LEFT JOIN savings_goals g ON g.saving_id = s.id
		WHERE a.user_id = $1
	`, userID).Scan(&overview.TotalSaved, &overview.PoolCount, &overview.GoalsTotal)
	if err != nil {
		return nil, err
	}

	if overview.GoalsTotal.IsPositive() {
		overview.GoalsProgress, _ = overview.TotalSaved.Div(overview.GoalsTotal).Mul(decimal.NewFromInt(100)).Float64()
	}
	return overview, nil
}

func rangeBounds(r DateRange) (time.Time, time.Time) {
	from := r.From
	if from.IsZero() {
		from = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	to := r.To
	if to.IsZero() {
		to = time.Now().AddDate(0, 0, 1)
	}
	return from, to
}
