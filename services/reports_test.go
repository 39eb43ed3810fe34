package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	assert := assert.New(t)

	r, err := ParseDateRange("2025-01-01", "2025-01-31")
	assert.NoError(err)
	assert.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), r.From)
	// End day is inclusive: queries use created_at < To.
	assert.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), r.To)

	r, err = ParseDateRange("", "")
	assert.NoError(err)
	assert.True(r.From.IsZero())
	assert.True(r.To.IsZero())

	_, err = ParseDateRange("01/01/2025", "")
	assertValidation(t, err)

	_, err = ParseDateRange("", "not-a-date")
	assertValidation(t, err)

	_, err = ParseDateRange("2025-06-01", "2025-01-01")
	assertValidation(t, err)
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindValidation, lerr.Kind)
}

func TestReportsSummary(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewReportsService(db)

	mock.ExpectQuery(`SELECT(?s).+FROM movements m`).
		WillReturnRows(sqlmock.NewRows([]string{"income", "expenses", "count"}).
			AddRow("1200.00", "450.25", 14))
	mock.ExpectQuery(`SELECT(?s).+FROM savings s`).
		WillReturnRows(sqlmock.NewRows([]string{"savings"}).AddRow("300.00"))

	r, _ := ParseDateRange("2025-01-01", "2025-12-31")
	summary, err := svc.Summary(context.Background(), testUserID, r)
	assert.NoError(err)
	require.NotNil(t, summary)
	assert.Equal("1200", summary.TotalIncome.String())
	assert.Equal("450.25", summary.TotalExpenses.String())
	assert.Equal("749.75", summary.NetBalance.String())
	assert.Equal("300", summary.TotalSavings.String())
	assert.Equal(14, summary.MovementCount)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestReportsCashflow(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewReportsService(db)

	mock.ExpectQuery(`SELECT TO_CHAR`).
		WithArgs(testUserID, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"month", "income", "expenses"}).
			AddRow("2025-01", "1000.00", "400.00").
			AddRow("2025-02", "1000.00", "1250.00"))

	series, err := svc.Cashflow(context.Background(), testUserID, 2025)
	assert.NoError(err)
	require.Len(t, series, 2)
	assert.Equal("2025-01", series[0].Month)
	assert.Equal("600", series[0].Net.String())
	assert.Equal("-250", series[1].Net.String())
	assert.NoError(mock.ExpectationsWereMet())
}

func TestReportsCashflow_YearOutOfRange(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewReportsService(db)

	_, err = svc.Cashflow(context.Background(), testUserID, 1999)
	assertValidation(t, err)

	_, err = svc.Cashflow(context.Background(), testUserID, 2101)
	assertValidation(t, err)
}

func TestReportsRecurring_LookbackTooLarge(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewReportsService(db)

	_, err = svc.Recurring(context.Background(), testUserID, 48)
	assertValidation(t, err)
}
