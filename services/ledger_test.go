package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/fintrackapp/finance-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "6f1f9026-98ab-4f7a-8a44-8c3a5f1f1d10"
	testAccountID = "a3de5b12-7c41-4df3-9a3e-2f6d31f0c9b7"
	testCategory  = "c1b2a3d4-0001-4000-8000-000000000001"
)

var (
	lockQuery     = regexp.QuoteMeta(`SELECT id, balance FROM accounts WHERE user_id = $1 FOR UPDATE`)
	categoryQuery = regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`)
	insertMvQuery = `INSERT INTO movements`
	insertSvQuery = `INSERT INTO savings`
	updateQuery   = `UPDATE accounts`
)

func accountRow(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "balance"}).AddRow(testAccountID, balance)
}

func categoryRow(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func movementReq(kind, amount string) models.CreateMovementRequest {
	return models.CreateMovementRequest{
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: testCategory,
	}
}

func TestLedger_RecordMovement_Income(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("700.00"))
	mock.ExpectCommit()

	movement, err := ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "200.00"))
	assert.NoError(err)
	require.NotNil(t, movement)
	assert.Equal(models.MovementIncome, movement.Kind)
	assert.Equal(testAccountID, movement.AccountID)
	assert.True(movement.Amount.Equal(decimal.RequireFromString("200.00")))
	assert.NotEmpty(movement.ID)
	assert.False(movement.CreatedAt.IsZero())
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_ExpenseDebitsBalance(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("425.50"))
	mock.ExpectCommit()

	movement, err := ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementExpense, "74.50"))
	assert.NoError(err)
	require.NotNil(t, movement)
	assert.Equal(models.MovementExpense, movement.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_InsufficientFunds(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	// Balance 50.00, expense 75.00: no insert, no update, rollback.
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("50.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectRollback()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementExpense, "75.00"))
	require.Error(t, err)

	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindInsufficientFunds, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_SameAccountWritersSerialize(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	// Two Expense(60) against a balance of 100. The row lock serializes
	// them: the first locks 100.00 and commits 40.00, the second's locked
	// read sees 40.00 and must be rejected with the state unchanged.
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("100.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("40.00"))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("40.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectRollback()

	first, err := ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementExpense, "60.00"))
	assert.NoError(err)
	require.NotNil(t, first)

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementExpense, "60.00"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindInsufficientFunds, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_ExactBalanceSpendAllowed(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("100.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("0.00"))
	mock.ExpectCommit()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementDirectDebit, "100.00"))
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_Validation(t *testing.T) {
	assert := assert.New(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	cases := []struct {
		name string
		req  models.CreateMovementRequest
	}{
		{"zero amount", movementReq(models.MovementIncome, "0")},
		{"negative amount", movementReq(models.MovementExpense, "-10.00")},
		{"unknown kind", movementReq("transfer", "10.00")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.RecordMovement(context.Background(), testUserID, tc.req)
			var lerr *LedgerError
			require.True(t, errors.As(err, &lerr))
			assert.Equal(KindValidation, lerr.Kind)
		})
	}
}

func TestLedger_RecordMovement_AccountNotFound(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))
	mock.ExpectRollback()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "10.00"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindNotFound, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_CategoryNotFound(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(false))
	mock.ExpectRollback()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "10.00"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindNotFound, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_RollsBackOnInsertFailure(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "10.00"))
	assert.Error(err)
	// Not a typed ledger error and not transient: surfaced as-is, no retry.
	var lerr *LedgerError
	assert.False(errors.As(err, &lerr))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_RetriesSerializationFailure(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	// First attempt aborts with a serialization failure, second succeeds.
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("700.00"))
	mock.ExpectCommit()

	movement, err := ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "200.00"))
	assert.NoError(err)
	assert.NotNil(movement)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_TransientAfterRetriesExhausted(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	for i := 0; i < ledger.maxRetries; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testUserID).
			WillReturnError(&pq.Error{Code: "40P01"})
		mock.ExpectRollback()
	}

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "10.00"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindTransient, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordMovement_ConsistencyViolation(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	// The balance update lands on a value that disagrees with the locked
	// read plus delta: the transaction must abort.
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("500.00"))
	mock.ExpectQuery(categoryQuery).WithArgs(testCategory).WillReturnRows(categoryRow(true))
	mock.ExpectQuery(insertMvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("999.99"))
	mock.ExpectRollback()

	_, err = ledger.RecordMovement(context.Background(), testUserID, movementReq(models.MovementIncome, "200.00"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindConsistencyViolation, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordSaving(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	// Balance 300.00, saving 100.00 leaves 200.00.
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("300.00"))
	mock.ExpectQuery(insertSvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("200.00"))
	mock.ExpectCommit()

	saving, err := ledger.RecordSaving(context.Background(), testUserID, decimal.RequireFromString("100.00"))
	assert.NoError(err)
	require.NotNil(t, saving)
	assert.Equal(testAccountID, saving.AccountID)
	assert.True(saving.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordSaving_InsufficientFunds(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("300.00"))
	mock.ExpectRollback()

	_, err = ledger.RecordSaving(context.Background(), testUserID, decimal.RequireFromString("300.01"))
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindInsufficientFunds, lerr.Kind)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordSaving_ExactBalanceAllowed(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(testUserID).WillReturnRows(accountRow("300.00"))
	mock.ExpectQuery(insertSvQuery).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(updateQuery).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("0.00"))
	mock.ExpectCommit()

	_, err = ledger.RecordSaving(context.Background(), testUserID, decimal.RequireFromString("300.00"))
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_RecordSaving_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	_, err = ledger.RecordSaving(context.Background(), testUserID, decimal.Zero)
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindValidation, lerr.Kind)
}

func TestLedger_Balance(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, balance FROM accounts WHERE user_id = $1`)).
		WithArgs(testUserID).
		WillReturnRows(accountRow("123.45"))

	balance, err := ledger.Balance(context.Background(), testUserID)
	assert.NoError(err)
	require.NotNil(t, balance)
	assert.Equal(testAccountID, balance.AccountID)
	assert.True(balance.Balance.Equal(decimal.RequireFromString("123.45")))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestLedger_Balance_NotFound(t *testing.T) {
	assert := assert.New(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, balance FROM accounts WHERE user_id = $1`)).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))

	_, err = ledger.Balance(context.Background(), testUserID)
	var lerr *LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(KindNotFound, lerr.Kind)
}

func TestIsTransient(t *testing.T) {
	assert := assert.New(t)

	assert.True(isTransient(&pq.Error{Code: "40001"}))
	assert.True(isTransient(&pq.Error{Code: "40P01"}))
	assert.True(isTransient(&pq.Error{Code: "55P03"}))
	assert.False(isTransient(&pq.Error{Code: "23505"}))
	assert.True(isTransient(context.DeadlineExceeded))
	assert.False(isTransient(errors.New("boom")))
}
