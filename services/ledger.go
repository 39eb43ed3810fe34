package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/fintrackapp/finance-api/models"
	"github.com/fintrackapp/finance-api/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Ledger is the only path by which an account balance is mutated. Every
// operation runs as one bounded transaction that locks the account row first,
// so concurrent writers against the same account serialize and the
// sufficiency check can never act on a stale balance.
//
// Funds policy (applied uniformly to movements and savings): a debit is
// rejected only when the amount strictly exceeds the current balance, so
// spending or saving the exact balance is allowed.
type Ledger struct {
	db         *sql.DB
	timeout    time.Duration
	maxRetries int
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		db:         db,
		timeout:    5 * time.Second,
		maxRetries: 3,
	}
}

// RecordMovement appends an immutable movement and adjusts the balance in the
// same transaction: +amount for income, -amount for expense/direct debit.
func (l *Ledger) RecordMovement(ctx context.Context, userID string, req models.CreateMovementRequest) (*models.Movement, error) {
	switch req.Kind {
	case models.MovementIncome, models.MovementExpense, models.MovementDirectDebit:
	default:
		return nil, validationError("unknown movement kind %q", req.Kind)
	}
	if !req.Amount.IsPositive() {
		return nil, validationError("amount must be positive")
	}

	var movement *models.Movement
	err := l.withRetry("record movement", func() error {
		var err error
		movement, err = l.tryRecordMovement(ctx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (l *Ledger) tryRecordMovement(ctx context.Context, userID string, req models.CreateMovementRequest) (*models.Movement, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	movement := models.Movement{
		ID:          uuid.New().String(),
		CategoryID:  req.CategoryID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Description: req.Description,
	}

	err := utils.WithTransaction(l.db, func(tx *sql.Tx) error {
		account, err := lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		movement.AccountID = account.ID

		var categoryExists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`,
			req.CategoryID,
		).Scan(&categoryExists)
		if err != nil {
			return err
		}
		if !categoryExists {
			return notFoundError("category not found")
		}

		delta := req.Amount
		if req.Kind != models.MovementIncome {
			if req.Amount.GreaterThan(account.Balance) {
				return insufficientFundsError("insufficient funds: balance is lower than the requested amount")
			}
			delta = req.Amount.Neg()
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO movements (id, account_id, category_id, kind, amount, description)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, movement.ID, account.ID, req.CategoryID, req.Kind, req.Amount, req.Description).Scan(&movement.CreatedAt)
		if err != nil {
			return err
		}

		return applyBalanceDelta(ctx, tx, account, delta)
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("movement recorded: %s %s on account %s", movement.Kind, movement.Amount.StringFixed(2), movement.AccountID)
	return &movement, nil
}

// RecordSaving transfers funds from the account into the savings pool. It
// always debits and shares the movement path's transactional shape.
func (l *Ledger) RecordSaving(ctx context.Context, userID string, amount decimal.Decimal) (*models.Saving, error) {
	if !amount.IsPositive() {
		return nil, validationError("amount must be positive")
	}

	var saving *models.Saving
	err := l.withRetry("record saving", func() error {
		var err error
		saving, err = l.tryRecordSaving(ctx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saving, nil
}

func (l *Ledger) tryRecordSaving(ctx context.Context, userID string, amount decimal.Decimal) (*models.Saving, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	saving := models.Saving{
		ID:     uuid.New().String(),
		Amount: amount,
	}

	err := utils.WithTransaction(l.db, func(tx *sql.Tx) error {
		account, err := lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		saving.AccountID = account.ID

		if amount.GreaterThan(account.Balance) {
			return insufficientFundsError("insufficient funds: balance is lower than the requested amount")
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO savings (id, account_id, amount)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`, saving.ID, account.ID, amount).Scan(&saving.CreatedAt)
		if err != nil {
			return err
		}

		return applyBalanceDelta(ctx, tx, account, amount.Neg())
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("saving recorded: %s on account %s", saving.Amount.StringFixed(2), saving.AccountID)
	return &saving, nil
}

// Balance returns the current balance for the user's account. A single
// consistent read, no transaction needed.
func (l *Ledger) Balance(ctx context.Context, userID string) (*models.BalanceResponse, error) {
	var resp models.BalanceResponse
	err := l.db.QueryRowContext(ctx,
		`SELECT id, balance FROM accounts WHERE user_id = $1`,
		userID,
	).Scan(&resp.AccountID, &resp.Balance)
	if err == sql.ErrNoRows {
		return nil, notFoundError("no account found for user")
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// lockAccount reads the account row under an exclusive lock. It must be the
// transaction's first statement so same-account writers queue here.
func lockAccount(ctx context.Context, tx *sql.Tx, userID string) (models.Account, error) {
	account := models.Account{UserID: userID}
	err := tx.QueryRowContext(ctx,
		`SELECT id, balance FROM accounts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&account.ID, &account.Balance)
	if err == sql.ErrNoRows {
		return account, notFoundError("no account found for user")
	}
	if err != nil {
		return account, err
	}
	return account, nil
}

// applyBalanceDelta adjusts the locked account balance and cross-checks the
// result against the expected value. A mismatch means something mutated the
// balance outside the ledger; the transaction is aborted and the alarm logged.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, account models.Account, delta decimal.Decimal) error {
	expected := account.Balance.Add(delta)

	var newBalance decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`, delta, account.ID).Scan(&newBalance)
	if err != nil {
		return err
	}

	if !newBalance.Equal(expected) {
		utils.LogError("🚨 ledger integrity alarm: account %s balance %s does not match expected %s", account.ID, newBalance, expected)
		return consistencyViolation("post-update balance does not match expected delta")
	}

	return nil
}

// withRetry reruns the whole transaction on transient persistence failures.
// Nothing has committed when fn fails, so the rerun cannot double-apply.
// Terminal failures (validation, not found, insufficient funds) surface
// immediately.
func (l *Ledger) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var lerr *LedgerError
		if errors.As(err, &lerr) {
			return err
		}
		if !isTransient(err) {
			return err
		}

		utils.LogWarn("%s: transient failure (attempt %d/%d): %v", op, attempt, l.maxRetries, err)
	}
	return transientError(op+" failed after retries", err)
}

// isTransient reports whether err is a retriable persistence failure:
// serialization conflict, deadlock, lock timeout or a broken connection.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded)
}
