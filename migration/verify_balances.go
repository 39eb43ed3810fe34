// migration/verify_balances.go
// Integrity audit for the balance invariant: every account balance must equal
// the signed sum of its committed movements minus its savings transfers.
//
// USAGE:
// Set VERIFY_BALANCES=true and the check runs once at startup, after
// migrations. Mismatches are logged as integrity alarms; the process refuses
// to start so drift never goes unnoticed.

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

type balanceMismatch struct {
	AccountID string
	Stored    decimal.Decimal
	Computed  decimal.Decimal
}

// VerifyBalances recomputes every account balance from its ledger history and
// compares it with the stored value.
func VerifyBalances(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.balance,
			COALESCE((
				SELECT SUM(CASE WHEN m.kind = 'income' THEN m.amount ELSE -m.amount END)
				FROM movements m WHERE m.account_id = a.id
			), 0)
			-
			COALESCE((
				SELECT SUM(s.amount)
				FROM savings s WHERE s.account_id = a.id
			), 0)
		FROM accounts a
	`)
	if err != nil {
		return fmt.Errorf("failed to audit balances: %w", err)
	}
	defer rows.Close()

	var mismatches []balanceMismatch
	checked := 0
	for rows.Next() {
		var m balanceMismatch
		if err := rows.Scan(&m.AccountID, &m.Stored, &m.Computed); err != nil {
			return fmt.Errorf("failed to read audit row: %w", err)
		}
		checked++
		if !m.Stored.Equal(m.Computed) {
			mismatches = append(mismatches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(mismatches) == 0 {
		log.Printf("✅ Balance audit passed: %d accounts consistent", checked)
		return nil
	}

	for _, m := range mismatches {
		log.Printf("🚨 Balance mismatch on account %s: stored %s, ledger history sums to %s",
			m.AccountID, m.Stored.StringFixed(2), m.Computed.StringFixed(2))
	}
	return fmt.Errorf("balance audit found %d inconsistent accounts", len(mismatches))
}
