package utils

import "database/sql"

// WithTransaction runs fn inside a transaction, guaranteeing rollback on any
// error or panic. Every balance-affecting code path goes through here so
// begin/commit/rollback handling lives in exactly one place.
func WithTransaction(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
