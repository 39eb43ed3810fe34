package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

// InitDB opens the Postgres pool. The handle is passed explicitly to every
// service and closed by main on shutdown; nothing holds it as package state.
func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			owner_id UUID NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'user',
			organization_id UUID REFERENCES organizations(id) ON DELETE SET NULL,
			totp_secret VARCHAR(512),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		// One account per user, provisioned inside the registration
		// transaction. The balance is mutated only by ledger transactions.
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			balance NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) UNIQUE NOT NULL,
			description TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS movements (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id),
			kind VARCHAR(20) NOT NULL CHECK (kind IN ('income', 'expense', 'direct_debit')),
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			description TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS savings (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS savings_goals (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			saving_id UUID UNIQUE NOT NULL REFERENCES savings(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			target_amount NUMERIC(12,2) NOT NULL CHECK (target_amount > 0)
		)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id),
			limit_amount NUMERIC(12,2) NOT NULL CHECK (limit_amount > 0),
			period VARCHAR(20) NOT NULL DEFAULT 'monthly',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id, category_id, period)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_movements_account_id ON movements(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_created_at ON movements(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_savings_account_id ON savings(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_user_id ON budgets(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_organization_id ON users(organization_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return seedCategories(db)
}

var defaultCategories = []struct {
	Name        string
	Description string
}{
	{"Food", "Groceries and dining"},
	{"Transport", "Public transport, fuel, parking"},
	{"Housing", "Rent, utilities, maintenance"},
	{"Health", "Medical expenses and insurance"},
	{"Leisure", "Entertainment and hobbies"},
	{"Salary", "Recurring employment income"},
	{"Other", "Everything else"},
}

func seedCategories(db *sql.DB) error {
	for _, c := range defaultCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, description)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, c.Name, c.Description)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	return nil
}
