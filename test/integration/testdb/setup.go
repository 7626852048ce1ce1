package testdb

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/collections-service/internal/db"
)

// TestDBConfig holds test database configuration
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// GetTestDBConfig returns test database configuration from environment or defaults
func GetTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnv("TEST_DB_PORT", "5432"),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "collections_test"),
	}
}

func (c TestDBConfig) url() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SetupTestDB connects to the test database, applies the embedded
// migrations and empties every table. The test is skipped when no database
// is reachable.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := GetTestDBConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.url())
	if err != nil {
		t.Fatalf("Failed to parse database config: %v", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Skipf("Test database unavailable: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Test database unavailable: %v", err)
	}

	if err := runMigrations(pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	CleanDatabase(t, pool)
	t.Cleanup(func() { TeardownTestDB(t, pool) })

	t.Logf("Test database setup complete: %s", cfg.Database)
	return pool
}

// CleanDatabase truncates all tables for a fresh test state
func CleanDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE settlement_receipts, transactions, invoices, payers RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// TeardownTestDB closes the database connection pool
func TeardownTestDB(t *testing.T, pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
		t.Log("Test database connection closed")
	}
}

// SeedInvoice inserts a payer with a valid address and one pending invoice
// for amount, due on due. Returns the invoice id.
func SeedInvoice(t *testing.T, pool *pgxpool.Pool, amount decimal.Decimal, due time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	var payerID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO payers (name, tax_id, email, phone, address_street, address_number,
		                    address_district, address_city, address_state, address_postal_code)
		VALUES ('Maria Souza', '52998224725', 'maria@example.com', '11987654321', 'Av. Paulista', '1000',
		        'Bela Vista', 'Sao Paulo', 'SP', '01310100')
		RETURNING id`).Scan(&payerID)
	if err != nil {
		t.Fatalf("Failed to seed payer: %v", err)
	}

	var invoiceID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO invoices (payer_id, amount, start_date, due_date, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id`,
		payerID, amount.StringFixed(2), due.AddDate(0, -1, 0).Format("2006-01-02"), due.Format("2006-01-02"),
	).Scan(&invoiceID)
	if err != nil {
		t.Fatalf("Failed to seed invoice: %v", err)
	}
	return invoiceID
}

func runMigrations(pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("failed to execute migrations: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
