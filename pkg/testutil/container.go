// Package testutil provides testing utilities for Flowlytix backend services.
// It includes testcontainers for PostgreSQL, mock factories, and common test
// fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "flowlytix_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "flowlytix_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateLotSchema creates the lot service schema: lot batches, the quantity
// change ledger, and the reference tables the service reads from.
// This mirrors the production migrations.
func (c *PostgresContainer) CreateLotSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS agencies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			agency_id UUID NOT NULL REFERENCES agencies(id),
			name VARCHAR(255) NOT NULL,
			sku VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS lot_batches (
			id UUID PRIMARY KEY,
			lot_number VARCHAR(50) NOT NULL,
			batch_number VARCHAR(50),
			product_id UUID NOT NULL REFERENCES products(id),
			agency_id UUID NOT NULL REFERENCES agencies(id),
			manufacturing_date DATE NOT NULL,
			expiry_date DATE,
			quantity BIGINT NOT NULL,
			remaining_quantity BIGINT NOT NULL,
			reserved_quantity BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			supplier_id UUID,
			supplier_lot_code VARCHAR(100),
			notes TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			created_by UUID NOT NULL,
			updated_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			delete_reason TEXT,
			CONSTRAINT lot_batches_quantity_bounds CHECK (
				reserved_quantity >= 0
				AND reserved_quantity <= remaining_quantity
				AND remaining_quantity <= quantity
			),
			CONSTRAINT lot_batches_status_valid CHECK (
				status IN ('ACTIVE','QUARANTINE','EXPIRED','CONSUMED','DAMAGED')
			)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS lot_batches_lot_number_batch_key
			ON lot_batches (product_id, lot_number, COALESCE(batch_number, ''))
			WHERE deleted_at IS NULL;

		CREATE INDEX IF NOT EXISTS lot_batches_fifo_idx
			ON lot_batches (agency_id, product_id, manufacturing_date, lot_number);

		CREATE INDEX IF NOT EXISTS lot_batches_expiry_idx
			ON lot_batches (expiry_date) WHERE deleted_at IS NULL;

		CREATE TABLE IF NOT EXISTS lot_quantity_history (
			id UUID PRIMARY KEY,
			lot_batch_id UUID NOT NULL REFERENCES lot_batches(id) ON DELETE CASCADE,
			change_type VARCHAR(20) NOT NULL,
			quantity_before BIGINT NOT NULL,
			quantity_after BIGINT NOT NULL,
			quantity_change BIGINT NOT NULL,
			reason TEXT,
			reference_id UUID,
			reference_type VARCHAR(50),
			performed_by UUID NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			notes TEXT,
			CONSTRAINT lot_quantity_history_change_type_valid CHECK (
				change_type IN ('CREATED','RESERVED','RELEASED','CONSUMED','ADJUSTED','EXPIRED')
			)
		);

		CREATE INDEX IF NOT EXISTS lot_quantity_history_lot_idx
			ON lot_quantity_history (lot_batch_id, changed_at);

		CREATE TABLE IF NOT EXISTS user_directory (
			user_id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			role_name VARCHAR(100) NOT NULL,
			permissions TEXT[] NOT NULL DEFAULT '{}',
			agency_id UUID,
			synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create lot schema: %w", err)
	}

	return nil
}
