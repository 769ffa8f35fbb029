package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var migrateOnce sync.Once

// tables in truncation order
var tables = []string{
	"pay_details",
	"pay_aggregates",
	"wage_ranges",
	"deduction_registry_entries",
	"work_order_histories",
	"work_order_workers",
	"work_orders",
	"workers",
}

// setupTestDB connects to TEST_DATABASE_URL, migrates it once per run and
// empties every table. Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = database.RunMigrations(dsn)
	})
	require.NoError(t, migrateErr)

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	for _, table := range tables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "truncate %s", table)
	}

	return db
}

func insertWorker(t *testing.T, db *database.DB, name, nationality string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(),
		`INSERT INTO workers (id, name, nationality) VALUES ($1, $2, $3)`, id, name, nationality)
	require.NoError(t, err)
	return id
}

type seedAssignment struct {
	workerID string
	amount   string
	kept     bool
}

func insertWorkOrder(t *testing.T, db *database.DB, number, status, rateType string, completion *time.Time, workers ...seedAssignment) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	_, err := db.Exec(ctx, `
		INSERT INTO work_orders (id, number, status, rate_type, start_date, location, completion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, number, status, rateType, date("2025-12-01"), "Block A", completion)
	require.NoError(t, err)

	for _, a := range workers {
		_, err := db.Exec(ctx, `
			INSERT INTO work_order_workers (id, work_order_id, worker_id, amount, kept)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), id, a.workerID, decimal.RequireFromString(a.amount), a.kept)
		require.NoError(t, err)
	}
	return id
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
