package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func epfLine(gross string) payroll.BreakdownLine {
	entry := deduction.Entry{
		Code: "EPF", Name: "Employees Provident Fund", Kind: deduction.KindPercentage,
		EmployeeRate: decPtr("11"), EmployerRate: decPtr("13"),
	}
	line, err := payroll.NewBreakdownLine(deduction.DefaultDispatcher, entry, dec(gross))
	if err != nil {
		panic(err)
	}
	return line
}

func TestPayrollRepository_FindOrCreateAggregateIsStable(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()
	month := payroll.NewMonth(2025, time.December)

	first, err := repo.FindOrCreateAggregate(ctx, month)
	require.NoError(t, err)
	second, err := repo.FindOrCreateAggregate(ctx, month)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, month, second.Month)

	_, err = repo.GetAggregateByMonth(ctx, payroll.NewMonth(2025, time.November))
	assert.ErrorIs(t, err, payroll.ErrAggregateNotFound)
}

func TestPayrollRepository_UpsertDetailReplacesFigures(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()
	workerID := insertWorker(t, db, "Aminah", "local")

	agg, err := repo.FindOrCreateAggregate(ctx, payroll.NewMonth(2025, time.December))
	require.NoError(t, err)

	at := time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)
	first, err := repo.UpsertDetail(ctx, payroll.NewDetail(agg.ID, workerID, dec("3000"),
		payroll.NewBreakdown(epfLine("3000")), "manager", at))
	require.NoError(t, err)
	assert.Equal(t, "Aminah", *first.WorkerName)
	assert.Equal(t, agg.Month, first.Month)
	assert.Equal(t, "330.00", first.EmployeeDeductions.StringFixed(2))

	second, err := repo.UpsertDetail(ctx, payroll.NewDetail(agg.ID, workerID, dec("2000"),
		payroll.NewBreakdown(epfLine("2000")), "auditor", at.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "220.00", second.EmployeeDeductions.StringFixed(2))
	assert.Equal(t, "1780.00", second.NetSalary.StringFixed(2))
	assert.Equal(t, "auditor", second.CalculatedBy)

	line, ok := second.Breakdown.Line("EPF")
	require.True(t, ok)
	assert.True(t, line.EmployerAmount.Equal(dec("260")))

	details, err := repo.ListDetails(ctx, agg.ID)
	require.NoError(t, err)
	assert.Len(t, details, 1)
}

func TestPayrollRepository_EmptyBreakdownRoundTrips(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()
	workerID := insertWorker(t, db, "Chen", "foreigner_no_passport")

	agg, err := repo.FindOrCreateAggregate(ctx, payroll.NewMonth(2025, time.December))
	require.NoError(t, err)

	saved, err := repo.UpsertDetail(ctx, payroll.NewDetail(agg.ID, workerID, dec("5000"), nil, "manager", time.Now()))
	require.NoError(t, err)
	assert.Empty(t, saved.Breakdown)
	assert.True(t, saved.NetSalary.Equal(dec("5000")))
}

func TestPayrollRepository_UpdateTotals(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()

	agg, err := repo.FindOrCreateAggregate(ctx, payroll.NewMonth(2025, time.December))
	require.NoError(t, err)

	agg.Recompute([]payroll.Detail{
		payroll.NewDetail(agg.ID, "w", dec("3000"), payroll.NewBreakdown(epfLine("3000")), "manager", time.Now()),
	})
	require.NoError(t, repo.UpdateTotals(ctx, agg))

	got, err := repo.GetAggregateByID(ctx, agg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DetailCount)
	assert.Equal(t, "2670.00", got.TotalNet.StringFixed(2))
	assert.Equal(t, "390.00", got.TotalEmployerDeductions.StringFixed(2))
}

func TestPayrollRepository_LockWorkerMonthNeedsTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()
	month := payroll.NewMonth(2025, time.December)

	assert.Error(t, repo.LockWorkerMonth(ctx, "w-1", month))

	err := db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.LockWorkerMonth(ctx, "w-1", month); err != nil {
			return err
		}
		// Re-entrant within the same transaction.
		return repo.LockWorkerMonth(ctx, "w-1", month)
	})
	assert.NoError(t, err)
}

func TestPayrollRepository_LockAggregate(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPayrollRepository(db)
	ctx := context.Background()

	agg, err := repo.FindOrCreateAggregate(ctx, payroll.NewMonth(2025, time.December))
	require.NoError(t, err)

	_, err = repo.LockAggregate(ctx, agg.ID)
	assert.Error(t, err)

	err = db.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.LockAggregate(ctx, agg.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, agg.ID, locked.ID)

		_, err = repo.LockAggregate(ctx, "agg-1")
		assert.ErrorIs(t, err, payroll.ErrAggregateNotFound)
		return nil
	})
	assert.NoError(t, err)
}
