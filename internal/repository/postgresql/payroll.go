package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const aggregateColumns = `
	id, month_year, total_gross, total_employee_deductions, total_employer_deductions,
	total_net, detail_count, created_at, updated_at
`

func scanAggregate(row pgx.Row) (payroll.Aggregate, error) {
	var (
		a     payroll.Aggregate
		month time.Time
	)
	err := row.Scan(
		&a.ID, &month, &a.TotalGross, &a.TotalEmployeeDeductions, &a.TotalEmployerDeductions,
		&a.TotalNet, &a.DetailCount, &a.CreatedAt, &a.UpdatedAt,
	)
	a.Month = payroll.MonthOf(month)
	return a, err
}

// ========== AGGREGATES ==========

// FindOrCreateAggregate returns the aggregate of month, inserting it on first
// use. Concurrent callers for the same month get the same row.
func (r *payrollRepository) FindOrCreateAggregate(ctx context.Context, month payroll.Month) (payroll.Aggregate, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return payroll.Aggregate{}, err
	}

	query := `
		INSERT INTO pay_aggregates (id, month_year)
		VALUES ($1, $2)
		ON CONFLICT (month_year) DO UPDATE SET month_year = EXCLUDED.month_year
		RETURNING ` + aggregateColumns

	a, err := scanAggregate(q.QueryRow(ctx, query, id, month.FirstDay()))
	if err != nil {
		return payroll.Aggregate{}, fmt.Errorf("failed to find or create pay aggregate: %w", err)
	}

	return a, nil
}

func (r *payrollRepository) GetAggregateByID(ctx context.Context, id string) (payroll.Aggregate, error) {
	if !validator.IsValidUUID(id) {
		return payroll.Aggregate{}, payroll.ErrAggregateNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + aggregateColumns + ` FROM pay_aggregates WHERE id = $1`

	a, err := scanAggregate(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Aggregate{}, payroll.ErrAggregateNotFound
		}
		return payroll.Aggregate{}, fmt.Errorf("failed to get pay aggregate: %w", err)
	}

	return a, nil
}

func (r *payrollRepository) LockAggregate(ctx context.Context, id string) (payroll.Aggregate, error) {
	if _, ok := database.TxFromContext(ctx); !ok {
		return payroll.Aggregate{}, errors.New("pay aggregate lock requires a transaction")
	}
	if !validator.IsValidUUID(id) {
		return payroll.Aggregate{}, payroll.ErrAggregateNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + aggregateColumns + ` FROM pay_aggregates WHERE id = $1 FOR UPDATE`

	a, err := scanAggregate(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Aggregate{}, payroll.ErrAggregateNotFound
		}
		return payroll.Aggregate{}, fmt.Errorf("failed to lock pay aggregate: %w", err)
	}

	return a, nil
}

func (r *payrollRepository) GetAggregateByMonth(ctx context.Context, month payroll.Month) (payroll.Aggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + aggregateColumns + ` FROM pay_aggregates WHERE month_year = $1`

	a, err := scanAggregate(q.QueryRow(ctx, query, month.FirstDay()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Aggregate{}, payroll.ErrAggregateNotFound
		}
		return payroll.Aggregate{}, fmt.Errorf("failed to get pay aggregate: %w", err)
	}

	return a, nil
}

func (r *payrollRepository) ListAggregates(ctx context.Context) ([]payroll.Aggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + aggregateColumns + ` FROM pay_aggregates ORDER BY month_year`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pay aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []payroll.Aggregate
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pay aggregate: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pay aggregates: %w", err)
	}

	return aggregates, nil
}

func (r *payrollRepository) UpdateTotals(ctx context.Context, a payroll.Aggregate) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE pay_aggregates
		SET total_gross = $2, total_employee_deductions = $3, total_employer_deductions = $4,
			total_net = $5, detail_count = $6, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		a.ID, a.TotalGross, a.TotalEmployeeDeductions, a.TotalEmployerDeductions, a.TotalNet, a.DetailCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update pay aggregate totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrAggregateNotFound
	}

	return nil
}

// ========== DETAILS ==========

const detailColumns = `
	d.id, d.pay_aggregate_id, d.worker_id, d.gross_salary, d.employee_deductions,
	d.employer_deductions, d.net_salary, d.breakdown, d.calculated_by, d.calculated_at,
	d.created_at, d.updated_at, w.name, a.month_year
`

const detailFrom = `
	FROM pay_details d
	JOIN pay_aggregates a ON a.id = d.pay_aggregate_id
	LEFT JOIN workers w ON w.id = d.worker_id
`

func scanDetail(row pgx.Row) (payroll.Detail, error) {
	var (
		d         payroll.Detail
		breakdown []byte
		month     time.Time
	)
	err := row.Scan(
		&d.ID, &d.AggregateID, &d.WorkerID, &d.GrossSalary, &d.EmployeeDeductions,
		&d.EmployerDeductions, &d.NetSalary, &breakdown, &d.CalculatedBy, &d.CalculatedAt,
		&d.CreatedAt, &d.UpdatedAt, &d.WorkerName, &month,
	)
	if err != nil {
		return payroll.Detail{}, err
	}
	if err := json.Unmarshal(breakdown, &d.Breakdown); err != nil {
		return payroll.Detail{}, fmt.Errorf("failed to decode breakdown of detail %s: %w", d.ID, err)
	}
	d.Month = payroll.MonthOf(month)
	return d, nil
}

// UpsertDetail writes the detail of (aggregate, worker), replacing the figures
// of an existing row. The row keeps its ID and created_at.
func (r *payrollRepository) UpsertDetail(ctx context.Context, detail payroll.Detail) (payroll.Detail, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return payroll.Detail{}, err
	}
	breakdown, err := json.Marshal(detail.Breakdown)
	if err != nil {
		return payroll.Detail{}, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	query := `
		INSERT INTO pay_details (
			id, pay_aggregate_id, worker_id, gross_salary, employee_deductions,
			employer_deductions, net_salary, breakdown, calculated_by, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pay_aggregate_id, worker_id) DO UPDATE SET
			gross_salary = EXCLUDED.gross_salary,
			employee_deductions = EXCLUDED.employee_deductions,
			employer_deductions = EXCLUDED.employer_deductions,
			net_salary = EXCLUDED.net_salary,
			breakdown = EXCLUDED.breakdown,
			calculated_by = EXCLUDED.calculated_by,
			calculated_at = EXCLUDED.calculated_at,
			updated_at = NOW()
		RETURNING id
	`

	var savedID string
	err = q.QueryRow(ctx, query,
		id, detail.AggregateID, detail.WorkerID, detail.GrossSalary, detail.EmployeeDeductions,
		detail.EmployerDeductions, detail.NetSalary, breakdown, detail.CalculatedBy, detail.CalculatedAt,
	).Scan(&savedID)
	if err != nil {
		return payroll.Detail{}, fmt.Errorf("failed to upsert pay detail: %w", err)
	}

	return r.GetDetailByID(ctx, savedID)
}

func (r *payrollRepository) GetDetailByID(ctx context.Context, id string) (payroll.Detail, error) {
	if !validator.IsValidUUID(id) {
		return payroll.Detail{}, payroll.ErrDetailNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + detailColumns + detailFrom + ` WHERE d.id = $1`

	d, err := scanDetail(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Detail{}, payroll.ErrDetailNotFound
		}
		return payroll.Detail{}, fmt.Errorf("failed to get pay detail: %w", err)
	}

	return d, nil
}

// ListDetails returns the details of an aggregate ordered by worker ID, the
// order worker-month locks are taken in.
func (r *payrollRepository) ListDetails(ctx context.Context, aggregateID string) ([]payroll.Detail, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + detailColumns + detailFrom + ` WHERE d.pay_aggregate_id = $1 ORDER BY d.worker_id`

	rows, err := q.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pay details: %w", err)
	}
	defer rows.Close()

	var details []payroll.Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pay detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pay details: %w", err)
	}

	return details, nil
}

// ========== LOCKS ==========

// LockWorkerMonth takes a transaction-scoped advisory lock on (worker, month).
// Outside a transaction the lock would be released immediately, so it is
// refused.
func (r *payrollRepository) LockWorkerMonth(ctx context.Context, workerID string, month payroll.Month) error {
	tx, ok := database.TxFromContext(ctx)
	if !ok {
		return errors.New("worker-month lock requires a transaction")
	}

	key := workerID + "|" + month.String()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("failed to lock worker %s for %s: %w", workerID, month, err)
	}

	return nil
}
