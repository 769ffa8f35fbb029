package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type workOrderRepository struct {
	db *database.DB
}

func NewWorkOrderRepository(db *database.DB) workorder.WorkOrderRepository {
	return &workOrderRepository{db: db}
}

const workOrderColumns = `
	id, number, status, rate_type, start_date, location, work_month,
	completion_date, approved_by, approved_at, created_at, updated_at
`

func scanWorkOrder(row pgx.Row) (workorder.WorkOrder, error) {
	var w workorder.WorkOrder
	err := row.Scan(
		&w.ID, &w.Number, &w.Status, &w.RateType, &w.StartDate, &w.Location, &w.WorkMonth,
		&w.CompletionDate, &w.ApprovedBy, &w.ApprovedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

// ========== WORK ORDERS ==========

func (r *workOrderRepository) GetByID(ctx context.Context, id string) (workorder.WorkOrder, error) {
	return r.get(ctx, id, false)
}

func (r *workOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (workorder.WorkOrder, error) {
	return r.get(ctx, id, true)
}

func (r *workOrderRepository) get(ctx context.Context, id string, forUpdate bool) (workorder.WorkOrder, error) {
	if !validator.IsValidUUID(id) {
		return workorder.WorkOrder{}, workorder.ErrWorkOrderNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	w, err := scanWorkOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workorder.WorkOrder{}, workorder.ErrWorkOrderNotFound
		}
		return workorder.WorkOrder{}, fmt.Errorf("failed to get work order: %w", err)
	}

	w.Workers, err = r.listAssignments(ctx, w.ID)
	if err != nil {
		return workorder.WorkOrder{}, err
	}
	return w, nil
}

func (r *workOrderRepository) listAssignments(ctx context.Context, workOrderID string) ([]workorder.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, work_order_id, worker_id, amount, kept
		FROM work_order_workers
		WHERE work_order_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work order workers: %w", err)
	}
	defer rows.Close()

	var assignments []workorder.Assignment
	for rows.Next() {
		var a workorder.Assignment
		if err := rows.Scan(&a.ID, &a.WorkOrderID, &a.WorkerID, &a.Amount, &a.Kept); err != nil {
			return nil, fmt.Errorf("failed to scan work order worker: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list work order workers: %w", err)
	}

	return assignments, nil
}

// UpdateStatus writes the lifecycle columns of w.
func (r *workOrderRepository) UpdateStatus(ctx context.Context, w workorder.WorkOrder) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE work_orders
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, w.ID, w.Status, w.ApprovedBy, w.ApprovedAt)
	if err != nil {
		return fmt.Errorf("failed to update work order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workorder.ErrWorkOrderNotFound
	}

	return nil
}

// ========== HISTORY ==========

func (r *workOrderRepository) CreateHistory(ctx context.Context, h workorder.History) (workorder.History, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return workorder.History{}, err
	}

	query := `
		INSERT INTO work_order_histories (id, work_order_id, event, from_status, to_status, actor, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, work_order_id, event, from_status, to_status, actor, remark, created_at
	`

	var out workorder.History
	err = q.QueryRow(ctx, query,
		id, h.WorkOrderID, h.Event, h.FromStatus, h.ToStatus, h.Actor, h.Remark, h.CreatedAt,
	).Scan(
		&out.ID, &out.WorkOrderID, &out.Event, &out.FromStatus, &out.ToStatus, &out.Actor, &out.Remark, &out.CreatedAt,
	)
	if err != nil {
		return workorder.History{}, fmt.Errorf("failed to create work order history: %w", err)
	}

	return out, nil
}

func (r *workOrderRepository) ListHistory(ctx context.Context, workOrderID string) ([]workorder.History, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, work_order_id, event, from_status, to_status, actor, remark, created_at
		FROM work_order_histories
		WHERE work_order_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work order history: %w", err)
	}
	defer rows.Close()

	var history []workorder.History
	for rows.Next() {
		var h workorder.History
		if err := rows.Scan(&h.ID, &h.WorkOrderID, &h.Event, &h.FromStatus, &h.ToStatus, &h.Actor, &h.Remark, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan work order history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list work order history: %w", err)
	}

	return history, nil
}

// ========== PAYROLL SOURCE ==========

func (r *workOrderRepository) SumKeptAmounts(ctx context.Context, workerID string, from, until time.Time) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(a.amount), 0)
		FROM work_order_workers a
		JOIN work_orders w ON w.id = a.work_order_id
		WHERE a.worker_id = $1
		  AND a.kept
		  AND w.status = 'completed'
		  AND w.rate_type <> 'resources'
		  AND w.completion_date BETWEEN $2 AND $3
	`

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, query, workerID, from, until).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum kept amounts: %w", err)
	}

	return sum, nil
}
