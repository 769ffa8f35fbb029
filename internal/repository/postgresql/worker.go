package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type workerRepository struct {
	db *database.DB
}

func NewWorkerRepository(db *database.DB) worker.WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) GetByID(ctx context.Context, id string) (worker.Worker, error) {
	if !validator.IsValidUUID(id) {
		return worker.Worker{}, worker.ErrWorkerNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, nationality, created_at, updated_at
		FROM workers
		WHERE id = $1
	`

	var w worker.Worker
	err := q.QueryRow(ctx, query, id).Scan(&w.ID, &w.Name, &w.Nationality, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return worker.Worker{}, worker.ErrWorkerNotFound
		}
		return worker.Worker{}, fmt.Errorf("failed to get worker: %w", err)
	}

	return w, nil
}

// GetByIDs returns the workers that exist among ids, ordered by ID. Missing
// IDs are simply absent from the result.
func (r *workerRepository) GetByIDs(ctx context.Context, ids []string) ([]worker.Worker, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, nationality, created_at, updated_at
		FROM workers
		WHERE id = ANY($1::uuid[])
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []worker.Worker
	for rows.Next() {
		var w worker.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.Nationality, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	return workers, nil
}
