package worker

import "context"

type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (Worker, error)
	GetByIDs(ctx context.Context, ids []string) ([]Worker, error)
}
