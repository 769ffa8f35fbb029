package workorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
)

type WorkOrderServiceImpl struct {
	tx        database.Transactor
	repo      workorder.WorkOrderRepository
	machine   *workorder.StateMachine
	processor workorder.Processor
	now       func() time.Time
}

func NewWorkOrderService(
	tx database.Transactor,
	repo workorder.WorkOrderRepository,
	machine *workorder.StateMachine,
	processor workorder.Processor,
	now func() time.Time,
) workorder.WorkOrderService {
	if machine == nil {
		machine = workorder.NewStateMachine(workorder.DefaultTransitions)
	}
	if now == nil {
		now = time.Now
	}
	return &WorkOrderServiceImpl{
		tx:        tx,
		repo:      repo,
		machine:   machine,
		processor: processor,
		now:       now,
	}
}

func (s *WorkOrderServiceImpl) Get(ctx context.Context, id string) (workorder.WorkOrder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WorkOrderServiceImpl) History(ctx context.Context, id string) ([]workorder.History, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

func (s *WorkOrderServiceImpl) Available(w workorder.WorkOrder) []workorder.Event {
	return s.machine.Available(w)
}

// Fire applies an event and records it in the history. Approval runs payroll
// processing in the same transaction, so a processing failure rolls the
// approval back and the order stays pending.
func (s *WorkOrderServiceImpl) Fire(ctx context.Context, req workorder.TransitionRequest, actor string) (workorder.TransitionResult, error) {
	if err := req.Validate(); err != nil {
		return workorder.TransitionResult{}, err
	}

	var res workorder.TransitionResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		w, err := s.repo.GetByIDForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}

		history, err := s.machine.Fire(&w, req.Event, actor, req.Remark, s.now().UTC())
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, w); err != nil {
			return err
		}
		history, err = s.repo.CreateHistory(ctx, history)
		if err != nil {
			return err
		}
		res = workorder.TransitionResult{WorkOrder: w, History: history}

		if req.Event != workorder.EventApprove {
			return nil
		}
		if w.RateType.PaysWorkers() && len(w.Workers) > 0 && w.CompletionDate == nil {
			slog.Warn("Approved work order without completion date, payroll not generated", "work_order_id", w.ID)
			return nil
		}
		message, err := s.processor.Process(ctx, w, actor).Unwrap()
		if err != nil {
			return err
		}
		res.ProcessMessage = &message
		return nil
	})
	if err != nil {
		return workorder.TransitionResult{}, err
	}

	slog.Info("Work order transition", "work_order_id", res.WorkOrder.ID, "event", string(req.Event), "from", string(res.History.FromStatus), "to", string(res.History.ToStatus), "actor", actor)
	return res, nil
}

// Process re-runs payroll generation for a completed work order. Details are
// rebuilt from current kept amounts, so repeated runs converge.
func (s *WorkOrderServiceImpl) Process(ctx context.Context, id string, actor string) (string, error) {
	var message string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		w, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != workorder.StatusCompleted {
			return workorder.ErrWorkOrderNotCompleted
		}
		message, err = s.processor.Process(ctx, w, actor).Unwrap()
		return err
	})
	if err != nil {
		return "", err
	}
	return message, nil
}
