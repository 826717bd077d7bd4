package services

import (
	"context"
	"errors"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/store"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const reconcileAttempts = 5

// CounterCorrection records one worker whose counter had drifted.
type CounterCorrection struct {
	WorkerID primitive.ObjectID `json:"workerId"`
	Before   int                `json:"before"`
	After    int                `json:"after"`
}

// ReconcilePendingCounts recomputes every worker's pending task counter from
// the Assigned reports and overwrites the ones that disagree. Each worker is
// recounted under the same lock that Assign and UpdateStatus take, so a
// transition cannot land between the count and the write.
func (s *ReportService) ReconcilePendingCounts(ctx context.Context) ([]CounterCorrection, error) {
	workers, err := s.store.Users().List(ctx, store.UserFilter{Role: models.RoleWorker})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	corrections := make([]CounterCorrection, 0)
	for _, w := range workers {
		fix, changed, err := s.reconcileWorker(ctx, w.ID)
		if err != nil {
			return corrections, err
		}
		if !changed {
			continue
		}
		corrections = append(corrections, fix)
		s.log.WithFields(logrus.Fields{
			"workerId": fix.WorkerID.Hex(),
			"before":   fix.Before,
			"after":    fix.After,
		}).Warn("pending task counter corrected")
	}
	return corrections, nil
}

func (s *ReportService) reconcileWorker(ctx context.Context, id primitive.ObjectID) (CounterCorrection, bool, error) {
	unlock, err := s.lockWorker(ctx, id)
	if err != nil {
		return CounterCorrection{}, false, err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		var (
			fix     CounterCorrection
			changed bool
		)
		err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
			worker, err := s.store.Users().FindByID(ctx, id)
			if err != nil {
				return err
			}
			want, err := s.store.Reports().CountAssigned(ctx, id)
			if err != nil {
				return err
			}
			if worker.PendingTaskCount == want {
				return nil
			}
			fix = CounterCorrection{WorkerID: id, Before: worker.PendingTaskCount, After: want}
			changed = true
			// Writers that bypass the worker lock still make this write fail.
			return s.store.Users().SetPendingTasks(ctx, id, worker.PendingTaskCount, want)
		})
		switch {
		case err == nil:
			return fix, changed, nil
		case errors.Is(err, store.ErrStaleState) && attempt < reconcileAttempts:
			s.log.WithFields(logrus.Fields{"workerId": id.Hex(), "attempt": attempt}).Debug("pending task counter moved, recounting")
			continue
		case errors.Is(err, store.ErrStaleState):
			return CounterCorrection{}, false, apperror.Wrap(err, apperror.CodeInvalidState, "Worker counter kept changing, try again")
		default:
			return CounterCorrection{}, false, translate(err, "Worker not found")
		}
	}
}
