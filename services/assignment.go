package services

import (
	"context"
	"fmt"

	"greenreport-be/apperror"
	"greenreport-be/models"

	"github.com/sirupsen/logrus"
)

// Assign moves a Pending report to Assigned and bumps the worker's pending
// task counter in the same transaction.
func (s *ReportService) Assign(ctx context.Context, reportID, workerID string) (*models.ReportView, error) {
	rid, err := parseID(reportID, "report")
	if err != nil {
		return nil, err
	}
	wid, err := parseID(workerID, "worker")
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockReport(ctx, rid)
	if err != nil {
		return nil, err
	}
	defer unlock()
	unlockWorker, err := s.lockWorker(ctx, wid)
	if err != nil {
		return nil, err
	}
	defer unlockWorker()

	report, err := s.store.Reports().FindByID(ctx, rid)
	if err != nil {
		return nil, translate(err, "Report not found")
	}
	worker, err := s.store.Users().FindByID(ctx, wid)
	if err != nil {
		return nil, translate(err, "Worker not found")
	}
	if worker.Role != models.RoleWorker {
		return nil, apperror.NotFound("Worker not found")
	}
	if !models.CanTransition(report.Status, models.StatusAssigned) {
		return nil, apperror.InvalidState(fmt.Sprintf("Report is already %s", report.Status))
	}
	if worker.CityKey != report.CityKey {
		return nil, apperror.InvalidArgument("Worker city does not match report city")
	}

	var updated models.Report
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Reports().Transition(ctx, rid, models.StatusPending, models.ReportPatch{
			Status:         models.StatusAssigned,
			AssignedWorker: &wid,
			UpdatedAt:      s.now(),
		})
		if err != nil {
			return err
		}
		return s.store.Users().AdjustPendingTasks(ctx, wid, 1)
	})
	if err != nil {
		return nil, translate(err, "Report not found")
	}

	s.log.WithFields(logrus.Fields{
		"reportId": rid.Hex(),
		"workerId": wid.Hex(),
		"status":   updated.Status,
	}).Info("report assigned")

	return &models.ReportView{Report: updated, AssignedWorker: worker.Ref()}, nil
}
