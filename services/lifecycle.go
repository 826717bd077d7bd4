package services

import (
	"context"
	"errors"
	"strings"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/storage"

	"github.com/sirupsen/logrus"
)

// StatusUpdate is a worker's request to finish an assigned report.
type StatusUpdate struct {
	ReportID   string
	WorkerID   string
	Status     models.ReportStatus
	Notes      string
	AfterImage []byte
}

// UpdateStatus completes or declines a report on behalf of its assignee and
// releases one unit of the worker's pending task counter.
func (s *ReportService) UpdateStatus(ctx context.Context, in StatusUpdate) (*models.ReportView, error) {
	rid, err := parseID(in.ReportID, "report")
	if err != nil {
		return nil, err
	}
	wid, err := parseID(in.WorkerID, "worker")
	if err != nil {
		return nil, err
	}

	if in.Status != models.StatusCompleted && in.Status != models.StatusDeclined {
		return nil, apperror.InvalidArgument("Invalid status value")
	}
	notes := strings.TrimSpace(in.Notes)
	if in.Status == models.StatusCompleted && len(in.AfterImage) == 0 {
		return nil, apperror.InvalidArgument("An after image is required to complete a report")
	}
	if in.Status == models.StatusDeclined && notes == "" {
		return nil, apperror.InvalidArgument("Notes are required to decline a report")
	}

	report, err := s.store.Reports().FindByID(ctx, rid)
	if err != nil {
		return nil, translate(err, "Report not found")
	}
	if !report.IsAssignedTo(wid) {
		return nil, apperror.Forbidden("This report is not assigned to you")
	}
	if !models.CanTransition(report.Status, in.Status) {
		return nil, apperror.InvalidState("Report is already " + string(report.Status))
	}

	patch := models.ReportPatch{Status: in.Status}
	if notes != "" {
		patch.WorkerNotes = &notes
	}
	if in.Status == models.StatusCompleted {
		url, err := s.images.Upload(ctx, "after", in.AfterImage)
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, err.Error())
		}
		if err != nil {
			return nil, apperror.Internal(err)
		}
		patch.ImageURLAfter = &url
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

	var updated models.Report
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		patch.UpdatedAt = s.now()
		updated, err = s.store.Reports().Transition(ctx, rid, models.StatusAssigned, patch)
		if err != nil {
			return err
		}
		return s.store.Users().AdjustPendingTasks(ctx, wid, -1)
	})
	if err != nil {
		return nil, translate(err, "Report not found")
	}

	s.log.WithFields(logrus.Fields{
		"reportId": rid.Hex(),
		"workerId": wid.Hex(),
		"status":   updated.Status,
	}).Info("report finalized by worker")

	return s.populateOne(ctx, updated)
}
