// Package services implements the report lifecycle, assignment, queries and
// account operations on top of the store.
package services

import (
	"context"
	"errors"
	"time"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/store"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageStore turns an uploaded image into a public URL.
type ImageStore interface {
	Upload(ctx context.Context, folder string, data []byte) (string, error)
}

// ReportService owns every operation that reads or changes reports.
type ReportService struct {
	store  store.Store
	locker Locker
	images ImageStore
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewReportService(st store.Store, locker Locker, images ImageStore, log logrus.FieldLogger) *ReportService {
	return &ReportService{store: st, locker: locker, images: images, log: log, now: time.Now}
}

func reportLockKey(id primitive.ObjectID) string {
	return "report-lock:" + id.Hex()
}

func workerLockKey(id primitive.ObjectID) string {
	return "worker-lock:" + id.Hex()
}

func (s *ReportService) lockReport(ctx context.Context, id primitive.ObjectID) (func(), error) {
	return s.lock(ctx, reportLockKey(id), "Report is being updated, try again")
}

// lockWorker guards a worker's pending task counter. Callers that also hold a
// report lock must take it after the report lock.
func (s *ReportService) lockWorker(ctx context.Context, id primitive.ObjectID) (func(), error) {
	return s.lock(ctx, workerLockKey(id), "Worker is being updated, try again")
}

func (s *ReportService) lock(ctx context.Context, key, busy string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key)
	if errors.Is(err, ErrLockBusy) {
		return nil, apperror.Wrap(err, apperror.CodeInvalidState, busy)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return unlock, nil
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidArgument("Invalid " + what + " ID")
	}
	return id, nil
}

// translate maps store sentinels onto the error taxonomy.
func translate(err error, notFound string) error {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperror.Wrap(err, apperror.CodeNotFound, notFound)
	case errors.Is(err, store.ErrStaleState):
		return apperror.Wrap(err, apperror.CodeInvalidState, "Report status changed, reload and try again")
	case errors.Is(err, store.ErrDuplicate):
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "Email already exists")
	default:
		return apperror.Internal(err)
	}
}

// populate resolves assignedWorker references with one batched lookup.
func (s *ReportService) populate(ctx context.Context, reports []models.Report) ([]models.ReportView, error) {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, r := range reports {
		if r.AssignedWorker != nil && !seen[*r.AssignedWorker] {
			seen[*r.AssignedWorker] = true
			ids = append(ids, *r.AssignedWorker)
		}
	}

	refs := make(map[primitive.ObjectID]*models.WorkerRef, len(ids))
	if len(ids) > 0 {
		users, err := s.store.Users().FindByIDs(ctx, ids)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		for _, u := range users {
			refs[u.ID] = u.Ref()
		}
	}

	views := make([]models.ReportView, 0, len(reports))
	for _, r := range reports {
		view := models.ReportView{Report: r}
		if r.AssignedWorker != nil {
			view.AssignedWorker = refs[*r.AssignedWorker]
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ReportService) populateOne(ctx context.Context, report models.Report) (*models.ReportView, error) {
	views, err := s.populate(ctx, []models.Report{report})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
