package services

import (
	"context"
	"sort"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/store"
)

// WorkerDashboard is what a worker sees on login.
type WorkerDashboard struct {
	Stats   models.WorkerStats  `json:"stats"`
	Reports []models.ReportView `json:"reports"`
}

// ReportQuery narrows the admin report list.
type ReportQuery struct {
	Status string
	City   string
}

func (s *ReportService) PublicReports(ctx context.Context) ([]models.ReportView, error) {
	reports, err := s.store.Reports().List(ctx, store.ReportFilter{})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.populate(ctx, reports)
}

func (s *ReportService) TrackReport(ctx context.Context, reportID string) (*models.ReportView, error) {
	id, err := parseID(reportID, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.store.Reports().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Report not found")
	}
	return s.populateOne(ctx, report)
}

// WorkerReports lists a worker's reports, most severe first and newest first
// within a severity.
func (s *ReportService) WorkerReports(ctx context.Context, workerID string) (*WorkerDashboard, error) {
	wid, err := parseID(workerID, "worker")
	if err != nil {
		return nil, err
	}
	reports, err := s.store.Reports().List(ctx, store.ReportFilter{AssignedWorker: &wid})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		ri, rj := reports[i].Severity.Rank(), reports[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	stats := models.WorkerStats{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case models.StatusAssigned:
			stats.Assigned++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusDeclined:
			stats.Declined++
		}
	}

	views, err := s.populate(ctx, reports)
	if err != nil {
		return nil, err
	}
	return &WorkerDashboard{Stats: stats, Reports: views}, nil
}

func (s *ReportService) AdminReports(ctx context.Context, q ReportQuery) ([]models.ReportView, error) {
	filter := store.ReportFilter{CityKey: models.CityKey(q.City)}
	if q.Status != "" {
		status := models.ReportStatus(q.Status)
		if !status.Valid() {
			return nil, apperror.InvalidArgument("Invalid status filter")
		}
		filter.Status = status
	}
	reports, err := s.store.Reports().List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.populate(ctx, reports)
}

// AdminWorkers lists workers, optionally only those serving city.
func (s *ReportService) AdminWorkers(ctx context.Context, city string) ([]models.User, error) {
	workers, err := s.store.Users().List(ctx, store.UserFilter{
		Role:    models.RoleWorker,
		CityKey: models.CityKey(city),
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return workers, nil
}
