package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/storage"

	"github.com/sirupsen/logrus"
)

// NewReport is a citizen submission as received from the form.
type NewReport struct {
	Description string
	City        string
	Severity    string
	Lat         string
	Lng         string
	Address     string
	Image       []byte
}

// CreateReport validates a submission, stores its photo and inserts the
// report as Pending.
func (s *ReportService) CreateReport(ctx context.Context, in NewReport) (*models.Report, error) {
	city := strings.TrimSpace(in.City)
	if city == "" {
		return nil, apperror.InvalidArgument("City is required")
	}
	severity := models.Severity(strings.TrimSpace(in.Severity))
	if severity == "" {
		severity = models.SeverityLow
	}
	if !severity.Valid() {
		return nil, apperror.InvalidArgument("Severity must be Low, Medium or High")
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(in.Lat), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(in.Lng), 64)
	if latErr != nil || lngErr != nil {
		return nil, apperror.InvalidArgument("Location is required")
	}
	location := models.Location{Lat: lat, Lng: lng}
	if !location.Valid() {
		return nil, apperror.InvalidArgument("Location is out of range")
	}
	if len(in.Image) == 0 {
		return nil, apperror.InvalidArgument("Image is required")
	}

	url, err := s.images.Upload(ctx, "before", in.Image)
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, err.Error())
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := s.now()
	report := models.Report{
		Description:    strings.TrimSpace(in.Description),
		City:           city,
		CityKey:        models.CityKey(city),
		Severity:       severity,
		Location:       location,
		Address:        strings.TrimSpace(in.Address),
		Status:         models.StatusPending,
		ImageURLBefore: url,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Reports().Create(ctx, &report); err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{
		"reportId": report.ID.Hex(),
		"city":     report.City,
		"severity": report.Severity,
	}).Info("report created")
	return &report, nil
}
