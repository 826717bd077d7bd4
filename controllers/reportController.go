package controllers

import (
	"net/http"

	"greenreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReportController serves the public citizen endpoints.
type ReportController struct {
	reports        *services.ReportService
	log            logrus.FieldLogger
	maxUploadBytes int64
}

func NewReportController(reports *services.ReportService, log logrus.FieldLogger, maxUploadBytes int64) *ReportController {
	return &ReportController{reports: reports, log: log, maxUploadBytes: maxUploadBytes}
}

// CreateReport handles an anonymous multipart submission
func (h *ReportController) CreateReport(c *gin.Context) {
	image, err := formImage(c, "image", h.maxUploadBytes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	report, err := h.reports.CreateReport(c.Request.Context(), services.NewReport{
		Description: c.PostForm("description"),
		City:        c.PostForm("city"),
		Severity:    c.PostForm("severity"),
		Lat:         c.PostForm("lat"),
		Lng:         c.PostForm("lng"),
		Address:     c.PostForm("address"),
		Image:       image,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Report submitted successfully",
		"reportId": report.ID.Hex(),
	})
}

func (h *ReportController) GetAllReports(c *gin.Context) {
	reports, err := h.reports.PublicReports(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// TrackReport lets a citizen follow a report by id
func (h *ReportController) TrackReport(c *gin.Context) {
	report, err := h.reports.TrackReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
