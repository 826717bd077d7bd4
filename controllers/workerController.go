package controllers

import (
	"net/http"

	"greenreport-be/models"
	"greenreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WorkerController struct {
	reports        *services.ReportService
	log            logrus.FieldLogger
	maxUploadBytes int64
}

func NewWorkerController(reports *services.ReportService, log logrus.FieldLogger, maxUploadBytes int64) *WorkerController {
	return &WorkerController{reports: reports, log: log, maxUploadBytes: maxUploadBytes}
}

// GetWorkerReports returns the worker's dashboard stats and reports
func (h *WorkerController) GetWorkerReports(c *gin.Context) {
	dash, err := h.reports.WorkerReports(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// UpdateReportStatus completes or declines an assigned report
func (h *WorkerController) UpdateReportStatus(c *gin.Context) {
	image, err := formImage(c, "image", h.maxUploadBytes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	report, err := h.reports.UpdateStatus(c.Request.Context(), services.StatusUpdate{
		ReportID:   c.Param("id"),
		WorkerID:   c.GetString("user_id"),
		Status:     models.ReportStatus(c.PostForm("status")),
		Notes:      c.PostForm("workerNotes"),
		AfterImage: image,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report updated successfully",
		"report":  report,
	})
}
