package controllers

import (
	"net/http"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminController struct {
	reports  *services.ReportService
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewAdminController(reports *services.ReportService, accounts *services.AccountService, log logrus.FieldLogger) *AdminController {
	return &AdminController{reports: reports, accounts: accounts, log: log}
}

func (h *AdminController) GetAllReports(c *gin.Context) {
	reports, err := h.reports.AdminReports(c.Request.Context(), services.ReportQuery{
		Status: c.Query("status"),
		City:   c.Query("city"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *AdminController) GetAllWorkers(c *gin.Context) {
	workers, err := h.reports.AdminWorkers(c.Request.Context(), c.Query("city"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, workers)
}

// CreateWorker registers a worker account
func (h *AdminController) CreateWorker(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		City     string `json:"city"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, h.log, apperror.InvalidArgument("Invalid request body"))
		return
	}

	worker, err := h.accounts.CreateWorker(c.Request.Context(), services.NewWorker{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		City:     input.City,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, worker)
}

// AssignReport assigns a pending report to a worker. Admins cannot set any
// other status.
func (h *AdminController) AssignReport(c *gin.Context) {
	var input struct {
		WorkerID string `json:"workerId"`
		Status   string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, h.log, apperror.InvalidArgument("Invalid request body"))
		return
	}
	if input.Status != "" && models.ReportStatus(input.Status) != models.StatusAssigned {
		respondError(c, h.log, apperror.InvalidArgument("Admins can only assign reports"))
		return
	}
	if input.WorkerID == "" {
		respondError(c, h.log, apperror.InvalidArgument("workerId is required"))
		return
	}

	report, err := h.reports.Assign(c.Request.Context(), c.Param("id"), input.WorkerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Report assigned successfully",
		"report":  report,
	})
}

// ReconcileWorkers recomputes drifted pending task counters
func (h *AdminController) ReconcileWorkers(c *gin.Context) {
	corrections, err := h.reports.ReconcilePendingCounts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Worker counters reconciled",
		"corrections": corrections,
	})
}
