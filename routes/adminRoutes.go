package routes

import (
	"greenreport-be/controllers"
	"greenreport-be/middlewares"
	"greenreport-be/models"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(api *gin.RouterGroup, h *controllers.AdminController, auth gin.HandlerFunc) {
	group := api.Group("/admin", auth, middlewares.RequireRole(models.RoleAdmin))
	{
		group.GET("/reports", h.GetAllReports)
		group.GET("/workers", h.GetAllWorkers)
		group.POST("/create-worker", h.CreateWorker)
		group.PUT("/report/status/:id", h.AssignReport)
		group.POST("/workers/reconcile", h.ReconcileWorkers)
	}
}
