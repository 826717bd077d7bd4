package routes

import (
	"greenreport-be/controllers"
	"greenreport-be/middlewares"
	"greenreport-be/models"

	"github.com/gin-gonic/gin"
)

func WorkerRoutes(api *gin.RouterGroup, h *controllers.WorkerController, auth gin.HandlerFunc) {
	group := api.Group("/worker", auth, middlewares.RequireRole(models.RoleWorker))
	{
		group.GET("/reports", h.GetWorkerReports)
		group.PUT("/update/:id", h.UpdateReportStatus)
	}
}
