package routes

import (
	"greenreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// ReportRoutes sets up the public citizen routes
func ReportRoutes(api *gin.RouterGroup, h *controllers.ReportController, createLimiter gin.HandlerFunc) {
	group := api.Group("/reports")
	{
		group.POST("/create", createLimiter, h.CreateReport)
		group.GET("/all", h.GetAllReports)
		group.GET("/track/:id", h.TrackReport)
	}
}
