package routes

import (
	"greenreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(api *gin.RouterGroup, h *controllers.AuthController, auth, loginLimiter gin.HandlerFunc) {
	group := api.Group("/auth")
	{
		group.POST("/login", loginLimiter, h.Login)
		group.GET("/me", auth, h.GetMe)
	}
}
