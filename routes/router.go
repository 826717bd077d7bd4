package routes

import (
	"net/http"
	"time"

	"greenreport-be/controllers"
	"greenreport-be/middlewares"
	"greenreport-be/services"
	authUtils "greenreport-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Options carries everything the HTTP surface depends on.
type Options struct {
	Reports  *services.ReportService
	Accounts *services.AccountService
	Tokens   *authUtils.TokenManager
	Redis    *redis.Client
	Log      *logrus.Logger

	AllowedOrigins  []string
	MaxUploadBytes  int64
	ReportRateLimit int
	ReportRateQueue string
	LoginRateLimit  int64
	LoginRatePeriod time.Duration

	// MediaRoot is served under MediaURL when images are stored locally.
	MediaRoot string
	MediaURL  string
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(opts.Log))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.MaxMultipartMemory = opts.MaxUploadBytes

	if opts.MediaRoot != "" {
		r.Static(opts.MediaURL, opts.MediaRoot)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	auth := middlewares.AuthMiddleware(opts.Tokens)

	AuthRoutes(api, controllers.NewAuthController(opts.Accounts, opts.Log), auth,
		middlewares.LoginRateLimiter(opts.LoginRateLimit, opts.LoginRatePeriod))
	ReportRoutes(api, controllers.NewReportController(opts.Reports, opts.Log, opts.MaxUploadBytes),
		middlewares.ReportRateLimiter(opts.Redis, opts.ReportRateQueue, opts.ReportRateLimit, opts.Log))
	WorkerRoutes(api, controllers.NewWorkerController(opts.Reports, opts.Log, opts.MaxUploadBytes), auth)
	AdminRoutes(api, controllers.NewAdminController(opts.Reports, opts.Accounts, opts.Log), auth)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
