package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenreport-be/config"
	"greenreport-be/routes"
	"greenreport-be/services"
	"greenreport-be/storage"
	"greenreport-be/store"
	authUtils "greenreport-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := config.NewLogger(cfg.LogLevel, cfg.Env)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	blobs, closeBlobs, mediaRoot, mediaURL, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open blob storage")
	}
	defer closeBlobs()

	rdb, err := config.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	var locker services.Locker = services.NewLocalLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, 30*time.Second, logger)
		logger.Info("Connected to Redis")
	} else {
		logger.Warn("REDIS_ADDRESS not set; using in-process report locks and no report rate limit")
	}

	tokens := authUtils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	reports := services.NewReportService(st, locker, storage.NewImageUploader(blobs, cfg.ImageMaxDimension), logger)
	accounts := services.NewAccountService(st, tokens, logger)

	if err := accounts.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.WithError(err).Fatal("failed to seed admin account")
	}
	if cfg.ReconcileOnStart {
		corrections, err := reports.ReconcilePendingCounts(ctx)
		if err != nil {
			config.LogError(logger, "main", "ReconcilePendingCounts", "startup reconciliation", nil, err)
		} else {
			logger.WithField("corrections", len(corrections)).Info("pending task counters reconciled")
		}
	}

	router := routes.SetupRouter(routes.Options{
		Reports:         reports,
		Accounts:        accounts,
		Tokens:          tokens,
		Redis:           rdb,
		Log:             logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxUploadBytes:  cfg.MaxUploadMB << 20,
		ReportRateLimit: cfg.ReportRateLimit,
		ReportRateQueue: cfg.ReportRateQueue,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRatePeriod: cfg.LoginRatePeriod,
		MediaRoot:       mediaRoot,
		MediaURL:        mediaURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	client, err := config.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to MongoDB")

	mongoStore := store.NewMongoStore(client, cfg.MongoDatabase, cfg.MongoTransactions)
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return mongoStore, func() { _ = client.Disconnect(context.Background()) }, nil
}

// openBlobStore returns the store with its release func and, for local
// storage, the directory and URL path the router must serve.
func openBlobStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (storage.BlobStore, func(), string, string, error) {
	if cfg.StorageDriver == "gcs" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, nil, "", "", err
		}
		return gcs, blobCloser(gcs, logger), "", "", nil
	}

	local, err := storage.NewLocalStore(cfg.MediaStoragePath, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, "", "", err
	}
	base, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || base.Path == "" {
		return nil, nil, "", "", errors.New("PUBLIC_BASE_URL must include a path such as /uploads")
	}
	return local, blobCloser(local, logger), local.Root(), base.Path, nil
}

// blobCloser releases blob stores that hold a client, such as GCS.
func blobCloser(blobs storage.BlobStore, logger logrus.FieldLogger) func() {
	closer, ok := blobs.(io.Closer)
	if !ok {
		return func() {}
	}
	return func() {
		if err := closer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close blob storage")
		}
	}
}
