package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	RedisAddress    string
	RedisPassword   string
	ReportRateLimit int
	ReportRateQueue string
	JWTSecret       string
	TokenTTL        time.Duration
	AllowedOrigins  []string
	LoginRateLimit  int64
	LoginRatePeriod time.Duration

	StorageDriver      string
	MediaStoragePath   string
	PublicBaseURL      string
	GCSBucket          string
	GCSCredentialsJSON string
	MaxUploadMB        int64
	ImageMaxDimension  int

	AdminName        string
	AdminEmail       string
	AdminPassword    string
	ReconcileOnStart bool
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := &Config{
		Env:      getEnv("GO_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "greenreport"),

		RedisAddress:    getEnv("REDIS_ADDRESS", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		ReportRateQueue: getEnv("REDIS_QUEUE_FOR_REPORT_LIMIT", "report-limit"),
		JWTSecret:       getEnv("JWT_SECRET", ""),

		StorageDriver:      getEnv("STORAGE_DRIVER", "local"),
		MediaStoragePath:   getEnv("MEDIA_STORAGE_PATH", "./uploads"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "/uploads"), "/"),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),

		AdminName:     getEnv("ADMIN_NAME", "Admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	var err error
	if cfg.MongoTransactions, err = parseBool("MONGO_TRANSACTIONS", "false"); err != nil {
		return nil, err
	}
	if cfg.ReconcileOnStart, err = parseBool("RECONCILE_ON_START", "true"); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = parseDuration("TOKEN_TTL", "72h"); err != nil {
		return nil, err
	}
	if cfg.LoginRatePeriod, err = parseDuration("LOGIN_RATE_PERIOD", "1m"); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = parseInt64("LOGIN_RATE_LIMIT", "10"); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = parseInt64("MAX_UPLOAD_MB", "10"); err != nil {
		return nil, err
	}
	rateLimit, err := parseInt64("REPORT_RATE_LIMIT", "20")
	if err != nil {
		return nil, err
	}
	cfg.ReportRateLimit = int(rateLimit)
	maxDim, err := parseInt64("IMAGE_MAX_DIMENSION", "1600")
	if err != nil {
		return nil, err
	}
	cfg.ImageMaxDimension = int(maxDim)

	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("config: MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("config: STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.StorageDriver {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("config: GCS_BUCKET is required when STORAGE_DRIVER=gcs")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("config: JWT_SECRET is required in production")
		}
		c.JWTSecret = "development-only-secret-change-me"
		log.Println("WARNING: using development JWT_SECRET")
	}
	if c.ImageMaxDimension <= 0 {
		return fmt.Errorf("config: IMAGE_MAX_DIMENSION must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}

func parseInt64(key, fallback string) (int64, error) {
	n, err := strconv.ParseInt(getEnv(key, fallback), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key, fallback string) (bool, error) {
	b, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return b, nil
}
