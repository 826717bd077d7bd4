package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "local", cfg.StorageDriver)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TOKEN_TTL", "forever")
	_, err := Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")
}

func TestLoad_GCSNeedsBucket(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STORAGE_DRIVER", "gcs")
	t.Setenv("GCS_BUCKET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "GCS_BUCKET")
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "production")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
