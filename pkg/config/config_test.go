package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.InDelta(t, 0.05, cfg.Import.ErrorThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Import.MaxErrorSamples)
	assert.Equal(t, "el-GR", cfg.Import.DefaultCulture)
	assert.Empty(t, cfg.Import.SweepSchedule)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("IMPORT_ERROR_THRESHOLD", "0.1")
	t.Setenv("IMPORT_SWEEP_MIN_AGE", "90s")
	t.Setenv("NOTIFY_TO", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 0.1, cfg.Import.ErrorThreshold, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Import.SweepMinAge)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notify.To)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IMPORT_ERROR_THRESHOLD", "1.5")

	_, err := Load()
	assert.ErrorContains(t, err, "IMPORT_ERROR_THRESHOLD")
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "sales", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sales sslmode=disable", db.DSN())
}
