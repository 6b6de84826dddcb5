package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/smartpark")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("VISION_SERVICE_URL", "http://vision:5000/")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, DBDriverPostgres, cfg.DB.Driver)
	assert.Equal(t, VisionBackendHTTP, cfg.Vision.Backend)
	assert.Equal(t, "http://vision:5000", cfg.Vision.ServiceURL)
	assert.Equal(t, 30*time.Second, cfg.Vision.Timeout)
	assert.Equal(t, 10, cfg.Recognition.MaxRegions)
	assert.Equal(t, 5, cfg.Recognition.MinRegionText)
	assert.Equal(t, 4, cfg.Recognition.MinFrameText)
	assert.Equal(t, "smartpark/recognitions", cfg.MQTT.Topic)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("VISION_BACKEND", "local")
	t.Setenv("RECOGNITION_MAX_REGIONS", "3")
	t.Setenv("REGISTRY_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DBDriverSQLite, cfg.DB.Driver)
	assert.Equal(t, VisionBackendLocal, cfg.Vision.Backend)
	assert.Equal(t, 3, cfg.Recognition.MaxRegions)
	assert.Equal(t, time.Minute, cfg.Recognition.RegistryCacheTTL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing dsn", map[string]string{"DB_DSN": ""}, "DB_DSN is required"},
		{"missing secret", map[string]string{"JWT_ACCESS_SECRET": ""}, "JWT_ACCESS_SECRET is required"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"missing vision url", map[string]string{"VISION_SERVICE_URL": ""}, "VISION_SERVICE_URL is required"},
		{"unknown backend", map[string]string{"VISION_BACKEND": "cloud"}, "VISION_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
