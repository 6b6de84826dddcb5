package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverMySQL    = "mysql"
	DBDriverSQLite   = "sqlite"

	VisionBackendHTTP  = "http"
	VisionBackendLocal = "local"
)

type HTTPConfig struct {
	Host           string
	Port           int
	UploadMaxBytes int64
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type VisionConfig struct {
	Backend       string
	ServiceURL    string
	InternalToken string
	Timeout       time.Duration
	OCRLanguage   string
}

type RecognitionConfig struct {
	MaxRegions       int
	MinRegionText    int
	MinFrameText     int
	RegistryCacheTTL time.Duration
}

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
}

type TelemetryConfig struct {
	SentryDSN string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Vision      VisionConfig
	Recognition RecognitionConfig
	MQTT        MQTTConfig
	Telemetry   TelemetryConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", DBDriverPostgres)
	v.SetDefault("VISION_BACKEND", VisionBackendHTTP)
	v.SetDefault("VISION_TIMEOUT", 30*time.Second)
	v.SetDefault("OCR_LANGUAGE", "spa")
	v.SetDefault("RECOGNITION_MAX_REGIONS", 10)
	v.SetDefault("RECOGNITION_MIN_REGION_TEXT", 5)
	v.SetDefault("RECOGNITION_MIN_FRAME_TEXT", 4)
	v.SetDefault("REGISTRY_CACHE_TTL", 30*time.Second)
	v.SetDefault("MQTT_CLIENT_ID", "plate-service")
	v.SetDefault("MQTT_TOPIC", "smartpark/recognitions")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Vision: VisionConfig{
			Backend:       strings.ToLower(v.GetString("VISION_BACKEND")),
			ServiceURL:    strings.TrimRight(v.GetString("VISION_SERVICE_URL"), "/"),
			InternalToken: v.GetString("VISION_INTERNAL_TOKEN"),
			Timeout:       v.GetDuration("VISION_TIMEOUT"),
			OCRLanguage:   v.GetString("OCR_LANGUAGE"),
		},
		Recognition: RecognitionConfig{
			MaxRegions:       v.GetInt("RECOGNITION_MAX_REGIONS"),
			MinRegionText:    v.GetInt("RECOGNITION_MIN_REGION_TEXT"),
			MinFrameText:     v.GetInt("RECOGNITION_MIN_FRAME_TEXT"),
			RegistryCacheTTL: v.GetDuration("REGISTRY_CACHE_TTL"),
		},
		MQTT: MQTTConfig{
			BrokerURL: v.GetString("MQTT_BROKER_URL"),
			ClientID:  v.GetString("MQTT_CLIENT_ID"),
			Topic:     v.GetString("MQTT_TOPIC"),
			Username:  v.GetString("MQTT_USERNAME"),
			Password:  v.GetString("MQTT_PASSWORD"),
		},
		Telemetry: TelemetryConfig{
			SentryDSN: v.GetString("SENTRY_DSN"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case DBDriverPostgres, DBDriverMySQL, DBDriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch cfg.Vision.Backend {
	case VisionBackendHTTP:
		if cfg.Vision.ServiceURL == "" {
			return fmt.Errorf("VISION_SERVICE_URL is required for the http vision backend")
		}
	case VisionBackendLocal:
	default:
		return fmt.Errorf("VISION_BACKEND %q is not supported", cfg.Vision.Backend)
	}
	if cfg.MQTT.BrokerURL != "" && cfg.MQTT.Topic == "" {
		return fmt.Errorf("MQTT_TOPIC is required when MQTT_BROKER_URL is set")
	}
	return nil
}
