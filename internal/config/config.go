package config

import (
	"os"
	"strconv"
)

// StoreConfig holds settings for the local SQLite catalog store.
type StoreConfig struct {
	Path               string
	BusyTimeoutMs      int
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// BlobConfig holds settings for the session-scoped blob store.
type BlobConfig struct {
	MaxBytes int64
}

// SeedConfig controls first-run sample data.
type SeedConfig struct {
	Enabled bool
	// File optionally points to a YAML file that replaces the embedded samples.
	File string
}

// TracingConfig holds OpenTelemetry exporter settings.
// Endpoint and headers are read by the OTLP exporters themselves from the standard OTEL_* variables.
type TracingConfig struct {
	Disabled    bool
	ServiceName string
	Protocol    string
	Sampler     string
	SamplerArg  string
	Endpoint    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables.
type AppConfig struct {
	Env          string
	LogLevel     string
	Host         string
	Port         string
	ShareBaseURL string
	Store        StoreConfig
	Blob         BlobConfig
	Seed         SeedConfig
	Tracing      TracingConfig
}

// Addr returns the listen address for the local HTTP surface.
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over .env values.
func Load() *AppConfig {
	endpoint := getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if endpoint == "" {
		endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	}

	return &AppConfig{
		Env:          getEnv("APP_ENV", "local"),
		LogLevel:     getEnv("LOG_LEVEL", ""),
		Host:         getEnv("APP_HOST", "127.0.0.1"),
		Port:         getEnv("PORT", "8080"),
		ShareBaseURL: getEnv("SHARE_BASE_URL", "https://knowledge-system.example"),
		Store: StoreConfig{
			Path:               getEnv("STORE_PATH", "catalog.db"),
			BusyTimeoutMs:      getEnvInt("STORE_BUSY_TIMEOUT_MS", 5000),
			MaxOpenConns:       getEnvInt("STORE_MAX_OPEN_CONNS", 4),
			MaxIdleConns:       getEnvInt("STORE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetimeSec: getEnvInt("STORE_CONN_MAX_LIFETIME_SEC", 0),
		},
		Blob: BlobConfig{
			MaxBytes: getEnvInt64("BLOB_MAX_BYTES", 32<<20),
		},
		Seed: SeedConfig{
			Enabled: getEnvBool("SEED_ENABLED", true),
			File:    getEnv("SEED_FILE", ""),
		},
		Tracing: TracingConfig{
			Disabled:    getEnvBool("OTEL_SDK_DISABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "doccatalog"),
			Protocol:    getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			Sampler:     getEnv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio"),
			SamplerArg:  getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),
			Endpoint:    endpoint,
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
