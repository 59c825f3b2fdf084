// Package config loads application configuration from SEGGIO_* environment
// variables, with an optional YAML overlay for the spreadsheet layout.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/permissions"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Sheets        SheetsConfig
	Auth          AuthConfig
	Cache         CacheConfig
	Audit         AuditConfig
	KPI           KPIConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string

	// StaticDir holds the built frontend; empty disables SPA serving
	StaticDir string

	CORSOrigins []string
}

// SheetsConfig holds the spreadsheet connection settings
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	Timeout         time.Duration

	// LayoutFile optionally overrides the named-range layout (YAML,
	// hot-reloaded)
	LayoutFile string

	// DevMode swaps the remote client for an in-memory store
	DevMode bool
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	IssuerURL    string
	ClientID     string
	HostedDomain string

	// DevTokens maps static bearer tokens to emails ("tok=a@x.com,...").
	// Only honored in dev mode.
	DevTokens map[string]string
}

// CacheConfig holds permission cache settings
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int

	// RedisURL enables the shared cache for multi-instance deployments
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// AuditConfig holds audit trail sinks
type AuditConfig struct {
	FilePath string

	// DBDriver is "sqlite3" or "postgres"; empty disables the DB sink
	DBDriver string
	DBURL    string
}

// KPIConfig holds dashboard snapshot settings
type KPIConfig struct {
	SnapshotCron    string
	SnapshotTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Sheets:        loadSheetsConfig(),
		Auth:          loadAuthConfig(),
		Cache:         loadCacheConfig(),
		Audit:         loadAuditConfig(),
		KPI:           loadKPIConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SEGGIO_HOST", "0.0.0.0"),
		Port:            getEnv("SEGGIO_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SEGGIO_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SEGGIO_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SEGGIO_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SEGGIO_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SEGGIO_HEALTH_PORT", "9090"),
		StaticDir:       getEnv("SEGGIO_STATIC_DIR", ""),
		CORSOrigins:     splitList(getEnv("SEGGIO_CORS_ORIGINS", "")),
	}
}

func loadSheetsConfig() SheetsConfig {
	return SheetsConfig{
		SpreadsheetID:   getEnv("SEGGIO_SPREADSHEET_ID", ""),
		CredentialsFile: getEnv("SEGGIO_CREDENTIALS_FILE", ""),
		Timeout:         getEnvDuration("SEGGIO_SHEETS_TIMEOUT", 30*time.Second),
		LayoutFile:      getEnv("SEGGIO_LAYOUT_FILE", ""),
		DevMode:         getEnvBool("SEGGIO_DEV_MODE", false),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IssuerURL:    getEnv("SEGGIO_AUTH_ISSUER", "https://accounts.google.com"),
		ClientID:     getEnv("SEGGIO_AUTH_CLIENT_ID", ""),
		HostedDomain: getEnv("SEGGIO_AUTH_HOSTED_DOMAIN", ""),
		DevTokens:    parseTokenMap(getEnv("SEGGIO_AUTH_DEV_TOKENS", "")),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:           getEnvDuration("SEGGIO_CACHE_TTL", permissions.DefaultTTL),
		MaxEntries:    getEnvInt("SEGGIO_CACHE_MAX_ENTRIES", 1024),
		RedisURL:      getEnv("SEGGIO_REDIS_URL", ""),
		RedisPassword: getEnv("SEGGIO_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SEGGIO_REDIS_DB", 0),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		FilePath: getEnv("SEGGIO_AUDIT_FILE", ""),
		DBDriver: getEnv("SEGGIO_AUDIT_DB_DRIVER", ""),
		DBURL:    getEnv("SEGGIO_AUDIT_DB_URL", ""),
	}
}

func loadKPIConfig() KPIConfig {
	return KPIConfig{
		SnapshotCron:    getEnv("SEGGIO_KPI_SNAPSHOT_CRON", "@every 2m"),
		SnapshotTimeout: getEnvDuration("SEGGIO_KPI_SNAPSHOT_TIMEOUT", 20*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SEGGIO_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SEGGIO_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SEGGIO_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SEGGIO_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SEGGIO_OTEL_SERVICE_NAME", "seggio"),
		OTelServiceVersion: getEnv("SEGGIO_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SEGGIO_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if !c.Sheets.DevMode {
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet ID is required outside dev mode")
		}
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("credentials file is required outside dev mode")
		}
		if c.Auth.ClientID == "" {
			return fmt.Errorf("auth client ID is required outside dev mode")
		}
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Audit.DBDriver != "" {
		switch c.Audit.DBDriver {
		case "sqlite3", "postgres":
		default:
			return fmt.Errorf("invalid audit DB driver: %s (must be sqlite3 or postgres)", c.Audit.DBDriver)
		}
		if c.Audit.DBURL == "" {
			return fmt.Errorf("audit DB URL is required when a driver is set")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// parseTokenMap parses "token=email,token=email" pairs
func parseTokenMap(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		token, email, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && token != "" && email != "" {
			tokens[token] = email
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
