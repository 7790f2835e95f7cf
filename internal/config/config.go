package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string      `json:"serverAddress" yaml:"serverAddress" validate:"required"`
	DatabasePath  string      `json:"databasePath" yaml:"databasePath" validate:"required_without=DatabaseURL"`
	DatabaseURL   string      `json:"databaseUrl" yaml:"databaseUrl"`
	LogLevel      string      `json:"logLevel" yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
	Capture       Capture     `json:"capture" yaml:"capture"`
	Geolocation   Geolocation `json:"geolocation" yaml:"geolocation"`
	Store         Store       `json:"store" yaml:"store"`
	Readout       Readout     `json:"readout" yaml:"readout"`
	Security      Security    `json:"security" yaml:"security"`
	Telemetry     Telemetry   `json:"telemetry" yaml:"telemetry"`
}

// Capture configures the image pipeline
type Capture struct {
	MaxWidth    int   `json:"maxWidth" yaml:"maxWidth" validate:"min=1"`
	MaxHeight   int   `json:"maxHeight" yaml:"maxHeight" validate:"min=1"`
	Quality     int   `json:"quality" yaml:"quality" validate:"min=1,max=100"`
	MaxUploadMB int64 `json:"maxUploadMB" yaml:"maxUploadMB" validate:"min=1"`
}

// Geolocation configures best-effort location acquisition
type Geolocation struct {
	TimeoutMs int `json:"timeoutMs" yaml:"timeoutMs" validate:"min=1"`
	MaxAgeMs  int `json:"maxAgeMs" yaml:"maxAgeMs" validate:"min=0"`
}

// Timeout is the bounded wait for a location fix
func (g Geolocation) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

// MaxAge is the cached-fix tolerance
func (g Geolocation) MaxAge() time.Duration {
	return time.Duration(g.MaxAgeMs) * time.Millisecond
}

// Store configures the record store
type Store struct {
	QuotaBytes int64 `json:"quotaBytes" yaml:"quotaBytes" validate:"min=0"`
}

// Readout configures the elapsed-time display
type Readout struct {
	TickMs         int `json:"tickMs" yaml:"tickMs" validate:"min=100"`
	WarningMinutes int `json:"warningMinutes" yaml:"warningMinutes" validate:"min=1"`
	DangerMinutes  int `json:"dangerMinutes" yaml:"dangerMinutes" validate:"gtfield=WarningMinutes"`
}

// Tick is the interval between readouts
func (r Readout) Tick() time.Duration {
	return time.Duration(r.TickMs) * time.Millisecond
}

// Security configuration
type Security struct {
	APIKey       string `json:"apiKey" yaml:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader" yaml:"apiKeyHeader" validate:"required"`
}

// Telemetry configuration
type Telemetry struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":8080",
		DatabasePath:  "parkit.db",
		LogLevel:      "info",
		Capture: Capture{
			MaxWidth:    800,
			MaxHeight:   600,
			Quality:     70,
			MaxUploadMB: 25,
		},
		Geolocation: Geolocation{
			TimeoutMs: 10000,
			MaxAgeMs:  60000,
		},
		Store: Store{
			QuotaBytes: 5 * 1024 * 1024,
		},
		Readout: Readout{
			TickMs:         1000,
			WarningMinutes: 90,
			DangerMinutes:  120,
		},
		Security: Security{
			APIKeyHeader: "X-API-Key",
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4317",
		},
	}
}

// Load loads configuration from file and environment. An empty path falls
// back to CONFIG_PATH, then config.json; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.json"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := decodeFile(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !cfg.UsePostgres() && cfg.DatabasePath != ":memory:" {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

func decodeFile(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// applyEnv overrides file values from environment variables
func applyEnv(cfg *Config) {
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}

	setInt(&cfg.Capture.MaxWidth, "CAPTURE_MAX_WIDTH")
	setInt(&cfg.Capture.MaxHeight, "CAPTURE_MAX_HEIGHT")
	setInt(&cfg.Capture.Quality, "CAPTURE_QUALITY")
	setInt(&cfg.Geolocation.TimeoutMs, "GEO_TIMEOUT_MS")
	setInt(&cfg.Geolocation.MaxAgeMs, "GEO_MAX_AGE_MS")
	setInt(&cfg.Readout.TickMs, "READOUT_TICK_MS")

	if quota := os.Getenv("STORE_QUOTA_BYTES"); quota != "" {
		if v, err := strconv.ParseInt(quota, 10, 64); err == nil && v >= 0 {
			cfg.Store.QuotaBytes = v
		}
	}

	if enabled := os.Getenv("OTEL_ENABLED"); enabled != "" {
		cfg.Telemetry.Enabled = enabled == "true" || enabled == "1"
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Telemetry.Endpoint = endpoint
	}
}

func setInt(dst *int, env string) {
	if raw := os.Getenv(env); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}
