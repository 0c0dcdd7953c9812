// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// Default configuration values
const (
	defaultBackendURL        = "http://localhost:8000"
	defaultBackendTimeout    = 10
	defaultLanguage          = "bg"
	defaultInternationalLang = "en"
	defaultMaxLookups        = 8
	defaultTokenTTLMinutes   = 10
	defaultRetentionDays     = 30
	defaultDatabasePath      = "./data/passportview.db"
	defaultPDFTimeoutSeconds = 60
	defaultOTLPEndpoint      = "localhost:4317"
	defaultPrometheusPort    = 9090
	defaultServerPort        = 8092
	defaultRetentionCronSpec = "0 2 * * *"
	defaultConfigFilePerm    = 0644
)

// DefaultConfigPath is the default path of the configuration file
const DefaultConfigPath = "config/passportview.yaml"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Backend   BackendConfig    `yaml:"backend"`
	Render    RenderConfig     `yaml:"render"`
	Access    AccessConfig     `yaml:"access"`
	Database  DatabaseConfig   `yaml:"database"`
	Export    ExportConfig     `yaml:"export"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"` // Allowed CORS origins whitelist
}

// BackendConfig holds the pet-passport REST backend settings
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout is the per-request timeout in seconds
	Timeout int `yaml:"timeout"`
	// DefaultLanguage is the national language used when a view does not ask for one
	DefaultLanguage string `yaml:"default_language"`
	// InternationalLanguage is the language of the international half of each page
	InternationalLanguage string `yaml:"international_language"`
}

// RenderConfig holds booklet rendering settings
type RenderConfig struct {
	// MaxLookups bounds concurrent doctor lookups within a single view
	MaxLookups int `yaml:"max_lookups"`
	// Skeleton overrides the embedded booklet skeleton with a file on disk
	Skeleton string `yaml:"skeleton"`
}

// AccessConfig holds access code and view token settings
type AccessConfig struct {
	RequireToken    bool   `yaml:"require_token"`
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// DatabaseConfig holds the view log database configuration
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	// CleanupSchedule is the cron spec of the retention job
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// ExportConfig holds document export settings
type ExportConfig struct {
	PDF PDFConfig `yaml:"pdf"`
}

// PDFConfig holds headless Chrome PDF settings
type PDFConfig struct {
	ChromePath      string  `yaml:"chrome_path"`
	PaperWidth      float64 `yaml:"paper_width"`
	PaperHeight     float64 `yaml:"paper_height"`
	PrintBackground bool    `yaml:"print_background"`
	Timeout         int     `yaml:"timeout"` // seconds
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: defaultServerPort,
		},
		Backend: BackendConfig{
			BaseURL:               defaultBackendURL,
			Timeout:               defaultBackendTimeout,
			DefaultLanguage:       defaultLanguage,
			InternationalLanguage: defaultInternationalLang,
		},
		Render: RenderConfig{
			MaxLookups: defaultMaxLookups,
		},
		Access: AccessConfig{
			TokenTTLMinutes: defaultTokenTTLMinutes,
		},
		Database: DatabaseConfig{
			Path:            defaultDatabasePath,
			RetentionDays:   defaultRetentionDays,
			CleanupSchedule: defaultRetentionCronSpec,
		},
		Export: ExportConfig{
			PDF: PDFConfig{
				PaperWidth:      5.83, // A6 booklet page, landscape spread printed on A5
				PaperHeight:     8.27,
				PrintBackground: true,
				Timeout:         defaultPDFTimeoutSeconds,
			},
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Port: defaultPrometheusPort,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion.
// PV_* environment variables override values from the file:
//   - PV_SERVER_HOST, PV_SERVER_PORT, PV_SERVER_DEBUG
//   - PV_BACKEND_URL, PV_BACKEND_LANGUAGE
//   - PV_ACCESS_REQUIRE_TOKEN, PV_ACCESS_JWT_SECRET
//   - PV_DATABASE_PATH
//   - PV_LOG_LEVEL, PV_LOG_FORMAT, PV_LOG_FILE
//   - PV_CHROME_PATH
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Exists checks if the configuration file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write writes the configuration to a file with the standard header
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, []byte(configHeader+string(data)), defaultConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

const configHeader = `# PassportView configuration
#
# Environment Variable Support:
#   - Use ${VAR_NAME} or ${VAR_NAME:-default} in values to reference environment variables
#   - Or use PV_* environment variables to override:
#     PV_SERVER_HOST, PV_SERVER_PORT, PV_SERVER_DEBUG
#     PV_BACKEND_URL, PV_BACKEND_LANGUAGE
#     PV_ACCESS_REQUIRE_TOKEN, PV_ACCESS_JWT_SECRET
#     PV_DATABASE_PATH, PV_LOG_LEVEL, PV_LOG_FORMAT, PV_LOG_FILE
#

`

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// ${VAR_NAME:-default} falls back to default when the variable is unset or empty.
func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if value := os.Getenv(parts[0]); value != "" {
			return value
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = parseBool(v)
		}
	}

	setString("PV_SERVER_HOST", &cfg.Server.Host)
	setInt("PV_SERVER_PORT", &cfg.Server.Port)
	setBool("PV_SERVER_DEBUG", &cfg.Server.Debug)

	setString("PV_BACKEND_URL", &cfg.Backend.BaseURL)
	setString("PV_BACKEND_LANGUAGE", &cfg.Backend.DefaultLanguage)

	setBool("PV_ACCESS_REQUIRE_TOKEN", &cfg.Access.RequireToken)
	setString("PV_ACCESS_JWT_SECRET", &cfg.Access.JWTSecret)

	setString("PV_DATABASE_PATH", &cfg.Database.Path)

	setString("PV_LOG_LEVEL", &cfg.Logging.Level)
	setString("PV_LOG_FORMAT", &cfg.Logging.Format)
	setString("PV_LOG_FILE", &cfg.Logging.File)

	setString("PV_CHROME_PATH", &cfg.Export.PDF.ChromePath)

	setBool("PV_TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	setBool("PV_PROMETHEUS_ENABLED", &cfg.Telemetry.Prometheus.Enabled)
	setInt("PV_PROMETHEUS_PORT", &cfg.Telemetry.Prometheus.Port)
}

// parseBool parses a boolean string value
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// RequestTimeout returns the backend request timeout
func (c *BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TokenTTL returns the lifetime of a signed view token
func (c *AccessConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// ExportTimeout returns the PDF generation timeout
func (c *PDFConfig) ExportTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
