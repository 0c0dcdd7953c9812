package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/petmvp/passportview/pkg/errors"
)

// MinJWTSecretLength is the minimum required length for JWT secret (256 bits for HS256)
const MinJWTSecretLength = 32

// Validate checks the configuration and returns the first problem found
func (c *Config) Validate() *errors.AppError {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("backend.base_url must be an absolute http(s) URL, got %q", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("backend.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Backend.Timeout <= 0 {
		return invalid("backend.timeout must be positive")
	}
	if _, err := ParseLanguage(c.Backend.DefaultLanguage); err != nil {
		return invalid("backend.default_language: %v", err)
	}
	if _, err := ParseLanguage(c.Backend.InternationalLanguage); err != nil {
		return invalid("backend.international_language: %v", err)
	}

	if c.Render.MaxLookups <= 0 {
		return invalid("render.max_lookups must be positive")
	}

	if appErr := ValidateAccessConfig(&c.Access); appErr != nil {
		return appErr
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return invalid("database.path cannot be empty")
	}
	if c.Database.RetentionDays < 0 {
		return invalid("database.retention_days cannot be negative")
	}
	if c.Database.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(c.Database.CleanupSchedule); err != nil {
			return invalid("database.cleanup_schedule: %v", err)
		}
	}

	if c.Export.PDF.Timeout <= 0 {
		return invalid("export.pdf.timeout must be positive")
	}

	return nil
}

// ValidateAccessConfig validates the access token settings.
// A secret is only required when tokens are enforced; otherwise one is generated at startup.
func ValidateAccessConfig(cfg *AccessConfig) *errors.AppError {
	if cfg.TokenTTLMinutes <= 0 {
		return invalid("access.token_ttl_minutes must be positive")
	}
	if !cfg.RequireToken {
		return nil
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return invalid("access.jwt_secret cannot be empty when access.require_token is enabled")
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return invalid("access.jwt_secret must be at least %d characters long (HS256 requires 256 bits)", MinJWTSecretLength)
	}
	return nil
}

func invalid(format string, args ...any) *errors.AppError {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
}
