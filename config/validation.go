package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig reports every problem at once instead of stopping at the first.
func ValidateConfig(cfg *Config) error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "is required")
	} else if cfg.Environment == Production && len(cfg.JWTSecret) < 32 {
		add("JWT_SECRET", "must be at least 32 characters in production")
	}

	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		add("APP_ENCRYPTION_KEY", "must be 32 bytes or base64 of 32 bytes")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required for postgres")
		}
		if cfg.DBUser == "" {
			add("DB_USER", "is required for postgres")
		}
		if cfg.Environment != Development && cfg.Environment != Test && cfg.DBPassword == "" {
			add("DB_PASSWORD", "is required outside development")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "is required for sqlite")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("must be postgres or sqlite (got %q)", cfg.DBDriver))
	}

	if cfg.JWTTTL <= 0 {
		add("JWT_TTL", "must be positive")
	}
	if cfg.InferenceTimeout <= 0 {
		add("INFERENCE_TIMEOUT", "must be positive")
	}
	if cfg.RateLimitRequests <= 0 {
		add("RATE_LIMIT_REQUESTS", "must be positive")
	}
	if cfg.RateLimitWindow <= 0 {
		add("RATE_LIMIT_WINDOW", "must be positive")
	}
	if cfg.Storage.Enabled() && cfg.Storage.PresignTTL <= 0 {
		add("S3_PRESIGN_TTL", "must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}
