package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pageza/macrotrack/backend/internal/crypto"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort         string
	ServerHost         string
	CORSAllowedOrigins []string
	LogLevel           string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret string
	JWTTTL    time.Duration

	// EncryptionKey seals per-user API keys and body weights at rest
	EncryptionKey string

	// Inference provider
	OpenAIURL        string
	OpenAIModel      string
	InferenceTimeout time.Duration

	// Per-user inference rate limit
	RateLimitRequests int
	RateLimitWindow   time.Duration

	Storage StorageConfig
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	if env.LoadsDotEnv() {
		_ = godotenv.Load()
	}

	l := &loader{env: env}
	cfg := &Config{
		Environment:        env,
		ServerPort:         l.get("SERVER_PORT", "server_port", "8080"),
		ServerHost:         l.get("SERVER_HOST", "server_host", "0.0.0.0"),
		CORSAllowedOrigins: splitList(l.get("CORS_ALLOWED_ORIGINS", "", "http://localhost:5173")),
		LogLevel:           l.get("LOG_LEVEL", "", "info"),

		DBDriver:   l.get("DB_DRIVER", "", "postgres"),
		DBHost:     l.get("DB_HOST", "db_host", "localhost"),
		DBPort:     l.get("DB_PORT", "db_port", "5432"),
		DBUser:     l.get("DB_USER", "db_user", "postgres"),
		DBPassword: l.get("DB_PASSWORD", "db_password", ""),
		DBName:     l.get("DB_NAME", "db_name", "macrotrack"),
		DBSSLMode:  l.get("DB_SSL_MODE", "db_ssl_mode", "disable"),
		SQLitePath: l.get("SQLITE_PATH", "", "macrotrack.db"),

		RedisURL:      l.get("REDIS_URL", "redis_url", ""),
		RedisHost:     l.get("REDIS_HOST", "redis_host", "localhost"),
		RedisPort:     l.get("REDIS_PORT", "redis_port", "6379"),
		RedisPassword: l.get("REDIS_PASSWORD", "redis_password", ""),
		RedisDB:       l.integer("REDIS_DB", 0),

		JWTSecret: l.get("JWT_SECRET", "jwt_secret", ""),
		JWTTTL:    l.duration("JWT_TTL", 24*time.Hour),

		EncryptionKey: l.get("APP_ENCRYPTION_KEY", "app_encryption_key", ""),

		OpenAIURL:        l.get("OPENAI_API_URL", "", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:      l.get("OPENAI_MODEL", "", "gpt-4o-mini"),
		InferenceTimeout: l.duration("INFERENCE_TIMEOUT", 15*time.Second),

		RateLimitRequests: l.integer("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   l.duration("RATE_LIMIT_WINDOW", time.Minute),

		Storage: StorageConfig{
			Bucket:     l.get("S3_BUCKET_NAME", "", ""),
			Region:     l.get("AWS_REGION", "", "us-east-1"),
			Endpoint:   l.get("S3_ENDPOINT", "", ""),
			PresignTTL: l.duration("S3_PRESIGN_TTL", 15*time.Minute),
		},
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PostgresDSN builds the lib/pq style connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// EncryptionKeyBytes decodes APP_ENCRYPTION_KEY.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	return crypto.ParseKey(c.EncryptionKey)
}

// loader resolves a key from env vars and Docker secrets. Production prefers the
// secret file, CI reads env vars only, everything else prefers env vars.
type loader struct {
	env  Environment
	errs []error
}

func (l *loader) get(envKey, secretName, def string) string {
	if l.env == Production && secretName != "" {
		if v := readSecret(secretName); v != "" {
			return v
		}
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if l.env != CI && secretName != "" {
		if v := readSecret(secretName); v != "" {
			return v
		}
	}
	return def
}

func (l *loader) integer(envKey string, def int) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", envKey, err))
		return def
	}
	return v
}

func (l *loader) duration(envKey string, def time.Duration) time.Duration {
	raw := os.Getenv(envKey)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", envKey, err))
		return def
	}
	return v
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
