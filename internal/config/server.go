package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLen = 32

// Server holds the API server settings read from the environment.
type Server struct {
	DBDriver        string
	DSN             string
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	RedisURL        string
	CacheTTL        time.Duration
	Debug           bool
	AllowedOrigins  []string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// LoadDotEnv loads variables from the given .env files. Missing files are
// not an error; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

// LoadServer validates the environment and builds the server settings.
func LoadServer() (*Server, error) {
	cfg := &Server{
		DBDriver:        envOr("DB_DRIVER", "postgres"),
		Port:            envOr("SERVER_PORT", "8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		LoginRateLimit:  5,
		LoginRateWindow: time.Minute,
		TokenTTL:        24 * time.Hour,
		CacheTTL:        time.Minute,
	}

	var errs []error
	if len(cfg.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}

	switch cfg.DBDriver {
	case "postgres":
		dsn, err := postgresDSN()
		if err != nil {
			errs = append(errs, err)
		}
		cfg.DSN = dsn
	case "sqlite3":
		cfg.DSN = envOr("DATABASE_URL", "file:tasks.db?_foreign_keys=on")
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", cfg.DBDriver))
	}

	var err error
	if cfg.Debug, err = envBool("DEBUG"); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheTTL, err = envDuration("TASKS_CACHE_TTL", cfg.CacheTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenTTL, err = envDuration("JWT_TTL", cfg.TokenTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRateWindow, err = envDuration("LOGIN_RATE_WINDOW", cfg.LoginRateWindow); err != nil {
		errs = append(errs, err)
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT must be a positive integer"))
		} else {
			cfg.LoginRateLimit = n
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// postgresDSN prefers DATABASE_URL and otherwise requires the POSTGRES_* parts.
func postgresDSN() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	required := []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"POSTGRES_HOST", "POSTGRES_PORT",
	}
	var missing []string
	for _, env := range required {
		if os.Getenv(env) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variables %s must be set", strings.Join(missing, ", "))
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("POSTGRES_HOST"), os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"), os.Getenv("POSTGRES_PORT"), envOr("POSTGRES_SSLMODE", "disable")), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration like 30s", key)
	}
	return d, nil
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
