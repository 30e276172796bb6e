package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var serverVars = []string{
	"DB_DRIVER", "DATABASE_URL", "SERVER_PORT", "JWT_SECRET", "REDIS_URL",
	"TASKS_CACHE_TTL", "JWT_TTL", "DEBUG", "ALLOWED_ORIGINS",
	"LOGIN_RATE_LIMIT", "LOGIN_RATE_WINDOW",
	"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_SSLMODE",
}

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, k := range serverVars {
		t.Setenv(k, "")
	}
}

func TestLoadServer_Postgres(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "tasks")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	want := "host=db user=u password=p dbname=tasks port=5432 sslmode=disable"
	if cfg.DSN != want {
		t.Errorf("DSN = %q, want %q", cfg.DSN, want)
	}
	if cfg.Port != "8080" || !cfg.Debug {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.CacheTTL != time.Minute || cfg.LoginRateLimit != 5 {
		t.Errorf("unexpected limits: %+v", cfg)
	}
}

func TestLoadServer_DatabaseURLWins(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("DATABASE_URL", "postgres://u:p@db/tasks")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.DSN != "postgres://u:p@db/tasks" {
		t.Errorf("DSN = %q", cfg.DSN)
	}
}

func TestLoadServer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short", "DB_DRIVER": "sqlite3"}, "JWT_SECRET"},
		{"missing postgres parts", map[string]string{"JWT_SECRET": strings.Repeat("s", 32), "POSTGRES_USER": "u"}, "POSTGRES_PASSWORD"},
		{"unknown driver", map[string]string{"JWT_SECRET": strings.Repeat("s", 32), "DB_DRIVER": "mysql"}, "not supported"},
		{"bad ttl", map[string]string{"JWT_SECRET": strings.Repeat("s", 32), "DB_DRIVER": "sqlite3", "TASKS_CACHE_TTL": "soon"}, "TASKS_CACHE_TTL"},
		{"bad rate limit", map[string]string{"JWT_SECRET": strings.Repeat("s", 32), "DB_DRIVER": "sqlite3", "LOGIN_RATE_LIMIT": "0"}, "LOGIN_RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearServerEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadServer()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TASKCTL_TEST_VAR=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKCTL_TEST_VAR", "")
	os.Unsetenv("TASKCTL_TEST_VAR")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TASKCTL_TEST_VAR"); got != "from-file" {
		t.Fatalf("TASKCTL_TEST_VAR = %q", got)
	}
}
