package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("capacity = %d", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl = %s", cfg.TTL)
	}
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || len(cfg.Methods) != 2 {
		t.Fatalf("methods = %v", cfg.Methods)
	}
	if cfg.TTL != 30*time.Second {
		t.Fatalf("ttl = %s", cfg.TTL)
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	body := "APP_PORT=8081\nDB_USER=u\nDB_HOST=h\nDB_PORT=3306\nDB_NAME=hotel\nJWT_SECRET=s\nACCESS_TOKEN_TTL_MIN=15\nREFRESH_TOKEN_TTL_DAYS=7\nMAX_STAY_DAYS=5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables that are already set, so register
	// cleanup for the ones it will add.
	for _, k := range []string{"APP_PORT", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "JWT_SECRET", "ACCESS_TOKEN_TTL_MIN", "REFRESH_TOKEN_TTL_DAYS", "MAX_STAY_DAYS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg := Load()
	if cfg.Port != "8081" || cfg.DBName != "hotel" || cfg.MaxStayDays != 5 || cfg.AccessTTLMin != 15 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.BcryptCost != 12 || !cfg.DBMigrate {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "Off")
	if envBool("X_FLAG", true) {
		t.Fatalf("Off parsed as true")
	}
	t.Setenv("X_FLAG", "maybe")
	if !envBool("X_FLAG", true) {
		t.Fatalf("unknown value must fall back to default")
	}
}
