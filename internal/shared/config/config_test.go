package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("UPLOAD_GRANT_TTL", "")
	t.Setenv("EXTRACTOR", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.UploadGrantTTL != 15*time.Minute {
		t.Fatalf("expected 15m grant ttl, got %s", cfg.UploadGrantTTL)
	}
	if cfg.Extractor != "none" {
		t.Fatalf("expected extractor none, got %q", cfg.Extractor)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("UPLOAD_GRANT_TTL", "5m")
	t.Setenv("DEFAULT_DRIVER_LIMIT", "not-a-number")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "minio" {
		t.Fatalf("expected minio, got %q", cfg.ObjectStoreType)
	}
	if cfg.UploadGrantTTL != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", cfg.UploadGrantTTL)
	}
	if cfg.DefaultDriverLimit != 25 {
		t.Fatalf("expected fallback driver limit 25, got %d", cfg.DefaultDriverLimit)
	}
	if len(cfg.CORSAllowOrigin) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowOrigin)
	}
	if cfg.IsDevLike() {
		t.Fatalf("production must not be dev-like")
	}
}

func TestLoadEnvFilesDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FLEET_TEST_KEEP=file\nFLEET_TEST_NEW=\"from-file\"\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("FLEET_TEST_KEEP", "process")
	t.Setenv("FLEET_TEST_NEW", "")
	os.Unsetenv("FLEET_TEST_NEW")

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("FLEET_TEST_KEEP"); got != "process" {
		t.Fatalf("expected process value to win, got %q", got)
	}
	if got := os.Getenv("FLEET_TEST_NEW"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestValidateRefusesDevUploadSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("UPLOAD_SIGNING_SECRET", "")

	cfg := Load()
	if err := cfg.Validate(); !errors.Is(err, ErrDevUploadSecret) {
		t.Fatalf("expected ErrDevUploadSecret, got %v", err)
	}

	t.Setenv("UPLOAD_SIGNING_SECRET", "s3cr3t-from-vault")
	if err := Load().Validate(); err != nil {
		t.Fatalf("expected explicit secret to pass, got %v", err)
	}

	t.Setenv("ENV", "dev")
	t.Setenv("UPLOAD_SIGNING_SECRET", "")
	if err := Load().Validate(); err != nil {
		t.Fatalf("expected dev default to pass, got %v", err)
	}
}
