package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.JWT.ExpireHours != 12 || cfg.JWT.Issuer != "snap-admin" {
		t.Fatalf("unexpected jwt defaults: %+v", cfg.JWT)
	}
	if cfg.MFA.BackupCodeCount != 10 || cfg.MFA.BackupCodeLength != 10 {
		t.Fatalf("unexpected mfa defaults: %+v", cfg.MFA)
	}
	if cfg.Redis.Prefix != "snap" {
		t.Fatalf("redis prefix want snap got %s", cfg.Redis.Prefix)
	}
	if cfg.Database.LogLevel != "error" {
		t.Fatalf("database log level want error got %s", cfg.Database.LogLevel)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
}

func TestLoadEnvOverridesAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := []byte("server:\n  port: \"9090\"\nmfa:\n  backup_code_count: 8\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("MFA_BACKUP_CODE_COUNT", "12")
	t.Setenv("SECURITY_MFA_RATE_LIMIT_MAX_ATTEMPTS", "3")

	cfg := Load()
	if cfg.Server.Port != "9090" {
		t.Fatalf("config file port want 9090 got %s", cfg.Server.Port)
	}
	if cfg.MFA.BackupCodeCount != 12 {
		t.Fatalf("env should override file, got %d", cfg.MFA.BackupCodeCount)
	}
	if cfg.Security.MFARateLimit.MaxAttempts != 3 {
		t.Fatalf("nested env override failed, got %d", cfg.Security.MFARateLimit.MaxAttempts)
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MFA_ISSUER=Dotenv Issuer\n"), 0o600); err != nil {
		t.Fatalf("write .env failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("MFA_ISSUER") })

	cfg := Load()
	if cfg.MFA.Issuer != "Dotenv Issuer" {
		t.Fatalf("dotenv value not applied, got %q", cfg.MFA.Issuer)
	}
}
