package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/secrets/sa.json")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-123")
	t.Setenv("APPS_SCRIPT_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	t.Setenv("WHATSAPP_ADMIN_NUMBER", "")
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendSheets {
		t.Errorf("backend = %s", cfg.Storage.Backend)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %s", cfg.Auth.TokenTTL)
	}
	if cfg.Reporting.CronSchedule != "0 20 * * 5" {
		t.Errorf("cron = %s", cfg.Reporting.CronSchedule)
	}
	if cfg.WhatsApp.Enabled() {
		t.Error("whatsapp should be disabled without a token")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("log level = %s", cfg.Server.LogLevel)
	}
	if cfg.MongoDB.DBName != "farebook" {
		t.Errorf("db name = %s", cfg.MongoDB.DBName)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"sheet id", map[string]string{"GOOGLE_SHEET_DATABASE_ID": ""}, "GOOGLE_SHEET_DATABASE_ID"},
		{"apps script url", map[string]string{"STORAGE_BACKEND": BackendAppsScript}, "APPS_SCRIPT_URL"},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "postgres"}, "STORAGE_BACKEND"},
		{"whatsapp admin", map[string]string{"WHATSAPP_TOKEN": "tok", "WHATSAPP_PHONE_NUMBER_ID": "42"}, "WHATSAPP_ADMIN_NUMBER"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnvFile(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadAppsScriptBackend(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", BackendAppsScript)
	t.Setenv("APPS_SCRIPT_URL", "https://script.google.com/macros/s/abc/exec")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppsScript.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", cfg.AppsScript.Timeout)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %s", cfg.Auth.TokenTTL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TOKEN_TTL", "one day")
	if _, err := Load(missingEnvFile(t)); err == nil {
		t.Fatal("expected TOKEN_TTL parse error")
	}
}
