package config

import (
	"strings"
	"testing"
	"time"
)

func TestS3ConfigMissingRequired(t *testing.T) {
	cfg := S3Config{
		Endpoint: "https://storage.yandexcloud.net",
		Bucket:   "bucket",
	}
	missing := cfg.MissingRequired()

	want := []string{"S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %d (%v)", len(want), len(missing), missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected missing[%d]=%s, got %s", i, want[i], missing[i])
		}
	}

	cfg = S3Config{
		Endpoint:        "https://storage.yandexcloud.net",
		Region:          "ru-central1",
		Bucket:          "bucket",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PreferPublicURL: true,
	}
	if got := cfg.MissingRequired(); len(got) != 1 || got[0] != "S3_PUBLIC_BASE_URL" {
		t.Fatalf("expected public base url to be required with S3_PREFER_PUBLIC_URL, got %v", got)
	}
}

func TestS3ConfigDiagnostics(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		level, code, _ := (S3Config{}).Diagnostics()
		if level != "INFO" || code != "s3_not_configured" {
			t.Fatalf("expected INFO/s3_not_configured, got %s/%s", level, code)
		}
	})

	t.Run("partial config", func(t *testing.T) {
		level, code, _ := (S3Config{Endpoint: "https://storage.yandexcloud.net"}).Diagnostics()
		if level != "WARN" || code != "s3_partial_config" {
			t.Fatalf("expected WARN/s3_partial_config, got %s/%s", level, code)
		}
	})

	t.Run("ready", func(t *testing.T) {
		level, code, _ := (S3Config{
			Endpoint:        "https://storage.yandexcloud.net",
			Region:          "ru-central1",
			Bucket:          "bucket",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		}).Diagnostics()
		if level != "INFO" || code != "s3_ready" {
			t.Fatalf("expected INFO/s3_ready, got %s/%s", level, code)
		}
	})
}

func TestDiagnosticsSummaryHidesSecrets(t *testing.T) {
	summary := S3Config{AccessKeyID: "AKIA123", SecretAccessKey: "very-secret"}.DiagnosticsSummary()
	if strings.Contains(summary, "AKIA123") || strings.Contains(summary, "very-secret") {
		t.Fatalf("summary leaks secrets: %s", summary)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "ENV", "PORT", "LOG_FORMAT", "EXPORTS_MODE", "BLOB_MODE", "AUTH_MODE",
		"RECIPE_CACHE_TTL_SECONDS", "METRICS_ENABLED", "PLANNER_DEFAULT_TIMEZONE", "REDIS_URL", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "local" || cfg.Port != 8080 || cfg.LogFormat != "console" {
		t.Errorf("unexpected basics: env=%s port=%d format=%s", cfg.Env, cfg.Port, cfg.LogFormat)
	}
	if cfg.Blob.EffectiveExportsMode() != BlobModeLocal {
		t.Errorf("expected local exports, got %s", cfg.Blob.EffectiveExportsMode())
	}
	if cfg.RecipeCacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %s", cfg.RecipeCacheTTL)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected metrics enabled by default")
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("expected UTC, got %s", cfg.Timezone)
	}
	if cfg.AuthMode != AuthModeNone || cfg.AuthRequired {
		t.Errorf("expected auth off, got mode=%s required=%t", cfg.AuthMode, cfg.AuthRequired)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected local defaults to validate, got %v", err)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("expected no warnings for defaults, got %q", cfg.Warnings)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("BLOB_MODE", "auto")
	t.Setenv("EXPORTS_MODE", "s3")
	t.Setenv("METRICS_ENABLED", "0")
	t.Setenv("PLANNER_DEFAULT_TIMEZONE", "Europe/Moscow")
	t.Setenv("AUTH_MODE", "oauth")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RECIPE_CACHE_TTL_SECONDS", "-5")

	cfg := Load()
	if cfg.LogFormat != "json" {
		t.Errorf("expected json logs outside local, got %s", cfg.LogFormat)
	}
	if cfg.Blob.EffectiveExportsMode() != BlobModeS3 {
		t.Errorf("expected exports override, got %s", cfg.Blob.EffectiveExportsMode())
	}
	if cfg.MetricsEnabled {
		t.Error("expected metrics disabled")
	}
	if cfg.Timezone.String() != "Europe/Moscow" {
		t.Errorf("unexpected timezone %s", cfg.Timezone)
	}
	if cfg.AuthMode != AuthModeNone {
		t.Errorf("unknown auth modes fall back to none, got %s", cfg.AuthMode)
	}
	if cfg.RecipeCacheTTL != 5*time.Minute {
		t.Errorf("non-positive ttl should fall back, got %s", cfg.RecipeCacheTTL)
	}

	joined := strings.Join(cfg.Warnings, "\n")
	for _, want := range []string{`AUTH_MODE="oauth"`, "JWT_SECRET"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected a warning mentioning %s, got %q", want, cfg.Warnings)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "s3 exports without credentials",
			cfg:     Config{Env: "local", Blob: BlobConfig{Mode: BlobModeLocal, ExportsMode: BlobModeS3, ExportsModeSet: true}},
			wantErr: "S3 config is incomplete",
		},
		{
			name:    "default jwt secret in production",
			cfg:     Config{Env: "production", AuthMode: AuthModeDev, JWTSecret: "change_me"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "dev auth guarding production",
			cfg:     Config{Env: "production", AuthMode: AuthModeDev, AuthRequired: true, JWTSecret: "s3cr3t"},
			wantErr: "AUTH_MODE=dev",
		},
		{
			name: "auth off in production is allowed",
			cfg:  Config{Env: "production", AuthMode: AuthModeNone, JWTSecret: "change_me"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
