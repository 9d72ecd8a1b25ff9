package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearPipeEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"THREADS_ACCESS_TOKEN", "THREADS_USER_ID", "THREADS_APP_ID",
		"THREADS_APP_SECRET", "THREADS_API_VERSION", "THREADSPIPE_STORAGE",
		"THREADSPIPE_S3_BUCKET", "THREADSPIPE_MEDIA_POLL_INTERVAL",
		"THREADSPIPE_POST_POLL_INTERVAL", "THREADSPIPE_CHECK_RATE_LIMIT",
		"THREADSPIPE_WAIT_ON_RATE_LIMIT", "THREADSPIPE_GH_TOKEN",
		"THREADSPIPE_GH_USER", "THREADSPIPE_GH_REPO",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearPipeEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MediaPollInterval != DefaultPollInterval {
		t.Errorf("MediaPollInterval = %v, want %v", cfg.MediaPollInterval, DefaultPollInterval)
	}
	if cfg.PostPollInterval != DefaultPollInterval {
		t.Errorf("PostPollInterval = %v, want %v", cfg.PostPollInterval, DefaultPollInterval)
	}
	if cfg.APIVersion != DefaultAPIVersion {
		t.Errorf("APIVersion = %q, want %q", cfg.APIVersion, DefaultAPIVersion)
	}
	if !cfg.CheckRateLimit {
		t.Error("CheckRateLimit should default to true")
	}
	if cfg.WaitOnRateLimit {
		t.Error("WaitOnRateLimit should default to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearPipeEnv(t)
	t.Setenv("THREADS_ACCESS_TOKEN", "tok-123")
	t.Setenv("THREADS_USER_ID", "17841400000000000")
	t.Setenv("THREADSPIPE_MEDIA_POLL_INTERVAL", "5s")
	t.Setenv("THREADSPIPE_STORAGE", "s3")
	t.Setenv("THREADSPIPE_S3_BUCKET", "media-staging")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %q, want %q", cfg.AccessToken, "tok-123")
	}
	if cfg.MediaPollInterval != 5*time.Second {
		t.Errorf("MediaPollInterval = %v, want 5s", cfg.MediaPollInterval)
	}
	if cfg.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, "s3")
	}
}

func TestLoad_RejectsUnknownStorageBackend(t *testing.T) {
	clearPipeEnv(t)
	t.Setenv("THREADSPIPE_STORAGE", "ftp")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown storage backend")
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	clearPipeEnv(t)
	t.Setenv("THREADSPIPE_POST_POLL_INTERVAL", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PostPollInterval != DefaultPollInterval {
		t.Errorf("PostPollInterval = %v, want default %v", cfg.PostPollInterval, DefaultPollInterval)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearPipeEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "THREADS_ACCESS_TOKEN=file-token\nTHREADS_USER_ID=42\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessToken != "file-token" {
		t.Errorf("AccessToken = %q, want %q", cfg.AccessToken, "file-token")
	}
	if err := cfg.RequireAccount(); err != nil {
		t.Errorf("RequireAccount() = %v, want nil", err)
	}
}

func TestRequireAccount_Missing(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireAccount(); err == nil {
		t.Error("expected error when no access token is configured")
	}

	cfg.AccessToken = "tok"
	if err := cfg.RequireAccount(); err == nil {
		t.Error("expected error when no user id is configured")
	}
}

func TestWriteTokens_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	if err := WriteTokens(envPath, "new-token", "99"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clearPipeEnv(t)
	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessToken != "new-token" {
		t.Errorf("AccessToken = %q, want %q", cfg.AccessToken, "new-token")
	}
	if cfg.UserID != "99" {
		t.Errorf("UserID = %q, want %q", cfg.UserID, "99")
	}
}
