package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Setenv("BACKEND_URL", "http://localhost:9090")
	os.Setenv("AUTH_SIGNING_KEY", "test-key")
	t.Cleanup(func() {
		os.Unsetenv("BACKEND_URL")
		os.Unsetenv("AUTH_SIGNING_KEY")
	})
}

func TestLoad_DefaultBackendURL(t *testing.T) {
	os.Unsetenv("BACKEND_URL")
	os.Setenv("AUTH_SIGNING_KEY", "test-key")
	defer os.Unsetenv("AUTH_SIGNING_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackendURL != "http://127.0.0.1:9090" {
		t.Errorf("expected default backend URL, got %s", cfg.BackendURL)
	}
}

func TestLoad_RequiresSigningKey(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://localhost:9090")
	os.Unsetenv("AUTH_SIGNING_KEY")
	defer os.Unsetenv("BACKEND_URL")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when AUTH_SIGNING_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackendURL != "http://localhost:9090" {
		t.Errorf("expected BACKEND_URL to be set, got %s", cfg.BackendURL)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Errorf("expected default poll interval 500ms, got %v", cfg.PollInterval())
	}
	if cfg.PollTimeout() != 10*time.Second {
		t.Errorf("expected default poll timeout 10s, got %v", cfg.PollTimeout())
	}
	if cfg.AuthIssuer != "erx-harness" {
		t.Errorf("expected default issuer, got %s", cfg.AuthIssuer)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}
	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
