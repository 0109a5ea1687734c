package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.APIBase != "http://127.0.0.1:5000" {
		t.Errorf("Expected default API base, got %s", cfg.APIBase)
	}
	if len(cfg.ClassLabels) != 4 || cfg.ClassLabels[0] != "202502-1" {
		t.Errorf("Expected default class labels, got %v", cfg.ClassLabels)
	}
	if cfg.APITimeout != 0 {
		t.Errorf("Expected no API timeout by default, got %s", cfg.APITimeout)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labeler.yaml")
	content := `addr: ":9000"
api_base: "http://labels.internal:5000"
api_timeout: 15s
session_ttl: 30m
dev_login: true
class_labels:
  - a
  - b
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LABELER_API_BASE", "http://override:5000")
	t.Setenv("LABELER_JOURNAL", filepath.Join(dir, "journal.db"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Expected addr from file, got %s", cfg.Addr)
	}
	if cfg.APIBase != "http://override:5000" {
		t.Errorf("Expected env to win, got %s", cfg.APIBase)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %s", cfg.APITimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL, got %s", cfg.SessionTTL)
	}
	if strings.Join(cfg.ClassLabels, ",") != "a,b" {
		t.Errorf("Expected labels from file, got %v", cfg.ClassLabels)
	}
	if !strings.HasSuffix(cfg.JournalPath, "journal.db") {
		t.Errorf("Expected journal path from env, got %s", cfg.JournalPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestEnvClassLabels(t *testing.T) {
	t.Setenv("LABELER_CLASS_LABELS", " x , y ,,z")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(cfg.ClassLabels, ",") != "x,y,z" {
		t.Errorf("Expected x,y,z, got %v", cfg.ClassLabels)
	}
}

func TestInvalidEnv(t *testing.T) {
	t.Setenv("LABELER_DEV_LOGIN", "sometimes")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for invalid LABELER_DEV_LOGIN")
	}
}

func TestValidateRequiresIdentitySetup(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error without client ID or dev login")
	}
	if !strings.Contains(err.Error(), "GOOGLE_CLIENT_ID") {
		t.Errorf("Expected GOOGLE_CLIENT_ID in error, got %v", err)
	}

	cfg.GoogleClientID = "client.apps.googleusercontent.com"
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
