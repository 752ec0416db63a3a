package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inima-app/inima/internal/config"
)

func TestLoadOrCreateTokenPrefersConfigured(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Token = "configured-token"
	cfg.Storage.DataDir = t.TempDir()

	token, err := loadOrCreateToken(cfg)
	if err != nil {
		t.Fatalf("loadOrCreateToken: %v", err)
	}
	if token != "configured-token" {
		t.Errorf("token = %q, want the configured one", token)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.DataDir, "api-token")); !os.IsNotExist(err) {
		t.Error("token file written despite configured token")
	}
}

func TestLoadOrCreateTokenPersists(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage.DataDir = t.TempDir()

	first, err := loadOrCreateToken(cfg)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := loadOrCreateToken(cfg)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second != first {
		t.Errorf("token changed between calls: %q vs %q", first, second)
	}

	info, err := os.Stat(filepath.Join(cfg.Storage.DataDir, "api-token"))
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("PID file still readable after remove")
	}
}
