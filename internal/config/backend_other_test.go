//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileBackendNestedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 5200
storage:
  backend: redis
macros:
  shorthands: true
persist.delay: 3s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)

	cfg, err := loadWith(newFileBackend(path), &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5200 {
		t.Errorf("Server.Port = %d, want 5200", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Macros.Shorthands {
		t.Error("Macros.Shorthands = false, want true")
	}
	if cfg.Persist.Delay.String() != "3s" {
		t.Errorf("Persist.Delay = %s, want 3s", cfg.Persist.Delay)
	}
}

func TestFileBackendSaveWritesNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	b := newFileBackend(path)

	if err := setKeyWith(b, "macros.shorthands", "true"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "server.port", "4300"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if !strings.Contains(string(data), "macros:") || !strings.Contains(string(data), "shorthands:") {
		t.Errorf("saved YAML is not nested:\n%s", data)
	}

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.GetInt("server.port")
	if err != nil || !ok || port != 4300 {
		t.Errorf("GetInt(server.port) = %d, %v, %v", port, ok, err)
	}
	v, ok, _ := reloaded.GetString("macros.shorthands")
	if !ok || v != "true" {
		t.Errorf("GetString(macros.shorthands) = %q, %v", v, ok)
	}
}

func TestFileBackendMissingFile(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, ok, err := b.GetString("server.port"); ok || err != nil {
		t.Errorf("GetString on empty backend = ok %v, err %v", ok, err)
	}
}

func TestSecretsFileKeychain(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	kc := systemKeychain{}

	if _, err := kc.Get(keychainService, tokenAccount); err == nil {
		t.Fatal("expected error before any secret is stored")
	}
	if err := kc.Set(keychainService, tokenAccount, "tok-123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := kc.Get(keychainService, tokenAccount)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("Get = %q, want tok-123", got)
	}
}
