package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errSecretNotFound
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[service+"/"+account] = value
	return nil
}

// mapBackend is an in-memory ConfigBackend.
type mapBackend map[string]string

func (m mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	return i, true, err
}

func (m mapBackend) SetString(key, val string) error { m[key] = val; return nil }

func (m mapBackend) SetInt(key string, val int) error { m[key] = strconv.Itoa(val); return nil }

func (m mapBackend) Delete(key string) error { delete(m, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Redis.Prefix != "pronouns" {
		t.Errorf("Redis.Prefix = %q, want pronouns", cfg.Redis.Prefix)
	}
	if cfg.Persist.Delay != time.Second {
		t.Errorf("Persist.Delay = %s, want 1s", cfg.Persist.Delay)
	}
	if cfg.Macros.Shorthands {
		t.Error("Macros.Shorthands should default to false")
	}
	if cfg.History.Keep != 500 {
		t.Errorf("History.Keep = %d, want 500", cfg.History.Keep)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := mapBackend{
		"server.port":       "5100",
		"storage.backend":   "redis",
		"redis.addr":        "cache:6380",
		"persist.delay":     "250ms",
		"macros.shorthands": "true",
		"persona.active":    "alice.png",
	}
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Persist.Delay != 250*time.Millisecond {
		t.Errorf("Persist.Delay = %s", cfg.Persist.Delay)
	}
	if !cfg.Macros.Shorthands {
		t.Error("Macros.Shorthands = false, want true")
	}
	if cfg.Persona.Active != "alice.png" {
		t.Errorf("Persona.Active = %q", cfg.Persona.Active)
	}
}

// TestUnparsableBoolKeepsDefault verifies a bad bool is warned about, not fatal.
func TestUnparsableBoolKeepsDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{"macros.shorthands": "sometimes"}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Macros.Shorthands {
		t.Error("Macros.Shorthands should keep its default")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRONOUNS_SERVER_PORT", "6000")
	t.Setenv("PRONOUNS_MACROS_SHORTHANDS", "1")
	t.Setenv("PRONOUNS_PERSIST_DELAY", "2s")

	cfg, err := loadWith(mapBackend{"server.port": "5000"}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if !cfg.Macros.Shorthands {
		t.Error("Macros.Shorthands = false, want true")
	}
	if cfg.Persist.Delay != 2*time.Second {
		t.Errorf("Persist.Delay = %s, want 2s", cfg.Persist.Delay)
	}
}

func TestNegativeHistoryKeep(t *testing.T) {
	clearEnv(t)

	if _, err := loadWith(mapBackend{"history.keep": "-1"}, &mockKeychain{}); err == nil {
		t.Fatal("expected error for negative history.keep")
	}
}

func TestInvalidStorageBackend(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mapBackend{"storage.backend": "etcd"}, &mockKeychain{})
	if err == nil {
		t.Fatal("expected error for unknown storage backend, got nil")
	}
	if !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("error = %q, want it to name storage.backend", err)
	}
}

// TestKeychainFallback verifies the Keychain is consulted for the Redis password.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := &mockKeychain{values: map[string]string{"pronouns/redis_password": "keychain-secret"}}
	cfg, err := loadWith(mapBackend{}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.Password != "keychain-secret" {
		t.Errorf("Redis.Password = %q, want %q", cfg.Redis.Password, "keychain-secret")
	}
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}

	if err := setKeyWith(b, "macros.shorthands", "yes"); err == nil {
		t.Error("expected error for non-bool value")
	}
	if err := setKeyWith(b, "macros.shorthands", "TRUE"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b["macros.shorthands"] != "true" {
		t.Errorf("stored %q, want normalized true", b["macros.shorthands"])
	}
	if err := setKeyWith(b, "persist.delay", "1500ms"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b["persist.delay"] != "1.5s" {
		t.Errorf("stored %q, want 1.5s", b["persist.delay"])
	}
	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b["server.port"] != "4200" {
		t.Errorf("stored %q, want 4200", b["server.port"])
	}
	if err := setKeyWith(b, "redis.password", "x"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestUnsetKey(t *testing.T) {
	b := mapBackend{"persist.delay": "3s"}

	if err := unsetKeyWith(b, "persist.delay"); err != nil {
		t.Fatalf("unsetKeyWith: %v", err)
	}
	if _, ok := b["persist.delay"]; ok {
		t.Error("persist.delay still stored")
	}
	if err := unsetKeyWith(b, "redis.password"); err == nil {
		t.Error("expected error unsetting a secret")
	}
	if err := unsetKeyWith(b, "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllMarksEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRONOUNS_LOG_LEVEL", "debug")

	for _, k := range ShowAll(defaults()) {
		if got, want := k.FromEnv, k.Key == "log.level"; got != want {
			t.Errorf("%s FromEnv = %v, want %v", k.Key, got, want)
		}
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Redis.Password = "hunter2"
	for _, k := range ShowAll(cfg) {
		if k.Key == "redis.password" || k.Value == "hunter2" {
			t.Errorf("secret leaked in ShowAll: %+v", k)
		}
	}
	if len(ShowAll(cfg)) != len(ValidKeys()) {
		t.Errorf("ShowAll and ValidKeys disagree")
	}
}

func TestAPITokenGeneratedOnce(t *testing.T) {
	kc := &mockKeychain{}

	first, err := apiTokenWith(kc)
	if err != nil {
		t.Fatalf("apiTokenWith: %v", err)
	}
	if first == "" {
		t.Fatal("expected a generated token")
	}
	second, err := apiTokenWith(kc)
	if err != nil {
		t.Fatalf("apiTokenWith: %v", err)
	}
	if first != second {
		t.Errorf("token changed between calls: %q -> %q", first, second)
	}
}

func TestAPITokenStoreFailure(t *testing.T) {
	_, err := apiTokenWith(&mockKeychain{setErr: errors.New("locked")})
	if err == nil {
		t.Fatal("expected error when the keychain refuses the write")
	}
}

func TestAPITokenUnreadableKeychain(t *testing.T) {
	kc := &mockKeychain{getErr: errors.New("keychain locked")}

	if _, err := apiTokenWith(kc); err == nil {
		t.Fatal("expected error when the keychain cannot be read")
	}
	if len(kc.values) != 0 {
		t.Error("token must not be regenerated after a read failure")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	load := func() (Config, error) {
		cfg := defaults()
		cfg.Macros.Shorthands = true
		return cfg, nil
	}
	done := make(chan error, 1)
	go func() {
		done <- watchPath(ctx, path, load, zap.NewNop(), func(c Config) { reloaded <- c })
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("macros:\n  shorthands: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if !cfg.Macros.Shorthands {
			t.Error("reloaded config lost the shorthand setting")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchPath returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
