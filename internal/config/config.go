package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Redis   RedisConfig
	Persist PersistConfig
	Macros  MacrosConfig
	Persona PersonaConfig
	History HistoryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	// Backend is "sqlite" or "redis".
	Backend string
	DataDir string
}

type RedisConfig struct {
	Addr     string
	Prefix   string
	Password string
}

type PersistConfig struct {
	Delay time.Duration
}

type MacrosConfig struct {
	// Shorthands enables the {{she}}/{{his_}} style alias macros.
	Shorthands bool
}

type PersonaConfig struct {
	Active string
}

type HistoryConfig struct {
	// Keep is how many replacements the sqlite history retains; 0 keeps all.
	Keep int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			DataDir: defaultDataDir(),
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "pronouns",
		},
		Persist: PersistConfig{
			Delay: time.Second,
		},
		History: HistoryConfig{
			Keep: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.pronouns.app) and the
// Redis password falls back to macOS Keychain.
// On Linux the backend is a YAML file at $XDG_CONFIG_HOME/pronouns/config.yaml
// and secrets live in $XDG_DATA_HOME/pronouns/secrets.yaml.
//
// Environment variables (PRONOUNS_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), systemKeychain{})
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Redis.Password == "" {
		if pw, err := kc.Get(keychainService, "redis_password"); err == nil && pw != "" {
			cfg.Redis.Password = pw
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("invalid storage.backend %q: want sqlite or redis", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Persist.Delay <= 0 {
		return fmt.Errorf("invalid persist.delay %s: must be positive", c.Persist.Delay)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("invalid history.keep %d: must not be negative", c.History.Keep)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return nil
}

const keychainService = "pronouns"

// systemKeychain reads and writes the platform secret store.
type systemKeychain struct{}

func (systemKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (systemKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
