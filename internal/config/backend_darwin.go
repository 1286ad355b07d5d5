//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// On macOS settings live in the user defaults domain below, edited with
// defaults(1). The plist it maintains is what Watch observes.
const defaultsDomain = "com.pronouns.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pronouns-data"
	}
	return filepath.Join(home, "Library", "Application Support", "pronouns")
}

// FilePath returns the plist backing the defaults domain.
func FilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultsDomain + ".plist"
	}
	return filepath.Join(home, "Library", "Preferences", defaultsDomain+".plist")
}

type defaultsBackend struct {
	domain string
	run    func(args ...string) ([]byte, error)
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{
		domain: defaultsDomain,
		run: func(args ...string) ([]byte, error) {
			return exec.Command("defaults", args...).CombinedOutput()
		},
	}
}

func (b *defaultsBackend) exec(verb, key string, extra ...string) ([]byte, error) {
	args := append([]string{verb, b.domain, key}, extra...)
	out, err := b.run(args...)
	if err != nil {
		return out, fmt.Errorf("defaults %s %s: %w (%s)", verb, key, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// GetString treats a missing key (exit status 1) as unset.
func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	out, err := b.exec("read", key)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(string(out)), true, nil
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	raw, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s is not an integer: %w", key, err)
	}
	return n, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	_, err := b.exec("write", key, "-string", val)
	return err
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	_, err := b.exec("write", key, "-int", strconv.Itoa(val))
	return err
}

func (b *defaultsBackend) Delete(key string) error {
	_, err := b.exec("delete", key)
	return err
}
