package config

import "errors"

// ConfigBackend is where non-secret keys are stored: the user defaults
// domain on macOS, a YAML file elsewhere. Get methods report ok=false for
// keys that were never set.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// errSecretNotFound is wrapped by keychain lookups for absent items.
var errSecretNotFound = errors.New("secret not found")
