package config

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const tokenAccount = "api_token"

// GetAPIToken returns the bearer token guarding the HTTP API, generating and
// storing one on first use.
func GetAPIToken() (string, error) {
	return apiTokenWith(systemKeychain{})
}

func apiTokenWith(kc keychain) (string, error) {
	tok, err := kc.Get(keychainService, tokenAccount)
	switch {
	case err == nil && tok != "":
		return tok, nil
	case err != nil && !errors.Is(err, errSecretNotFound):
		// Never replace a token we merely failed to read.
		return "", fmt.Errorf("reading api token: %w", err)
	}

	tok = uuid.NewString()
	if err := kc.Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return tok, nil
}
