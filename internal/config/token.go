package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	secretService = "frontdesk"
	secretAccount = "api_token"
	tokenEnvVar   = "FRONTDESK_API_TOKEN"
)

// Keychain abstracts the platform secret store for testing.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

// NewKeychain returns the platform secret store: macOS Keychain via the
// security CLI, a private secrets file elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token protecting the management API.
// FRONTDESK_API_TOKEN takes precedence; otherwise the token lives in the
// secret store and is generated on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if env := os.Getenv(tokenEnvVar); env != "" {
		return env, nil
	}

	if token, err := kc.Get(secretService, secretAccount); err == nil && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	if err := kc.Set(secretService, secretAccount, token); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return token, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
