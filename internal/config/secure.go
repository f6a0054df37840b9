// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "bulkctl"
	keyringAccount = "api-key"
)

// Lookup order for the API key:
// 1. BULKCTL_API_KEY
// 2. System keyring
// 3. api_key in the config file (used when no keyring is reachable)

// KeyStore stores the API key, preferring the OS keyring
type KeyStore struct {
	configFile string
}

func NewKeyStore(configFile string) *KeyStore {
	return &KeyStore{configFile: configFile}
}

// Save stores apiKey in the keyring, falling back to the config file. It reports
// where the key ended up.
func (s *KeyStore) Save(apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}

	if err := keyring.Set(keyringService, keyringAccount, apiKey); err == nil {
		// drop any plain-text copy
		if existing, _ := GetValue(s.configFile, "api_key"); existing != "" {
			_ = SetValue(s.configFile, "api_key", "")
		}
		return "system keyring", nil
	}

	if err := SetValue(s.configFile, "api_key", apiKey); err != nil {
		return "", fmt.Errorf("failed to store API key: %w", err)
	}
	return "config file", nil
}

// Get returns the API key or ErrAPIKeyNotFound
func (s *KeyStore) Get() (string, error) {
	if envKey := os.Getenv(EnvAPIKey); envKey != "" {
		return envKey, nil
	}

	if apiKey, err := keyring.Get(keyringService, keyringAccount); err == nil && apiKey != "" {
		return apiKey, nil
	}

	apiKey, err := GetValue(s.configFile, "api_key")
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return "", ErrAPIKeyNotFound
	}
	return apiKey, nil
}

// Delete removes the key from the keyring and the config file
func (s *KeyStore) Delete() error {
	if err := keyring.Delete(keyringService, keyringAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring: %w", err)
	}
	if existing, _ := GetValue(s.configFile, "api_key"); existing != "" {
		return SetValue(s.configFile, "api_key", "")
	}
	return nil
}

// ErrAPIKeyNotFound is returned when no source provides an API key
var ErrAPIKeyNotFound = errors.New("API key not found. Run 'bulkctl config set api-key YOUR_KEY' or set " + EnvAPIKey)
