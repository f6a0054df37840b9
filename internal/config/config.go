// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "bulkctl"

// Config is the resolved CLI configuration
type Config struct {
	APIKey  string        `mapstructure:"api_key"`
	APIURL  string        `mapstructure:"api_url"`
	Debug   bool          `mapstructure:"debug"`
	Bulk    BulkConfig    `mapstructure:"bulk"`
	Listing ListingConfig `mapstructure:"listing"`
}

// BulkConfig tunes the bulk coordinator
type BulkConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	PageSize           int           `mapstructure:"page_size"`
	ResolveConcurrency int           `mapstructure:"resolve_concurrency"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	CapabilityTTL      time.Duration `mapstructure:"capability_ttl"`
}

// ListingConfig tunes the interactive listing
type ListingConfig struct {
	PageSize int           `mapstructure:"page_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

var defaults = map[string]any{
	"api_key":                  "",
	"api_url":                  "http://localhost:8080",
	"debug":                    false,
	"bulk.concurrency":         8,
	"bulk.page_size":           200,
	"bulk.resolve_concurrency": 4,
	"bulk.connect_timeout":     "1s",
	"bulk.poll_interval":       "700ms",
	"bulk.capability_ttl":      "10m",
	"listing.page_size":        25,
	"listing.cache_ttl":        "30s",
}

// Keys lists every settable config key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a settable config key
func IsKnownKey(key string) bool {
	_, ok := defaults[normalizeKey(key)]
	return ok
}

// normalizeKey accepts the dashed spelling used on the command line (api-key)
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// Dir returns the directory holding config.yaml
func Dir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultFile returns the default config file path
func DefaultFile() string {
	return filepath.Join(Dir(), "config.yaml")
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}
	return v
}

func readInto(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// an explicit --config path that does not exist yet is not an error either
	return os.IsNotExist(err)
}

// LoadConfig reads configFile (or the default locations when empty), then the
// BULKCTL_* environment, over the built-in defaults
func LoadConfig(configFile string) (*Config, error) {
	v := newViper(configFile)
	if err := readInto(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the coordinator cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.APIURL == "" {
		problems = append(problems, "api_url is required")
	} else if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		problems = append(problems, fmt.Sprintf("api_url must start with http:// or https://, got %q", c.APIURL))
	}
	if c.Bulk.Concurrency < 1 {
		problems = append(problems, "bulk.concurrency must be at least 1")
	}
	if c.Bulk.PageSize < 1 {
		problems = append(problems, "bulk.page_size must be at least 1")
	}
	if c.Bulk.ResolveConcurrency < 1 {
		problems = append(problems, "bulk.resolve_concurrency must be at least 1")
	}
	if c.Bulk.ConnectTimeout <= 0 {
		problems = append(problems, "bulk.connect_timeout must be positive")
	}
	if c.Bulk.PollInterval <= 0 {
		problems = append(problems, "bulk.poll_interval must be positive")
	}
	if c.Listing.PageSize < 1 {
		problems = append(problems, "listing.page_size must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetValue returns the effective value of key as text
func GetValue(configFile, key string) (string, error) {
	key = normalizeKey(key)
	if _, ok := defaults[key]; !ok {
		return "", fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	v := newViper(configFile)
	if err := readInto(v); err != nil {
		return "", err
	}
	return v.GetString(key), nil
}

// SetValue writes one key to the config file, creating it if needed. The
// resulting file must still load.
func SetValue(configFile, key, value string) error {
	key = normalizeKey(key)
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if configFile == "" {
		configFile = DefaultFile()
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := readInto(v); err != nil {
		return err
	}
	v.Set(key, value)

	probe := newViper("")
	for _, k := range v.AllKeys() {
		probe.Set(k, v.Get(k))
	}
	var cfg Config
	if err := probe.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
