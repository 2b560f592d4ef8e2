// Package config loads nhub settings from flags, environment and an optional
// YAML config file through a process-wide viper instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/opsnotify/notification-hub/internal/notify"
)

// EnvPrefix is prepended to every environment variable, e.g. NHUB_JIRA_SERVER.
const EnvPrefix = "NHUB"

var v *viper.Viper

// Initialize builds the viper instance. configFile, when non-empty, must
// exist; otherwise ./.nhub.yaml and then $HOME/.config/nhub/config.yaml are
// tried and a missing file is not an error.
func Initialize(configFile string) error {
	v = viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = discover()
	}
	if configFile == "" {
		return nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", configFile, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jira.server", "")
	v.SetDefault("jira.user", "")
	v.SetDefault("jira.token", "")
	v.SetDefault("jira.auth-method", "basic")
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.api-url", "")
	v.SetDefault("app-url", "http://localhost")
	v.SetDefault("status-map", "")
	v.SetDefault("secrets-dir", filepath.Join("config", "secrets"))
	v.SetDefault("keyring", false)
	v.SetDefault("timeout", notify.DefaultTimeout)
	v.SetDefault("verbose", false)
}

// discover returns the first config file that exists, or "".
func discover() string {
	candidates := []string{".nhub.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "nhub", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		} else if !errors.Is(err, os.ErrNotExist) {
			return path // let ReadInConfig report the problem
		}
	}
	return ""
}

func instance() *viper.Viper {
	if v == nil {
		_ = Initialize("")
	}
	return v
}

// ConfigFileUsed returns the loaded config file path, if any.
func ConfigFileUsed() string { return instance().ConfigFileUsed() }

// GetString retrieves a string configuration value.
func GetString(key string) string { return instance().GetString(key) }

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool { return instance().GetBool(key) }

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration { return instance().GetDuration(key) }

// ProviderConfig assembles the connection settings for provider from the
// loaded configuration. Tokens are returned as configured; secret files and
// the keyring are consulted by the caller.
func ProviderConfig(provider string) notify.Config {
	cfg := notify.Config{Timeout: GetDuration("timeout")}
	switch strings.ToLower(provider) {
	case "jira":
		cfg.Server = GetString("jira.server")
		cfg.User = GetString("jira.user")
		cfg.Token = GetString("jira.token")
		cfg.AuthMethod = GetString("jira.auth-method")
	case "slack":
		cfg.Token = GetString("slack.token")
		cfg.APIURL = GetString("slack.api-url")
	}
	return cfg
}

// ResetForTesting drops the viper instance so the next access re-initializes.
func ResetForTesting() {
	v = nil
}
