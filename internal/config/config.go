// Package config resolves settings for the local CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"portfolio-chat/internal/portfolio"
)

const appName = "portfolio-chat"

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// Config is the typed view of the resolved settings.
type Config struct {
	Site             string
	GeminiAPIKey     string
	GeminiModel      string
	MaxMessageLength int

	LogLevel  string
	LogFormat string
	LogFile   string

	TelemetryEnabled bool
	TelemetryDir     string
}

// GetConfigOptions returns the default configuration options and their meanings.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "site", Default: portfolio.DefaultSiteID, Comment: "Embedded site variant to chat about"},
		{Key: "gemini.api_key", Default: "", Comment: "Gemini API key; GEMINI_API_KEY is also read"},
		{Key: "gemini.model", Default: "", Comment: "Model name; empty uses the client default"},
		{Key: "max_message_length", Default: 2000, Comment: "Longest accepted chat message in bytes"},

		{Key: "log.level", Default: "info", Comment: "debug, info, warn or error"},
		{Key: "log.format", Default: "text", Comment: "text or json"},
		{Key: "log.file", Default: "", Comment: "Rotating log file; empty logs to stderr"},

		{Key: "telemetry.enabled", Default: false, Comment: "Export traces and metrics to files"},
		{Key: "telemetry.dir", Default: defaultStateDir(), Comment: "Directory for traces.log and metrics.log"},
	}
}

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
// An explicitly set config file must exist and parse.
func Load(v *viper.Viper) error {
	explicit := v.ConfigFileUsed() != ""
	if !explicit {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, appName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// PORTFOLIO_* env vars
	v.SetEnvPrefix("portfolio")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", "PORTFOLIO_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("config: bind env: %w", err)
	}

	if strings.TrimSpace(v.GetString("site")) == "" {
		v.Set("site", portfolio.DefaultSiteID)
	}
	return nil
}

// FromViper reads the resolved settings.
func FromViper(v *viper.Viper) Config {
	return Config{
		Site:             strings.TrimSpace(v.GetString("site")),
		GeminiAPIKey:     strings.TrimSpace(v.GetString("gemini.api_key")),
		GeminiModel:      strings.TrimSpace(v.GetString("gemini.model")),
		MaxMessageLength: v.GetInt("max_message_length"),
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		LogFile:          expandHome(v.GetString("log.file")),
		TelemetryEnabled: v.GetBool("telemetry.enabled"),
		TelemetryDir:     expandHome(v.GetString("telemetry.dir")),
	}
}

// defaultStateDir resolves $XDG_STATE_HOME/portfolio-chat or ~/.local/state/portfolio-chat.
func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appName)
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '~' {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[1:])
	}
	return path
}
