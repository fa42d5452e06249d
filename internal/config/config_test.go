package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("HOME", dir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORTFOLIO_GEMINI_API_KEY", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)
	v := viper.New()
	require.NoError(t, Load(v))

	cfg := FromViper(v)
	require.Equal(t, "brendan-okeefe", cfg.Site)
	require.Equal(t, 2000, cfg.MaxMessageLength)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Empty(t, cfg.LogFile)
	require.False(t, cfg.TelemetryEnabled)
	require.Equal(t, filepath.Join(dir, "state", "portfolio-chat"), cfg.TelemetryDir)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: sarah-jenkins\nmax_message_length: 500\ngemini:\n  model: gemini-2.5-flash\n"), 0o600))
	t.Setenv("PORTFOLIO_MAX_MESSAGE_LENGTH", "800")
	t.Setenv("GEMINI_API_KEY", "from-env")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, Load(v))

	cfg := FromViper(v)
	require.Equal(t, "sarah-jenkins", cfg.Site)
	require.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	require.Equal(t, 800, cfg.MaxMessageLength)
	require.Equal(t, "from-env", cfg.GeminiAPIKey)
}

func TestLoad_PrefixedKeyWins(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "plain")
	t.Setenv("PORTFOLIO_GEMINI_API_KEY", "prefixed")

	v := viper.New()
	require.NoError(t, Load(v))
	require.Equal(t, "prefixed", FromViper(v).GeminiAPIKey)
}

func TestLoad_SearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "portfolio-chat"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portfolio-chat", "config.yaml"), []byte("log:\n  level: debug\n"), 0o600))

	v := viper.New()
	require.NoError(t, Load(v))
	require.Equal(t, "debug", FromViper(v).LogLevel)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "nope.yaml"))
	require.Error(t, Load(v))
}

func TestExpandHome(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, filepath.Join(dir, "logs", "chat.log"), expandHome("~/logs/chat.log"))
	require.Equal(t, "/var/log/chat.log", expandHome(" /var/log/chat.log "))
	require.Empty(t, expandHome(""))
}
