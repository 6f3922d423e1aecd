package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"geminify/settings"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Server.PreviewTTL)
	assert.Equal(t, "sdk", cfg.Gemini.Backend)
	assert.Equal(t, time.Second, cfg.Gemini.BaseDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Gemini.Cooldown)
	assert.Equal(t, "auto", cfg.Platform.Mode)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, settings.Defaults(), cfg.Defaults)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geminify.yaml")
	yaml := `
server:
  addr: ":9000"
gemini:
  backend: rest
  base_delay: 250ms
cache:
  enabled: true
  backend: redis
defaults:
  model: gemini-2.5-pro
  temperature: 0.2
  language_rewrite:
    enabled: true
    target_language: turkish
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("GEMINIFY_DISCORD_TOKEN", "bot-token")
	t.Setenv("GEMINIFY_LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t, "--config", path, "--platform", "mobile"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "rest", cfg.Gemini.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Gemini.BaseDelay)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mobile", cfg.Platform.Mode)
	assert.Equal(t, settings.ModelPro, cfg.Defaults.Model)
	assert.InDelta(t, 0.2, cfg.Defaults.Temperature, 1e-9)
	assert.True(t, cfg.Defaults.LanguageRewrite.Enabled)
	assert.Equal(t, "turkish", cfg.Defaults.LanguageRewrite.TargetLanguage)
	// ファイルに無い項目は既定値のまま
	assert.True(t, cfg.Defaults.LanguageRewrite.PreserveFormatting)
	assert.Equal(t, settings.DefaultSystemPrompt, cfg.Defaults.SystemPrompt)

	opts := cfg.LoggerOptions()
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, 10, opts.MaxSizeMB)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}
