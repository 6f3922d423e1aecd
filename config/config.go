package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"geminify/interfaces"
	"geminify/logger"
	"geminify/settings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "GEMINIFY"

// Config はアプリケーションの設定を保持します。
// ユーザー設定 (APIキーやモデル) は Defaults を初期値としてDBに保存されます。
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		APIKey          string        `mapstructure:"api_key"`
		SessionSecret   string        `mapstructure:"session_secret"`
		PreviewTTL      time.Duration `mapstructure:"preview_ttl"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Discord struct {
		Enabled bool   `mapstructure:"enabled"`
		Token   string `mapstructure:"token"`
		GuildID string `mapstructure:"guild_id"`
	} `mapstructure:"discord"`
	Storage struct {
		Path             string        `mapstructure:"path"`
		HistoryRetention time.Duration `mapstructure:"history_retention"`
		PurgeSchedule    string        `mapstructure:"purge_schedule"`
	} `mapstructure:"storage"`
	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
		Console    bool   `mapstructure:"console"`
	} `mapstructure:"log"`
	Gemini struct {
		Backend   string        `mapstructure:"backend"`
		BaseURL   string        `mapstructure:"base_url"`
		BaseDelay time.Duration `mapstructure:"base_delay"`
		Cooldown  time.Duration `mapstructure:"cooldown"`
	} `mapstructure:"gemini"`
	Platform struct {
		Mode string `mapstructure:"mode"`
	} `mapstructure:"platform"`
	Cache struct {
		Enabled bool          `mapstructure:"enabled"`
		Backend string        `mapstructure:"backend"`
		TTL     time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Defaults settings.Settings `mapstructure:"defaults"`
}

var Cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.session_secret", "")
	v.SetDefault("server.preview_ttl", "15m")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("storage.path", "./geminify.db")
	v.SetDefault("storage.history_retention", "720h")
	v.SetDefault("storage.purge_schedule", "@every 10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("gemini.backend", "sdk")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.base_delay", "1s")
	v.SetDefault("gemini.cooldown", "300ms")
	v.SetDefault("platform.mode", "auto")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	d := settings.Defaults()
	v.SetDefault("defaults.api_key", d.APIKey)
	v.SetDefault("defaults.model", d.Model)
	v.SetDefault("defaults.system_prompt", d.SystemPrompt)
	v.SetDefault("defaults.temperature", d.Temperature)
	v.SetDefault("defaults.max_tokens", d.MaxTokens)
	v.SetDefault("defaults.locale", d.Locale)
	v.SetDefault("defaults.language_rewrite.enabled", d.LanguageRewrite.Enabled)
	v.SetDefault("defaults.language_rewrite.target_language", d.LanguageRewrite.TargetLanguage)
	v.SetDefault("defaults.language_rewrite.preserve_formatting", d.LanguageRewrite.PreserveFormatting)
	v.SetDefault("defaults.language_rewrite.cultural_adaptation", d.LanguageRewrite.CulturalAdaptation)
}

// Flags はviperに結び付けるコマンドラインフラグを登録します。
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config.yaml")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("storage-path", "", "sqlite database path")
	fs.String("platform", "", "platform mode (auto, desktop, mobile)")
	fs.String("addr", "", "http listen address")
}

var flagKeys = map[string]string{
	"log-level":    "log.level",
	"storage-path": "storage.path",
	"platform":     "platform.mode",
	"addr":         "server.addr",
}

// Load は既定値、config.yaml、環境変数、フラグの順に設定を重ねて読み込みます。
// config.yaml が見つからなくてもエラーにはしません。
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfig は設定を読み込み Cfg に保存します。
func LoadConfig(log interfaces.Logger, fs *pflag.FlagSet) error {
	cfg, err := Load(fs)
	if err != nil {
		return err
	}
	Cfg = cfg
	log.Info("設定ファイルを正常に読み込みました。", "storage", cfg.Storage.Path, "backend", cfg.Gemini.Backend)
	return nil
}

// LoggerOptions はログ設定を logger.Options に変換します。
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		File:       c.Log.File,
		Level:      c.Log.Level,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Console:    c.Log.Console,
	}
}
