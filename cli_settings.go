package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"geminify/app"
	"geminify/config"
	"geminify/i18n"
	"geminify/logger"
	"geminify/prompt"
	"geminify/settings"

	"github.com/spf13/pflag"
)

const settingsUsage = `Usage: geminify settings <show|set|verify>

  show                   print the saved settings (API key masked)
  set key=value ...      change one or more settings
  verify                 check the API key against Gemini

Keys: %s
`

func runSettings(args []string) error {
	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	config.Flags(fs)
	cfg, err := loadConfig(fs, args, true)
	if err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintf(os.Stderr, settingsUsage, strings.Join(settings.Keys(), ", "))
		return exitError{code: 2}
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger.Default(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	switch rest[0] {
	case "show":
		return showSettings(os.Stdout, a.Settings.Current(), a.Capabilities.Mobile())
	case "set":
		updated, err := setSettings(ctx, a.Settings, rest[1:])
		if err != nil {
			return err
		}
		return showSettings(os.Stdout, updated, a.Capabilities.Mobile())
	case "verify":
		locale := a.Settings.Current().Locale
		if err := a.Rewriter.Verify(ctx); err != nil {
			fmt.Fprintf(os.Stdout, "%s: %s\n", i18n.Message(locale, i18n.KeyAPIKeyInvalid), i18n.ErrorMessage(locale, err))
			return exitError{code: 1}
		}
		fmt.Fprintln(os.Stdout, i18n.Message(locale, i18n.KeyAPIKeyValid))
		return nil
	default:
		fmt.Fprintf(os.Stderr, settingsUsage, strings.Join(settings.Keys(), ", "))
		return exitError{code: 2}
	}
}

type settingsView struct {
	Settings settings.Settings       `json:"settings"`
	Language string                  `json:"language,omitempty"`
	Security settings.SecurityStatus `json:"security"`
}

func showSettings(w io.Writer, s settings.Settings, mobile bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(settingsView{
		Settings: s.Masked(),
		Language: prompt.Indicator(s.LanguageRewrite),
		Security: settings.SecurityCheck(s, mobile),
	})
}

// setSettings は key=value の組をまとめて1回の更新として適用します。
// 1つでも不正な値があれば何も保存しません。
func setSettings(ctx context.Context, mgr *settings.Manager, pairs []string) (settings.Settings, error) {
	if len(pairs) == 0 {
		return settings.Settings{}, fmt.Errorf("set needs at least one key=value")
	}

	next := mgr.Current()
	for _, pair := range pairs {
		if err := settings.Set(&next, pair); err != nil {
			return settings.Settings{}, err
		}
	}
	if err := next.Validate(); err != nil {
		return settings.Settings{}, err
	}
	if err := prompt.ValidateLanguage(next.LanguageRewrite); err != nil {
		return settings.Settings{}, err
	}

	return mgr.Update(ctx, func(s *settings.Settings) { *s = next })
}
