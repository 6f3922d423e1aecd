package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geminify/app"
	"geminify/bot"
	"geminify/commands"
	"geminify/config"
	"geminify/handlers/web"
	"geminify/logger"
	"geminify/servers"
	"geminify/settings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

const usage = `Usage: geminify <command> [flags]

Commands:
  serve                         start the HTTP API (and the Discord bot when enabled)
  rewrite --file PATH [flags]   rewrite a file or a byte range of it
  settings show|set|verify      inspect or change the saved settings

Run "geminify <command> --help" for the flags of a command.
`

// exitError は終了コードを持つエラーです。メッセージは既に表示済みです。
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(args)
	case "rewrite":
		err = runRewrite(args)
	case "settings":
		err = runSettings(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig はフラグを解析して設定を読み込み、ロガーを初期化します。
// CLIコマンドでは stdout を結果の出力に使うため、ログは stderr に出します。
func loadConfig(fs *pflag.FlagSet, args []string, cli bool) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}

	opts := cfg.LoggerOptions()
	if cli {
		opts.Output = os.Stderr
		if !fs.Changed("log-level") && os.Getenv("GEMINIFY_LOG_LEVEL") == "" {
			opts.Level = "warn"
		}
	}
	logger.Init(opts)
	config.Cfg = cfg
	return cfg, nil
}

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	config.Flags(fs)
	cfg, err := loadConfig(fs, args, false)
	if err != nil {
		return err
	}
	log := logger.Default()

	a, err := app.New(context.Background(), cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("終了処理でエラーが発生しました", "error", err)
		}
	}()

	sec := settings.SecurityCheck(a.Settings.Current(), a.Capabilities.Mobile())
	if sec.Level != settings.SecurityHigh {
		log.Warn("APIキーの設定に注意が必要です", "level", sec.Level, "issues", sec.Issues)
	}

	manager := servers.NewManager(log)

	handler := web.NewHandler(web.Deps{
		Rewriter:   a.Rewriter,
		Settings:   a.Settings,
		Store:      a.Store,
		Sessions:   web.NewSessions(cfg.Server.SessionSecret),
		PreviewTTL: cfg.Server.PreviewTTL,
		Logger:     log,
	})
	manager.AddServer(servers.NewWebServer(cfg.Server.Addr, handler, cfg.Server.APIKey, log))
	manager.AddServer(servers.NewSchedulerServer(cron.New(), log, a.Jobs()...))

	if cfg.Discord.Enabled {
		b, err := bot.New(bot.Options{
			Token:   cfg.Discord.Token,
			GuildID: cfg.Discord.GuildID,
			Status:  "/rewrite",
			App: &commands.AppContext{
				Log:        log,
				Rewriter:   a.Rewriter,
				Settings:   a.Settings,
				Store:      a.Store,
				PreviewTTL: cfg.Server.PreviewTTL,
				StartTime:  time.Now(),
			},
			Log: log,
		})
		if err != nil {
			return fmt.Errorf("failed to create discord bot: %w", err)
		}
		manager.AddServer(b)
	}

	if err := manager.StartAll(); err != nil {
		return err
	}

	// Ctrl+Cなどでプログラムが終了するまで待機
	log.Info("Geminify is now running. Press CTRL-C to exit.", "addr", cfg.Server.Addr)
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	manager.StopAll(ctx)
	return nil
}
