package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// シングルトンとしてロガーを保持
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Options はロガーの初期化設定です。
type Options struct {
	File       string // ログファイル名 (空ならファイル出力なし)
	Level      string // debug / info / warn / error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool      // 標準出力にも出すかどうか
	Output     io.Writer // nil でなければ標準出力の代わりに使う
}

func Init(opts Options) {
	var writers []io.Writer
	if opts.Console || opts.File == "" {
		if opts.Output != nil {
			writers = append(writers, opts.Output)
		} else {
			writers = append(writers, os.Stdout)
		}
	}
	if opts.File != "" {
		// ログローテーションの設定
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   opts.Compress,
		})
	}

	logger = slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(opts.Level),
	}))
	slog.SetDefault(logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Debugレベルのログを出力
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Infoレベルのログを出力
// 例: logger.Info("サーバーを起動しました", "addr", ":8787")
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warnレベルのログを出力
// 例: logger.Warn("APIキーが設定されていません", "env", "GEMINIFY_DEFAULTS_API_KEY")
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Errorレベルのログを出力
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// Fatalレベルのログを出力（出力後にプログラムを終了）
func Fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// Logger はパッケージレベルのロガーを interfaces.Logger として注入するための型です。
type Logger struct {
	l *slog.Logger
}

// Default は Init で設定されたロガーを返します。
func Default() *Logger {
	return &Logger{l: logger}
}

// Nop は何も出力しないロガーを返します。テスト用です。
func Nop() *Logger {
	return &Logger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// With は属性を付与した子ロガーを返します。
func (lg *Logger) With(args ...any) *Logger {
	return &Logger{l: lg.l.With(args...)}
}

func (lg *Logger) Debug(msg string, args ...any) { lg.l.Debug(msg, args...) }
func (lg *Logger) Info(msg string, args ...any)  { lg.l.Info(msg, args...) }
func (lg *Logger) Warn(msg string, args ...any)  { lg.l.Warn(msg, args...) }
func (lg *Logger) Error(msg string, args ...any) { lg.l.Error(msg, args...) }

func (lg *Logger) Fatal(msg string, args ...any) {
	lg.l.Error(msg, args...)
	os.Exit(1)
}
