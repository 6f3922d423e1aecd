package gemini

import (
	"context"
	"strings"
	"time"

	"geminify/apperr"
	"geminify/i18n"
	"geminify/interfaces"
)

// 既定値
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultTimeout     = 30 * time.Second
)

// Options は Client の動作設定です。ゼロ値のフィールドには既定値が使われます。
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
	Locale      string
	Notifier    interfaces.Notifier
	Logger      interfaces.Logger
}

// Response は1回の Send の最終結果です。
type Response struct {
	Text     string
	Success  bool
	Err      *apperr.Error
	Attempts int
}

// Client は Generator を単一の期限・指数バックオフ・エラー分類で包みます。
type Client struct {
	gen    Generator
	apiKey string
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient は新しいClientを作成します。gen が nil の場合、Client は未設定扱いです。
func NewClient(gen Generator, apiKey string, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		gen:    gen,
		apiKey: apiKey,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// IsConfigured はAPIキーとバックエンドが揃っているかを返します。副作用はありません。
func (c *Client) IsConfigured() bool {
	return c != nil && c.gen != nil && strings.TrimSpace(c.apiKey) != ""
}

// Timeout は Send に適用される期限を返します。
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Close はバックエンドを解放します。
func (c *Client) Close() error {
	if c == nil || c.gen == nil {
		return nil
	}
	return c.gen.Close()
}

// Send はプロンプトを送信し、必要に応じて再試行します。
// 期限はすべての試行とバックオフ待機を含めて1つです。エラーは Response.Err で返します。
func (c *Client) Send(ctx context.Context, prompt string, cfg GenerationConfig) Response {
	if !c.IsConfigured() {
		return Response{Err: apperr.New(apperr.KindConfig, "API key is not configured", nil)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var last *apperr.Error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		text, err := c.gen.Generate(ctx, prompt, cfg)
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				if attempt > 1 {
					c.logInfo("retry succeeded", "attempt", attempt, "max_attempts", c.opts.MaxAttempts)
				}
				return Response{Text: text, Success: true, Attempts: attempt}
			}
			last = apperr.New(apperr.KindEmptyResponse, "provider returned an empty response", nil)
		} else {
			last = c.classify(ctx, err)
		}

		c.logWarn("generation attempt failed", "attempt", attempt, "max_attempts", c.opts.MaxAttempts, "kind", last.Kind, "error", last)

		if !apperr.Retryable(last.Kind) || attempt == c.opts.MaxAttempts {
			return Response{Err: last, Attempts: attempt}
		}

		c.notify(interfaces.NoticeWarning, i18n.Message(c.opts.Locale, i18n.KeyRetrying, attempt))

		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return Response{Err: c.classify(ctx, err), Attempts: attempt}
		}
	}
	return Response{Err: last, Attempts: c.opts.MaxAttempts}
}

// Verify は短いプロンプトを1回だけ送ってAPIキーを確認します。
func (c *Client) Verify(ctx context.Context, model string) error {
	if !c.IsConfigured() {
		return apperr.New(apperr.KindConfig, "API key is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	text, err := c.gen.Generate(ctx, "Hello", GenerationConfig{Model: model})
	if err != nil {
		return c.classify(ctx, err)
	}
	if strings.TrimSpace(text) == "" {
		return apperr.New(apperr.KindEmptyResponse, "provider returned an empty response", nil)
	}
	return nil
}

// backoff は attempt 回目の失敗後の待機時間 BaseDelay * 2^(attempt-1) を返します。
func (c *Client) backoff(attempt int) time.Duration {
	return c.opts.BaseDelay << (attempt - 1)
}

func (c *Client) classify(ctx context.Context, err error) *apperr.Error {
	ae := Classify(ctx, err)
	if ae.Kind == apperr.KindTimeout {
		// 表示用に期限の長さを持たせる
		return apperr.New(apperr.KindTimeout, c.opts.Timeout.String(), ae.Cause)
	}
	return ae
}

func (c *Client) notify(level interfaces.NoticeLevel, message string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(level, message)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.opts.Logger != nil {
		c.opts.Logger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.opts.Logger != nil {
		c.opts.Logger.Warn(msg, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
