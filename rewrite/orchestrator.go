// Package rewrite は選択テキストの検証・プロンプト作成・生成・文書への反映を取りまとめます。
package rewrite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"geminify/apperr"
	"geminify/cache"
	"geminify/gemini"
	"geminify/i18n"
	"geminify/interfaces"
	"geminify/metrics"
	"geminify/platform"
	"geminify/prompt"
	"geminify/settings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultCooldown は受け付けた呼び出しの後、次の呼び出しを拒否する時間です。
const DefaultCooldown = 300 * time.Millisecond

// GeneratorFactory はAPIキーから Generator を作成します。
type GeneratorFactory func(ctx context.Context, apiKey string) (gemini.Generator, error)

// Options は Orchestrator の依存関係です。
type Options struct {
	Capabilities platform.Capabilities
	// Cooldown が0なら DefaultCooldown、負の値なら無効です。
	Cooldown     time.Duration
	BaseDelay    time.Duration
	NewGenerator GeneratorFactory
	Cache        cache.Cache
	History      HistoryRecorder
	Notifier     interfaces.Notifier
	Logger       interfaces.Logger
}

// pipeline は設定から組み立てた不変の部品一式です。Reconfigure で丸ごと差し替えます。
type pipeline struct {
	settings settings.Settings
	composer *prompt.Composer
	client   *gemini.Client
	inUse    sync.WaitGroup
}

// Orchestrator は書き換えの入口です。同時に実行できる書き換えは1つだけです。
type Orchestrator struct {
	mu       sync.RWMutex
	pipeline *pipeline

	caps      platform.Capabilities
	busy      atomic.Bool
	current   atomic.Pointer[Invocation]
	cooldown  *rate.Limiter
	opts      Options
	log       interfaces.Logger
	closeOnce sync.Once
}

// New は設定から Orchestrator を作成します。
func New(ctx context.Context, s settings.Settings, opts Options) (*Orchestrator, error) {
	if opts.NewGenerator == nil {
		opts.NewGenerator = func(ctx context.Context, apiKey string) (gemini.Generator, error) {
			return gemini.NewGenerator(ctx, gemini.BackendSDK, apiKey, "")
		}
	}
	if opts.Capabilities.Kind == "" {
		opts.Capabilities = platform.Detect(platform.CurrentEnvironment(platform.ModeAuto))
	}

	limit := rate.Every(DefaultCooldown)
	switch {
	case opts.Cooldown < 0:
		limit = rate.Inf
	case opts.Cooldown > 0:
		limit = rate.Every(opts.Cooldown)
	}

	o := &Orchestrator{
		caps:     opts.Capabilities,
		cooldown: rate.NewLimiter(limit, 1),
		opts:     opts,
		log:      opts.Logger,
	}
	if err := o.Reconfigure(ctx, s); err != nil {
		return nil, err
	}
	return o, nil
}

// Reconfigure は新しい設定で Composer と Client を作り直し、まとめて差し替えます。
// 失敗した場合は以前の部品がそのまま使われます。
func (o *Orchestrator) Reconfigure(ctx context.Context, s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	var gen gemini.Generator
	if s.HasAPIKey() {
		g, err := o.opts.NewGenerator(ctx, s.APIKey)
		if err != nil {
			return apperr.New(apperr.KindConfig, "could not create the Gemini client", err)
		}
		gen = g
	}

	next := &pipeline{
		settings: s,
		composer: prompt.NewComposer(s),
		client: gemini.NewClient(gen, s.APIKey, gemini.Options{
			MaxAttempts: o.caps.RetryAttempts,
			BaseDelay:   o.opts.BaseDelay,
			Timeout:     o.caps.Timeout,
			Locale:      s.Locale,
			Notifier:    interfaces.NotifierFunc(o.relayNotice),
			Logger:      o.log,
		}),
	}

	o.mu.Lock()
	prev := o.pipeline
	o.pipeline = next
	o.mu.Unlock()

	if prev != nil {
		// 実行中の呼び出しが古い Client を使い終わってから閉じる
		go func() {
			prev.inUse.Wait()
			if err := prev.client.Close(); err != nil {
				o.logWarn("failed to close previous client", "error", err)
			}
		}()
	}
	o.logInfo("rewrite pipeline configured", "model", s.Model, "configured", next.client.IsConfigured(), "language_rewrite", s.LanguageRewrite.Enabled)
	return nil
}

// Settings は現在使われている設定を返します。
func (o *Orchestrator) Settings() settings.Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pipeline.settings
}

// Capabilities は起動時に検出した環境の能力値を返します。
func (o *Orchestrator) Capabilities() platform.Capabilities {
	return o.caps
}

// IsConfigured はAPIキーが設定済みかどうかを返します。
func (o *Orchestrator) IsConfigured() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pipeline.client.IsConfigured()
}

// Busy は書き換えが実行中かどうかを返します。
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// TokenBudget は現在の設定と環境から決まる入力の上限を返します。
func (o *Orchestrator) TokenBudget() int {
	return o.caps.TokenBudget(o.Settings().MaxTokens)
}

// ExtractContext は選択範囲、または wholeDocumentFallback が真なら文書全体を対象テキストとして返します。
func (o *Orchestrator) ExtractContext(doc Document, wholeDocumentFallback bool) (TextContext, error) {
	locale := o.Settings().Locale

	if doc.Selection != nil && doc.Selection.Start != doc.Selection.End {
		span := *doc.Selection
		if !span.valid(doc.Text) {
			return TextContext{}, apperr.Validation("selection is outside the document or splits a character")
		}
		text := doc.Text[span.Start:span.End]
		if strings.TrimSpace(text) == "" {
			return TextContext{}, apperr.Validation(i18n.Message(locale, i18n.KeyEmptyText))
		}
		return TextContext{HasSelection: true, Text: text, Span: &span}, nil
	}

	if !wholeDocumentFallback {
		return TextContext{}, apperr.Validation(i18n.Message(locale, i18n.KeySelectTextFirst))
	}
	if strings.TrimSpace(doc.Text) == "" {
		return TextContext{}, apperr.Validation(i18n.Message(locale, i18n.KeyEmptyText))
	}
	return TextContext{Text: doc.Text}, nil
}

// Execute は書き換えを同期的に実行します。失敗はすべて Failed の Result として返します。
func (o *Orchestrator) Execute(ctx context.Context, req Request) Result {
	inv, err := o.Start(ctx, req)
	if err != nil {
		return o.failure(req, "", o.Settings(), asAppError(err), 0)
	}
	return inv.Wait()
}

// Start は書き換えを開始します。実行中の呼び出しがある場合やクールダウン中の場合は
// busy / throttled のエラーを返し、ネットワークには到達しません。
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Invocation, error) {
	locale := o.Settings().Locale

	if !o.busy.CompareAndSwap(false, true) {
		return nil, apperr.New(apperr.KindBusy, i18n.Message(locale, i18n.KeyBusy), nil)
	}
	if !o.cooldown.Allow() {
		o.busy.Store(false)
		return nil, apperr.New(apperr.KindThrottled, i18n.Message(locale, i18n.KeyThrottled), nil)
	}

	o.mu.RLock()
	p := o.pipeline
	p.inUse.Add(1)
	o.mu.RUnlock()

	ctx, cancel := context.WithCancel(ctx)
	inv := newInvocation(uuid.NewString(), cancel, len(stagePercent)+o.caps.RetryAttempts)
	inv.setState(StateValidating)
	o.current.Store(inv)

	go func() {
		r := o.run(ctx, inv, p, req)
		o.current.CompareAndSwap(inv, nil)
		p.inUse.Done()
		// 待機側が次の呼び出しを始められるよう、完了通知より先にガードを外す
		o.busy.Store(false)
		inv.finish(r)
	}()
	return inv, nil
}

func (o *Orchestrator) run(ctx context.Context, inv *Invocation, p *pipeline, req Request) Result {
	start := time.Now()
	s := p.settings
	locale := s.Locale

	if req.Strategy == "" {
		req.Strategy = StrategyReplace
	}
	if req.Host == "" {
		req.Host = "library"
	}

	metrics.InputChars.Observe(float64(len(req.Text)))

	// 検証
	if strings.TrimSpace(req.Text) == "" {
		return o.finishFailure(inv, req, s, apperr.Validation(i18n.Message(locale, i18n.KeyEmptyText)), 0, start)
	}
	if !p.client.IsConfigured() {
		return o.finishFailure(inv, req, s, apperr.New(apperr.KindConfig, i18n.Message(locale, i18n.KeyConfigureAPIKey), nil), 0, start)
	}
	budget := o.caps.TokenBudget(s.MaxTokens)
	if !ValidateLength(req.Text, budget) {
		msg := i18n.Message(locale, i18n.KeyTextTooLong, EstimateTokens(req.Text), budget)
		return o.finishFailure(inv, req, s, apperr.Validation(msg), 0, start)
	}

	inv.emit(StageConnecting, i18n.Message(locale, i18n.KeyProgressConnecting))

	promptText, err := p.composer.Build(req.Text, req.Style, req.CustomInstructions, req.Language)
	if err != nil {
		return o.finishFailure(inv, req, s, asAppError(err), 0, start)
	}
	inv.emit(StageComposing, i18n.Message(locale, i18n.KeyProgressComposing))

	inv.setState(StateRequesting)
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	cfg := gemini.GenerationConfig{Model: s.Model, Temperature: s.Temperature, MaxTokens: budget}
	key := cache.Key(cfg.Model, cfg.Temperature, cfg.MaxTokens, promptText)

	if text, ok := o.cacheGet(ctx, key); ok {
		inv.emit(StageProcessing, i18n.Message(locale, i18n.KeyProgressProcessing))
		r := o.success(inv, req, s, text, 0, true)
		inv.emit(StageDone, i18n.Message(locale, i18n.KeyProgressDone))
		o.observe(req, r, start)
		return r
	}

	resp := p.client.Send(ctx, promptText, cfg)
	metrics.GenerationAttempts.Observe(float64(resp.Attempts))
	if !resp.Success {
		return o.finishFailure(inv, req, s, resp.Err, resp.Attempts, start)
	}

	inv.emit(StageProcessing, i18n.Message(locale, i18n.KeyProgressProcessing))
	o.cacheSet(ctx, key, resp.Text)

	r := o.success(inv, req, s, resp.Text, resp.Attempts, false)
	inv.emit(StageDone, i18n.Message(locale, i18n.KeyProgressDone))
	o.observe(req, r, start)
	return r
}

func (o *Orchestrator) success(inv *Invocation, req Request, s settings.Settings, text string, attempts int, cached bool) Result {
	key := i18n.KeyRewriteSuccess
	if req.Strategy == StrategyAppend {
		key = i18n.KeyAppendSuccess
	}
	return Result{
		ID:        inv.ID(),
		Original:  req.Text,
		Rewritten: text,
		Success:   true,
		Message:   i18n.Message(s.Locale, key),
		Span:      req.Span,
		Strategy:  req.Strategy,
		Style:     req.Style,
		Model:     s.Model,
		Attempts:  attempts,
		Cached:    cached,
	}
}

func (o *Orchestrator) failure(req Request, id string, s settings.Settings, err *apperr.Error, attempts int) Result {
	if req.Strategy == "" {
		req.Strategy = StrategyReplace
	}
	msg := i18n.ErrorMessage(s.Locale, err)
	if msg == "" {
		msg = i18n.Message(s.Locale, i18n.KeyUnknownError, err.Error())
	}
	return Result{
		ID:        id,
		Original:  req.Text,
		Err:       err,
		ErrorKind: err.Kind,
		Message:   msg,
		Span:      req.Span,
		Strategy:  req.Strategy,
		Style:     req.Style,
		Model:     s.Model,
		Attempts:  attempts,
	}
}

func (o *Orchestrator) finishFailure(inv *Invocation, req Request, s settings.Settings, err *apperr.Error, attempts int, start time.Time) Result {
	r := o.failure(req, inv.ID(), s, err, attempts)
	o.logWarn("rewrite failed", "id", r.ID, "host", req.Host, "kind", err.Kind, "attempts", attempts, "error", err)
	o.observe(req, r, start)
	return r
}

func (o *Orchestrator) observe(req Request, r Result, start time.Time) {
	elapsed := time.Since(start)
	outcome := "success"
	if !r.Success {
		outcome = string(r.ErrorKind)
	}
	metrics.RewritesTotal.WithLabelValues(req.Host, outcome).Inc()
	metrics.RewriteDuration.WithLabelValues(r.Model).Observe(elapsed.Seconds())

	if o.opts.History == nil {
		return
	}
	// 呼び出し元のコンテキストがキャンセルされていても履歴は残す
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entry := HistoryEntry{
		ID:          r.ID,
		Host:        req.Host,
		Model:       r.Model,
		Style:       string(r.Style),
		Strategy:    string(r.Strategy),
		Outcome:     outcome,
		InputChars:  len(r.Original),
		OutputChars: len(r.Rewritten),
		Attempts:    r.Attempts,
		Cached:      r.Cached,
		Duration:    elapsed,
		CreatedAt:   start,
	}
	if err := o.opts.History.RecordHistory(ctx, entry); err != nil {
		o.logWarn("failed to record history", "id", r.ID, "error", err)
	}
}

func (o *Orchestrator) cacheGet(ctx context.Context, key string) (string, bool) {
	if o.opts.Cache == nil {
		return "", false
	}
	text, ok, err := o.opts.Cache.Get(ctx, key)
	if err != nil {
		o.logWarn("cache lookup failed", "error", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return "", false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return text, true
}

func (o *Orchestrator) cacheSet(ctx context.Context, key, text string) {
	if o.opts.Cache == nil {
		return
	}
	if err := o.opts.Cache.Set(ctx, key, text); err != nil {
		o.logWarn("cache store failed", "error", err)
	}
}

// relayNotice は Client の再試行通知を実行中の呼び出しの進捗とホストの通知先へ流します。
func (o *Orchestrator) relayNotice(level interfaces.NoticeLevel, message string) {
	if inv := o.current.Load(); inv != nil {
		inv.emit(StageRetrying, message)
	}
	if o.opts.Notifier != nil {
		o.opts.Notifier.Notify(level, message)
	}
}

// Verify は現在のAPIキーで疎通を確認します。
func (o *Orchestrator) Verify(ctx context.Context) error {
	o.mu.RLock()
	p := o.pipeline
	p.inUse.Add(1)
	o.mu.RUnlock()
	defer p.inUse.Done()

	return p.client.Verify(ctx, p.settings.Model)
}

// Close は Client と Cache を解放します。
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.RLock()
		p := o.pipeline
		o.mu.RUnlock()
		p.inUse.Wait()
		err = p.client.Close()
		if o.opts.Cache != nil {
			if cerr := o.opts.Cache.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (o *Orchestrator) logInfo(msg string, args ...any) {
	if o.log != nil {
		o.log.Info(msg, args...)
	}
}

func (o *Orchestrator) logWarn(msg string, args ...any) {
	if o.log != nil {
		o.log.Warn(msg, args...)
	}
}

func asAppError(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.New(apperr.KindOf(err), err.Error(), err)
}
