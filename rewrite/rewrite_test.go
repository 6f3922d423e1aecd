package rewrite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"geminify/apperr"
	"geminify/cache"
	"geminify/gemini"
	"geminify/logger"
	"geminify/platform"
	"geminify/prompt"
	"geminify/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGenerator は受け取ったプロンプトを記録し、reply を返します。
type mockGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(call int) (string, error)
	release chan struct{}
	entered chan struct{}
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, cfg gemini.GenerationConfig) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.reply == nil {
		return "rewritten", nil
	}
	return m.reply(call)
}

func (m *mockGenerator) Close() error { return nil }

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *memoryHistory) RecordHistory(ctx context.Context, e HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func testSettings() settings.Settings {
	s := settings.Defaults()
	s.APIKey = "AIzaSy-test-key-0123456789"
	return s
}

func newOrchestrator(t *testing.T, s settings.Settings, gen *mockGenerator, mutate func(*Options)) *Orchestrator {
	t.Helper()
	opts := Options{
		Capabilities: platform.Detect(platform.Environment{GOOS: "linux"}),
		Cooldown:     -1,
		BaseDelay:    time.Millisecond,
		NewGenerator: func(ctx context.Context, apiKey string) (gemini.Generator, error) {
			return gen, nil
		},
		Logger: logger.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	o, err := New(context.Background(), s, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"hello world", 3},
		{"日本語のテキスト", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), tt.text)
	}
}

func TestValidateLengthMonotonic(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog, again and again and again."
	first := -1
	for budget := 0; budget <= 40; budget++ {
		ok := ValidateLength(text, budget)
		if ok && first < 0 {
			first = budget
		}
		if first >= 0 {
			assert.True(t, ok, "budget %d", budget)
		}
	}
	assert.Equal(t, EstimateTokens(text), first)
}

func TestEndToEndReplaceTechnical(t *testing.T) {
	gen := &mockGenerator{reply: func(int) (string, error) { return "  Hello, World.  ", nil }}
	o := newOrchestrator(t, testSettings(), gen, nil)

	doc := Document{Text: "Intro. hello world. Outro.", Selection: &Span{Start: 7, End: 18}}
	tc, err := o.ExtractContext(doc, false)
	require.NoError(t, err)
	require.True(t, tc.HasSelection)
	require.Equal(t, "hello world", tc.Text)

	result := o.Execute(context.Background(), Request{
		Text:     tc.Text,
		Span:     tc.Span,
		Style:    prompt.StyleTechnical,
		Strategy: StrategyReplace,
	})
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Hello, World.", result.Rewritten)
	assert.Equal(t, 1, result.Attempts)

	require.Equal(t, 1, gen.Calls())
	assert.Contains(t, gen.prompts[0], "hello world")
	assert.Contains(t, gen.prompts[0], prompt.StyleTechnical.Template())

	require.NoError(t, Apply(result, &doc, StrategyReplace))
	assert.Equal(t, "Intro. Hello, World.. Outro.", doc.Text)
	assert.Equal(t, 7+len("Hello, World."), doc.Cursor)
	assert.Nil(t, doc.Selection)
}

func TestCustomLanguageWithoutNameNeverCallsNetwork(t *testing.T) {
	s := testSettings()
	s.LanguageRewrite = settings.LanguageRewrite{Enabled: true, TargetLanguage: prompt.CustomLanguage}
	gen := &mockGenerator{}
	o := newOrchestrator(t, s, gen, nil)

	result := o.Execute(context.Background(), Request{Text: "hello world"})
	assert.False(t, result.Success)
	assert.Equal(t, apperr.KindConfig, result.ErrorKind)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, 0, gen.Calls())
}

func TestBusyGuardRejectsSecondInvocation(t *testing.T) {
	gen := &mockGenerator{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := newOrchestrator(t, testSettings(), gen, nil)

	first, err := o.Start(context.Background(), Request{Text: "first"})
	require.NoError(t, err)
	<-gen.entered
	assert.Equal(t, StateRequesting, first.State())
	assert.True(t, o.Busy())

	second := o.Execute(context.Background(), Request{Text: "second"})
	assert.False(t, second.Success)
	assert.Equal(t, apperr.KindBusy, second.ErrorKind)
	assert.NotEmpty(t, second.Message)

	close(gen.release)
	r := first.Wait()
	assert.True(t, r.Success)
	assert.Equal(t, StateSucceeded, first.State())
	assert.Equal(t, 1, gen.Calls())
	assert.False(t, o.Busy())
}

func TestCooldownRejectsRapidInvocations(t *testing.T) {
	gen := &mockGenerator{}
	o := newOrchestrator(t, testSettings(), gen, func(opts *Options) { opts.Cooldown = time.Hour })

	first := o.Execute(context.Background(), Request{Text: "one"})
	require.True(t, first.Success)

	second := o.Execute(context.Background(), Request{Text: "two"})
	assert.False(t, second.Success)
	assert.Equal(t, apperr.KindThrottled, second.ErrorKind)
	assert.Equal(t, 1, gen.Calls())
}

func TestProgressMilestonesInOrder(t *testing.T) {
	gen := &mockGenerator{reply: func(call int) (string, error) {
		if call == 1 {
			return "", errors.New("NETWORK_ERROR")
		}
		return "done", nil
	}}
	o := newOrchestrator(t, testSettings(), gen, nil)

	inv, err := o.Start(context.Background(), Request{Text: "hello"})
	require.NoError(t, err)

	var events []Progress
	for p := range inv.Progress() {
		events = append(events, p)
	}
	result := inv.Wait()
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)

	var stages []Stage
	last := 0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Percent, last)
		last = e.Percent
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []Stage{StageConnecting, StageComposing, StageRetrying, StageProcessing, StageDone}, stages)
	assert.Equal(t, 100, last)
}

func TestCancelAbortsRequest(t *testing.T) {
	gen := &mockGenerator{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := newOrchestrator(t, testSettings(), gen, nil)

	inv, err := o.Start(context.Background(), Request{Text: "hello"})
	require.NoError(t, err)
	<-gen.entered
	inv.Cancel()

	result := inv.Wait()
	assert.False(t, result.Success)
	assert.Equal(t, apperr.KindCanceled, result.ErrorKind)
	assert.Equal(t, StateFailed, inv.State())
}

func TestExecuteValidation(t *testing.T) {
	gen := &mockGenerator{}

	t.Run("too long", func(t *testing.T) {
		s := testSettings()
		s.MaxTokens = 512
		o := newOrchestrator(t, s, gen, nil)
		long := make([]byte, 4*512+1)
		for i := range long {
			long[i] = 'a'
		}
		r := o.Execute(context.Background(), Request{Text: string(long)})
		assert.Equal(t, apperr.KindValidation, r.ErrorKind)
		assert.Contains(t, r.Message, "Limit: 512")
	})

	t.Run("empty", func(t *testing.T) {
		o := newOrchestrator(t, testSettings(), gen, nil)
		r := o.Execute(context.Background(), Request{Text: "   "})
		assert.Equal(t, apperr.KindValidation, r.ErrorKind)
	})

	t.Run("no api key", func(t *testing.T) {
		s := testSettings()
		s.APIKey = ""
		o := newOrchestrator(t, s, gen, nil)
		assert.False(t, o.IsConfigured())
		r := o.Execute(context.Background(), Request{Text: "hello"})
		assert.Equal(t, apperr.KindConfig, r.ErrorKind)
		assert.Contains(t, r.Message, "API key")
	})

	assert.Equal(t, 0, gen.Calls())
}

func TestFailureIsLocalized(t *testing.T) {
	s := testSettings()
	s.Locale = "tr"
	gen := &mockGenerator{reply: func(int) (string, error) { return "", errors.New("RATE_LIMIT_EXCEEDED") }}
	o := newOrchestrator(t, s, gen, nil)

	r := o.Execute(context.Background(), Request{Text: "merhaba"})
	assert.False(t, r.Success)
	assert.Equal(t, apperr.KindRateLimited, r.ErrorKind)
	assert.Equal(t, "Çok fazla istek gönderildi. Lütfen bir süre bekleyin.", r.Message)
	assert.Equal(t, 1, gen.Calls())
}

func TestCacheAndHistory(t *testing.T) {
	gen := &mockGenerator{}
	history := &memoryHistory{}
	o := newOrchestrator(t, testSettings(), gen, func(opts *Options) {
		opts.Cache = cache.NewMemory(time.Minute)
		opts.History = history
	})

	first := o.Execute(context.Background(), Request{Text: "hello", Host: "test"})
	second := o.Execute(context.Background(), Request{Text: "hello", Host: "test"})
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, gen.Calls())

	require.Len(t, history.entries, 2)
	assert.Equal(t, "success", history.entries[0].Outcome)
	assert.Equal(t, "test", history.entries[0].Host)
	assert.True(t, history.entries[1].Cached)
}

func TestReconfigureSwapsPipeline(t *testing.T) {
	gen := &mockGenerator{}
	o := newOrchestrator(t, testSettings(), gen, nil)

	s := testSettings()
	s.Model = settings.ModelPro
	s.LanguageRewrite = settings.LanguageRewrite{Enabled: true, TargetLanguage: "turkish"}
	require.NoError(t, o.Reconfigure(context.Background(), s))
	assert.Equal(t, settings.ModelPro, o.Settings().Model)

	r := o.Execute(context.Background(), Request{Text: "hello"})
	require.True(t, r.Success)
	assert.Equal(t, settings.ModelPro, r.Model)
	assert.Contains(t, gen.prompts[0], "Türkçe")

	bad := testSettings()
	bad.Temperature = 3
	assert.Error(t, o.Reconfigure(context.Background(), bad))
	assert.Equal(t, settings.ModelPro, o.Settings().Model)
}

func TestExtractContext(t *testing.T) {
	o := newOrchestrator(t, testSettings(), &mockGenerator{}, nil)

	_, err := o.ExtractContext(Document{Text: "whole note"}, false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	tc, err := o.ExtractContext(Document{Text: "whole note"}, true)
	require.NoError(t, err)
	assert.False(t, tc.HasSelection)
	assert.Nil(t, tc.Span)
	assert.Equal(t, "whole note", tc.Text)

	_, err = o.ExtractContext(Document{Text: "abc", Selection: &Span{Start: 1, End: 10}}, false)
	assert.Error(t, err)

	_, err = o.ExtractContext(Document{Text: "  \n "}, true)
	assert.Error(t, err)
}

func TestSelectionMustNotSplitCharacters(t *testing.T) {
	o := newOrchestrator(t, testSettings(), &mockGenerator{}, nil)
	text := "héllo world"

	for _, span := range []Span{{Start: 0, End: 2}, {Start: 2, End: 5}} {
		_, err := o.ExtractContext(Document{Text: text, Selection: &span}, false)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%v", span)
	}

	tc, err := o.ExtractContext(Document{Text: text, Selection: &Span{Start: 0, End: 3}}, false)
	require.NoError(t, err)
	assert.Equal(t, "hé", tc.Text)

	tc, err = o.ExtractContext(Document{Text: text, Selection: &Span{Start: 7, End: len(text)}}, false)
	require.NoError(t, err)
	assert.Equal(t, "world", tc.Text)

	doc := Document{Text: text}
	split := Result{Success: true, Original: text[:2], Rewritten: "rewritten", Span: &Span{Start: 0, End: 2}}
	assert.Error(t, Apply(split, &doc, StrategyReplace))
	assert.Equal(t, text, doc.Text)
	assert.True(t, utf8.ValidString(doc.Text))
}

func TestApplyStrategies(t *testing.T) {
	ok := Result{Success: true, Original: "draft", Rewritten: "final"}

	doc := Document{Text: "draft"}
	require.NoError(t, Apply(ok, &doc, StrategyReplace))
	assert.Equal(t, "final", doc.Text)

	doc = Document{Text: "draft"}
	require.NoError(t, Apply(ok, &doc, StrategyAppend))
	assert.Equal(t, "draft"+AppendSeparator+"final", doc.Text)
	assert.Equal(t, len(doc.Text), doc.Cursor)

	doc = Document{Text: "draft", Cursor: 2}
	require.NoError(t, Apply(ok, &doc, StrategyPreview))
	assert.Equal(t, Document{Text: "draft", Cursor: 2}, doc)

	failed := Result{Success: false, Message: "x"}
	assert.Error(t, Apply(failed, &doc, StrategyReplace))

	spanned := Result{Success: true, Original: "draft", Rewritten: "final", Span: &Span{Start: 0, End: 5}}
	changed := Document{Text: "other text"}
	assert.Error(t, Apply(spanned, &changed, StrategyReplace))
	assert.Equal(t, "other text", changed.Text)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("APPEND")
	require.NoError(t, err)
	assert.Equal(t, StrategyAppend, s)
	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyReplace, s)
	_, err = ParseStrategy("merge")
	assert.Error(t, err)
}
