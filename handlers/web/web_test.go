package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"geminify/apperr"
	"geminify/gemini"
	"geminify/logger"
	"geminify/platform"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "AIzaSyTestKey0123456789abcdef"

type fakeGenerator struct {
	reply string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, cfg gemini.GenerationConfig) (string, error) {
	return g.reply, nil
}

func (g *fakeGenerator) Close() error { return nil }

type testEnv struct {
	handler http.Handler
	store   *storage.DBStore
	manager *settings.Manager
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewDBStore(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bootstrap := settings.Defaults()
	bootstrap.APIKey = testKey
	mgr := settings.NewManager(store, bootstrap, logger.Nop())
	current, err := mgr.Load(ctx)
	require.NoError(t, err)

	orch, err := rewrite.New(ctx, current, rewrite.Options{
		Capabilities: platform.Detect(platform.Environment{GOOS: "linux", Mode: platform.ModeDesktop}),
		Cooldown:     -1,
		NewGenerator: func(ctx context.Context, apiKey string) (gemini.Generator, error) {
			return &fakeGenerator{reply: "Hello, World."}, nil
		},
		History: store,
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { orch.Close() })
	mgr.Subscribe(func(s settings.Settings) { orch.Reconfigure(context.Background(), s) })

	h := NewHandler(Deps{
		Rewriter: orch,
		Settings: mgr,
		Store:    store,
		Sessions: NewSessions("test-session-secret"),
		Logger:   logger.Nop(),
	})
	r := mux.NewRouter()
	h.Register(r)
	return &testEnv{handler: Chain(r, logger.Nop(), apiKey), store: store, manager: mgr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func sampleDocument() *rewrite.Document {
	return &rewrite.Document{
		Text:      "Intro. hello world. Outro.",
		Selection: &rewrite.Span{Start: 7, End: 18},
	}
}

func TestAPIKeyExemptsHealth(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[healthResponse](t, w)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Configured)
	assert.Equal(t, "medium", health.UI.ModalSize)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodGet, "/api/styles", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/styles", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	styles := decode[[]styleInfo](t, rec)
	assert.Len(t, styles, 8)
}

func TestRewriteReplacesSelection(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{
		Document: sampleDocument(),
		Style:    "technical",
		Strategy: "replace",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[rewriteResponse](t, w)
	assert.True(t, resp.Result.Success)
	assert.Equal(t, "hello world", resp.Result.Original)
	require.NotNil(t, resp.Document)
	assert.Equal(t, "Intro. Hello, World.. Outro.", resp.Document.Text)

	// 履歴に記録される
	w = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]rewrite.HistoryEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "success", entries[0].Outcome)
	assert.Equal(t, hostName, entries[0].Host)
}

func TestRewriteValidation(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[rewriteResponse](t, w)
	assert.Equal(t, apperr.KindValidation, resp.Result.ErrorKind)

	w = env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{Text: "hi", Style: "pirate"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[errorResponse](t, w)
	assert.Equal(t, apperr.KindValidation, errResp.Kind)

	w = env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{
		Document: &rewrite.Document{Text: "no selection here"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/rewrite", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewAcceptFlow(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{
		Document: sampleDocument(),
		Strategy: "preview",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	resp := decode[rewriteResponse](t, w)
	require.NotNil(t, resp.Preview)
	assert.Nil(t, resp.Document)
	id := resp.Preview.ID

	// 別のセッションからは見えない
	w = env.do(t, http.MethodPost, "/api/previews/"+id+"/accept", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 開始後に文書が変わっていれば適用しない
	changed := sampleDocument()
	changed.Text = "Intro. HELLO world. Outro."
	w = env.do(t, http.MethodPost, "/api/previews/"+id+"/accept", resolveRequest{Document: changed}, cookies...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/previews/"+id+"/accept", resolveRequest{Document: sampleDocument()}, cookies...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[resolveResponse](t, w)
	assert.Equal(t, storage.PreviewAccepted, resolved.Preview.Status)
	require.NotNil(t, resolved.Document)
	assert.Equal(t, "Intro. Hello, World.. Outro.", resolved.Document.Text)

	w = env.do(t, http.MethodPost, "/api/previews/"+id+"/reject", nil, cookies...)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPreviewReject(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/rewrite", rewriteRequest{Text: "hello world", Strategy: "preview"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	resp := decode[rewriteResponse](t, w)

	w = env.do(t, http.MethodPost, "/api/previews/"+resp.Preview.ID+"/reject", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[resolveResponse](t, w)
	assert.Equal(t, storage.PreviewRejected, resolved.Preview.Status)
	assert.Equal(t, "Changes rejected", resolved.Message)

	n, err := env.store.CountPendingPreviews(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[settings.Settings](t, w)
	assert.Equal(t, settings.MaskKey(testKey), got.APIKey)
	assert.NotEqual(t, testKey, got.APIKey)

	w = env.do(t, http.MethodPut, "/api/settings", map[string]interface{}{
		"temperature": 0.4,
		"locale":      "tr-TR",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[settings.Settings](t, w)
	assert.InDelta(t, 0.4, got.Temperature, 1e-9)
	assert.Equal(t, "tr", got.Locale)
	assert.Equal(t, settings.ModelFlash, env.manager.Current().Model)

	w = env.do(t, http.MethodPut, "/api/settings", map[string]interface{}{"temperature": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[errorResponse](t, w)
	assert.Equal(t, apperr.KindConfig, errResp.Kind)

	w = env.do(t, http.MethodPut, "/api/settings", map[string]interface{}{
		"language_rewrite": map[string]interface{}{"enabled": true, "target_language": "custom"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/settings/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	verify := decode[verifyResponse](t, w)
	assert.True(t, verify.Valid)

	w = env.do(t, http.MethodGet, "/api/security", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sec := decode[settings.SecurityStatus](t, w)
	assert.Equal(t, settings.SecurityHigh, sec.Level)
}

func TestLanguages(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodGet, "/api/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[languagesResponse](t, w)
	assert.NotEmpty(t, resp.Languages)
	assert.Contains(t, resp.Suggested, "turkish")
	assert.Empty(t, resp.Current)
}

func TestRewriteStream(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/rewrite/stream", rewriteRequest{Text: "hello world"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"percent":100`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, `"rewritten":"Hello, World."`)
	assert.Less(t, strings.Index(body, "event: progress"), strings.Index(body, "event: result"))
}
