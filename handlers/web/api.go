// Package web はHTTPサイドカーのハンドラーとミドルウェアを提供します。
// エディタ拡張などのホストはこのAPIを通して書き換えを呼び出します。
package web

import (
	"context"
	"net/http"
	"time"

	"geminify/interfaces"
	"geminify/logger"
	"geminify/platform"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/gorilla/mux"
)

// DefaultPreviewTTL はプレビューの既定の有効期間です。
const DefaultPreviewTTL = 15 * time.Minute

// Rewriter は書き換えの実行部分です。*rewrite.Orchestrator が満たします。
type Rewriter interface {
	Start(ctx context.Context, req rewrite.Request) (*rewrite.Invocation, error)
	Execute(ctx context.Context, req rewrite.Request) rewrite.Result
	ExtractContext(doc rewrite.Document, wholeDocumentFallback bool) (rewrite.TextContext, error)
	Capabilities() platform.Capabilities
	TokenBudget() int
	IsConfigured() bool
	Busy() bool
	Verify(ctx context.Context) error
}

// SettingsUpdater はユーザー設定の読み書きです。*settings.Manager が満たします。
type SettingsUpdater interface {
	Current() settings.Settings
	Update(ctx context.Context, mutate func(*settings.Settings)) (settings.Settings, error)
}

// Store はプレビューと履歴の保存先です。*storage.DBStore が満たします。
type Store interface {
	SavePreview(ctx context.Context, p storage.Preview) error
	GetPreview(ctx context.Context, id string) (*storage.Preview, error)
	ResolvePreview(ctx context.Context, id, owner string, status storage.PreviewStatus, now time.Time) (*storage.Preview, error)
	CountPendingPreviews(ctx context.Context) (int, error)
	RecentHistory(ctx context.Context, limit int) ([]rewrite.HistoryEntry, error)
	PingDB(ctx context.Context) error
}

type Deps struct {
	Rewriter   Rewriter
	Settings   SettingsUpdater
	Store      Store
	Sessions   *Sessions
	PreviewTTL time.Duration
	Logger     interfaces.Logger
}

type Handler struct {
	rewriter   Rewriter
	settings   SettingsUpdater
	store      Store
	sessions   *Sessions
	previewTTL time.Duration
	log        interfaces.Logger
	now        func() time.Time
}

func NewHandler(d Deps) *Handler {
	ttl := d.PreviewTTL
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	sess := d.Sessions
	if sess == nil {
		sess = NewSessions("")
	}
	return &Handler{
		rewriter:   d.Rewriter,
		settings:   d.Settings,
		store:      d.Store,
		sessions:   sess,
		previewTTL: ttl,
		log:        log,
		now:        time.Now,
	}
}

// Register はAPIのルートを登録します。
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(Metrics)

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/styles", h.Styles).Methods(http.MethodGet)
	api.HandleFunc("/languages", h.Languages).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings/verify", h.VerifySettings).Methods(http.MethodPost)
	api.HandleFunc("/security", h.Security).Methods(http.MethodGet)
	api.HandleFunc("/rewrite", h.Rewrite).Methods(http.MethodPost)
	api.HandleFunc("/rewrite/stream", h.RewriteStream).Methods(http.MethodPost)
	api.HandleFunc("/previews/{id}/accept", h.AcceptPreview).Methods(http.MethodPost)
	api.HandleFunc("/previews/{id}/reject", h.RejectPreview).Methods(http.MethodPost)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)
}

func (h *Handler) locale() string {
	return h.settings.Current().Locale
}

type healthResponse struct {
	Status       string                `json:"status"`
	Configured   bool                  `json:"configured"`
	Busy         bool                  `json:"busy"`
	Database     string                `json:"database"`
	Capabilities platform.Capabilities `json:"capabilities"`
	UI           platform.UIConfig     `json:"ui"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	caps := h.rewriter.Capabilities()
	resp := healthResponse{
		Status:       "ok",
		Configured:   h.rewriter.IsConfigured(),
		Busy:         h.rewriter.Busy(),
		Database:     "ok",
		Capabilities: caps,
		UI:           caps.UIConfig(),
	}
	if err := h.store.PingDB(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
