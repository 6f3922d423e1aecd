package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"geminify/apperr"
	"geminify/i18n"
	"geminify/metrics"
	"geminify/prompt"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/gorilla/mux"
)

const hostName = "http"

// rewriteRequest は書き換えAPIのリクエストです。
// Document を送った場合は選択範囲 (または whole_document が真なら文書全体) が対象になり、
// 結果は戦略に従って文書に反映されて返ります。Document がなければ Text が対象です。
type rewriteRequest struct {
	Text               string                    `json:"text"`
	Document           *rewrite.Document         `json:"document"`
	WholeDocument      bool                      `json:"whole_document"`
	Style              string                    `json:"style"`
	CustomInstructions string                    `json:"custom_instructions"`
	Strategy           string                    `json:"strategy"`
	Language           *settings.LanguageRewrite `json:"language"`
}

type previewInfo struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type rewriteResponse struct {
	Result   rewrite.Result    `json:"result"`
	Document *rewrite.Document `json:"document,omitempty"`
	Preview  *previewInfo      `json:"preview,omitempty"`
}

func (h *Handler) toRequest(body rewriteRequest) (rewrite.Request, error) {
	style, err := prompt.ParseStyle(body.Style)
	if err != nil {
		return rewrite.Request{}, apperr.Validation(err.Error())
	}
	strategy, err := rewrite.ParseStrategy(body.Strategy)
	if err != nil {
		return rewrite.Request{}, apperr.Validation(err.Error())
	}

	req := rewrite.Request{
		Text:               body.Text,
		Style:              style,
		CustomInstructions: body.CustomInstructions,
		Language:           body.Language,
		Strategy:           strategy,
		Host:               hostName,
	}
	if body.Document != nil {
		tc, err := h.rewriter.ExtractContext(*body.Document, body.WholeDocument)
		if err != nil {
			return rewrite.Request{}, err
		}
		req.Text = tc.Text
		req.Span = tc.Span
	}
	return req, nil
}

// complete は結果を戦略に従って反映し、レスポンスとステータスを返します。
func (h *Handler) complete(r *http.Request, owner string, body rewriteRequest, res rewrite.Result) (rewriteResponse, int) {
	resp := rewriteResponse{Result: res}
	if !res.Success {
		return resp, statusForKind(res.ErrorKind)
	}

	switch res.Strategy {
	case rewrite.StrategyPreview:
		now := h.now()
		p := storage.Preview{
			ID:        res.ID,
			Owner:     owner,
			Status:    storage.PreviewPending,
			Result:    res,
			CreatedAt: now,
			ExpiresAt: now.Add(h.previewTTL),
		}
		if err := h.store.SavePreview(r.Context(), p); err != nil {
			h.log.Error("プレビューの保存に失敗しました", "id", res.ID, "error", err)
			return rewriteResponse{Result: res}, http.StatusInternalServerError
		}
		h.refreshPendingGauge(r)
		resp.Preview = &previewInfo{ID: p.ID, ExpiresAt: p.ExpiresAt}

	default:
		if body.Document != nil {
			doc := *body.Document
			if err := rewrite.Apply(res, &doc, res.Strategy); err != nil {
				resp.Result.Message = err.Error()
				return resp, http.StatusConflict
			}
			resp.Document = &doc
		}
	}
	return resp, http.StatusOK
}

func (h *Handler) refreshPendingGauge(r *http.Request) {
	n, err := h.store.CountPendingPreviews(r.Context())
	if err != nil {
		h.log.Warn("保留中プレビュー数の取得に失敗しました", "error", err)
		return
	}
	metrics.PreviewsPending.Set(float64(n))
}

// Rewrite は書き換えを同期的に実行して結果を返します。
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var body rewriteRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		writeAppError(w, err)
		return
	}
	owner, err := h.owner(w, r, req.Strategy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session", "")
		return
	}

	res := h.rewriter.Execute(r.Context(), req)
	resp, status := h.complete(r, owner, body, res)
	writeJSON(w, status, resp)
}

// RewriteStream は進捗をServer-Sent Eventsで送り、最後に result イベントを送ります。
// クライアントが切断するとリクエストのコンテキストが終わり、書き換えはキャンセルされます。
func (h *Handler) RewriteStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is not supported", "")
		return
	}

	var body rewriteRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		writeAppError(w, err)
		return
	}
	owner, err := h.owner(w, r, req.Strategy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session", "")
		return
	}

	inv, err := h.rewriter.Start(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for p := range inv.Progress() {
		if err := writeEvent(w, "progress", p); err != nil {
			inv.Cancel()
			break
		}
		flusher.Flush()
	}
	res := inv.Wait()
	if r.Context().Err() != nil {
		return
	}

	resp, _ := h.complete(r, owner, body, res)
	writeEvent(w, "result", resp)
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// owner はプレビューを保存する場合だけセッションを確立します。
func (h *Handler) owner(w http.ResponseWriter, r *http.Request, strategy rewrite.Strategy) (string, error) {
	if strategy != rewrite.StrategyPreview {
		return "", nil
	}
	return h.sessions.Owner(w, r)
}

type resolveRequest struct {
	Document *rewrite.Document `json:"document"`
}

type resolveResponse struct {
	Preview  *storage.Preview  `json:"preview"`
	Document *rewrite.Document `json:"document,omitempty"`
	Message  string            `json:"message"`
}

func (h *Handler) AcceptPreview(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, storage.PreviewAccepted)
}

func (h *Handler) RejectPreview(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, storage.PreviewRejected)
}

// resolve はプレビューを承認または却下します。承認時に文書が送られていれば
// 置換を適用し、文書が書き換え開始後に変更されていた場合は 409 を返します。
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, status storage.PreviewStatus) {
	id := mux.Vars(r)["id"]
	var body resolveRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	owner, err := h.sessions.Owner(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session", "")
		return
	}

	p, err := h.store.GetPreview(r.Context(), id)
	if err != nil || p.Owner != owner {
		h.writeStoreError(w, storage.ErrNotFound)
		return
	}

	var doc *rewrite.Document
	if status == storage.PreviewAccepted && body.Document != nil {
		d := *body.Document
		if err := rewrite.Apply(p.Result, &d, rewrite.StrategyReplace); err != nil {
			writeAppError(w, err)
			return
		}
		doc = &d
	}

	resolved, err := h.store.ResolvePreview(r.Context(), id, owner, status, h.now())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.refreshPendingGauge(r)

	locale := h.locale()
	msg := i18n.Message(locale, i18n.KeyRewriteSuccess)
	if status == storage.PreviewRejected {
		msg = i18n.Message(locale, i18n.KeyChangesRejected)
	}
	writeJSON(w, http.StatusOK, resolveResponse{Preview: resolved, Document: doc, Message: msg})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "preview not found", "")
	case errors.Is(err, storage.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "preview already resolved", "")
	case errors.Is(err, storage.ErrExpired):
		writeError(w, http.StatusGone, "preview expired", "")
	default:
		h.log.Error("プレビューの更新に失敗しました", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update preview", "")
	}
}
