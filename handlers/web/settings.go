package web

import (
	"net/http"
	"strconv"
	"strings"

	"geminify/apperr"
	"geminify/i18n"
	"geminify/prompt"
	"geminify/rewrite"
	"geminify/settings"
)

type styleInfo struct {
	ID          prompt.Style `json:"id"`
	Instruction string       `json:"instruction"`
}

func (h *Handler) Styles(w http.ResponseWriter, r *http.Request) {
	styles := prompt.Styles()
	out := make([]styleInfo, 0, len(styles))
	for _, s := range styles {
		out = append(out, styleInfo{ID: s, Instruction: s.Template()})
	}
	writeJSON(w, http.StatusOK, out)
}

type languagesResponse struct {
	Languages []prompt.Language `json:"languages"`
	Suggested []string          `json:"suggested"`
	Current   string            `json:"current,omitempty"`
}

func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages: prompt.Languages(),
		Suggested: prompt.SuggestedLanguages(),
		Current:   prompt.Indicator(h.settings.Current().LanguageRewrite),
	})
}

// APIキーは常にマスクして返す
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Current().Masked())
}

// settingsPatch は PUT /api/settings の部分更新です。省略した項目は変更しません。
type settingsPatch struct {
	APIKey                 *string                   `json:"api_key"`
	Model                  *string                   `json:"model"`
	SystemPrompt           *string                   `json:"system_prompt"`
	Temperature            *float64                  `json:"temperature"`
	MaxTokens              *int                      `json:"max_tokens"`
	Locale                 *string                   `json:"locale"`
	SecurityEducationShown *bool                     `json:"security_education_shown"`
	LanguageRewrite        *settings.LanguageRewrite `json:"language_rewrite"`
}

func (p settingsPatch) apply(s *settings.Settings) {
	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.Locale != nil {
		s.Locale = string(i18n.Normalize(*p.Locale))
	}
	if p.SecurityEducationShown != nil {
		s.SecurityEducationShown = *p.SecurityEducationShown
	}
	if p.LanguageRewrite != nil {
		s.LanguageRewrite = *p.LanguageRewrite
	}
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if !decodeBody(w, r, &patch, false) {
		return
	}
	if patch.LanguageRewrite != nil {
		if err := prompt.ValidateLanguage(*patch.LanguageRewrite); err != nil {
			writeAppError(w, err)
			return
		}
	}

	next, err := h.settings.Update(r.Context(), patch.apply)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConfig {
			writeAppError(w, err)
			return
		}
		h.log.Error("設定の保存に失敗しました", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings", "")
		return
	}
	writeJSON(w, http.StatusOK, next.Masked())
}

type verifyResponse struct {
	Valid   bool        `json:"valid"`
	Message string      `json:"message"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

func (h *Handler) VerifySettings(w http.ResponseWriter, r *http.Request) {
	locale := h.locale()
	if err := h.rewriter.Verify(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, verifyResponse{
			Message: i18n.Message(locale, i18n.KeyAPIKeyInvalid) + " " + i18n.ErrorMessage(locale, err),
			Kind:    apperr.KindOf(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: true, Message: i18n.Message(locale, i18n.KeyAPIKeyValid)})
}

func (h *Handler) Security(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settings.SecurityCheck(h.settings.Current(), h.rewriter.Capabilities().Mobile()))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", apperr.KindValidation)
			return
		}
		limit = n
	}
	entries, err := h.store.RecentHistory(r.Context(), limit)
	if err != nil {
		h.log.Error("履歴の取得に失敗しました", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history", "")
		return
	}
	if entries == nil {
		entries = []rewrite.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
