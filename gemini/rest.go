package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL は Generative Language API の公式エンドポイントです。
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// RESTGenerator は generateContent を直接呼び出す Generator です。
type RESTGenerator struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type restRequest struct {
	Contents         []restContent         `json:"contents"`
	GenerationConfig *restGenerationConfig `json:"generationConfig,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type restGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type restResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *restError `json:"error"`
}

type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Reason string `json:"reason"`
	} `json:"details"`
}

// APIError は REST バックエンドが返す HTTP エラーです。
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Reasons    []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("gemini api error %d", e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Reasons) > 0 {
		msg += " [" + strings.Join(e.Reasons, ", ") + "]"
	}
	return msg
}

// NewRESTGenerator は新しいRESTGeneratorを作成します。httpClient が nil なら http.DefaultClient を使います。
func NewRESTGenerator(apiKey, baseURL string, httpClient *http.Client) (*RESTGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: APIキーが設定されていません")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RESTGenerator{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Generate は generateContent を1回呼び出します。
func (g *RESTGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	temperature := cfg.Temperature
	reqBody := restRequest{
		Contents: []restContent{
			{Role: "user", Parts: []restPart{{Text: prompt}}},
		},
		GenerationConfig: &restGenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの作成に失敗: %w", err)
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("httpリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("apiへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}

	var parsed restResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return "", fmt.Errorf("レスポンスJSONのパースに失敗: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || parsed.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if parsed.Error != nil {
			apiErr.Status = parsed.Error.Status
			apiErr.Message = parsed.Error.Message
			for _, d := range parsed.Error.Details {
				if d.Reason != "" {
					apiErr.Reasons = append(apiErr.Reasons, d.Reason)
				}
			}
		}
		return "", apiErr
	}

	if parsed.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", nil
	}

	candidate := parsed.Candidates[0]
	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 && candidate.FinishReason == "SAFETY" {
		return "", errors.New("candidate blocked: SAFETY")
	}
	return b.String(), nil
}

// Close は何もしません。
func (g *RESTGenerator) Close() error { return nil }
