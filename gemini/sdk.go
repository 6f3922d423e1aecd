package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SDKGenerator は公式 Go SDK を使う Generator です。
type SDKGenerator struct {
	client *genai.Client
}

// NewSDKGenerator は新しいSDKGeneratorを作成します。
func NewSDKGenerator(ctx context.Context, apiKey string) (*SDKGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: APIキーが設定されていません")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("GenAIクライアントの作成に失敗しました: %w", err)
	}
	return &SDKGenerator{client: client}, nil
}

// Generate はプロンプトからテキストを生成します。
func (g *SDKGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	model := g.client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Close はクライアントをクローズします。
func (g *SDKGenerator) Close() error {
	return g.client.Close()
}

// responseText は最初の候補に含まれるテキストパートを連結します。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
