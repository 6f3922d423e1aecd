// Package gemini は Gemini API への生成リクエストを、タイムアウト・再試行・エラー分類付きで扱います。
package gemini

import (
	"context"
	"fmt"
	"strings"
)

// GenerationConfig はプロバイダーへ送る生成パラメータです。
type GenerationConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator は1回分の生成呼び出しを行うバックエンドです。再試行は Client が担当します。
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
	Close() error
}

// Backend は Generator の実装の種類です。
type Backend string

const (
	BackendSDK  Backend = "sdk"
	BackendREST Backend = "rest"
)

// ParseBackend は設定値を Backend に変換します。空文字列は BackendSDK です。
func ParseBackend(v string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(v))) {
	case "", BackendSDK:
		return BackendSDK, nil
	case BackendREST:
		return BackendREST, nil
	default:
		return "", fmt.Errorf("unknown gemini backend %q", v)
	}
}

// NewGenerator は指定されたバックエンドの Generator を作成します。
// baseURL は REST バックエンドでのみ使われ、空なら公式エンドポイントです。
func NewGenerator(ctx context.Context, backend Backend, apiKey, baseURL string) (Generator, error) {
	switch backend {
	case BackendSDK, "":
		return NewSDKGenerator(ctx, apiKey)
	case BackendREST:
		return NewRESTGenerator(apiKey, baseURL, nil)
	default:
		return nil, fmt.Errorf("unknown gemini backend %q", backend)
	}
}
