// Package settings はプラグイン全体で1つだけ存在するユーザー設定を扱います。
package settings

import (
	"fmt"
	"strings"

	"geminify/apperr"
)

// Gemini モデル識別子
const (
	ModelFlash     = "gemini-2.5-flash"
	ModelFlashLite = "gemini-2.5-flash-lite-preview-06-17"
	ModelPro       = "gemini-2.5-pro"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinMaxTokens   = 512
	MaxMaxTokens   = 8192
)

// DefaultSystemPrompt はスタイル未指定時に使う基本の指示文です。
const DefaultSystemPrompt = "Rewrite this text so that it is clearer, easier to understand and more professional. " +
	"Keep the key information and build a better flow and structure. " +
	"Return ONLY the rewritten text, without any explanation, introduction or additional commentary."

// LanguageRewrite は翻訳モードの設定です。
type LanguageRewrite struct {
	Enabled            bool   `json:"enabled" mapstructure:"enabled"`
	TargetLanguage     string `json:"target_language" mapstructure:"target_language"`
	CustomLanguage     string `json:"custom_language,omitempty" mapstructure:"custom_language"`
	PreserveFormatting bool   `json:"preserve_formatting" mapstructure:"preserve_formatting"`
	CulturalAdaptation bool   `json:"cultural_adaptation" mapstructure:"cultural_adaptation"`
}

// Settings は永続化されるユーザー設定です。
type Settings struct {
	APIKey                 string          `json:"api_key" mapstructure:"api_key"`
	Model                  string          `json:"model" mapstructure:"model"`
	SystemPrompt           string          `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature            float64         `json:"temperature" mapstructure:"temperature"`
	MaxTokens              int             `json:"max_tokens" mapstructure:"max_tokens"`
	Locale                 string          `json:"locale" mapstructure:"locale"`
	SecurityEducationShown bool            `json:"security_education_shown" mapstructure:"security_education_shown"`
	LanguageRewrite        LanguageRewrite `json:"language_rewrite" mapstructure:"language_rewrite"`
}

// Defaults は初期設定を返します。
func Defaults() Settings {
	return Settings{
		Model:        ModelFlash,
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    2048,
		Locale:       "en",
		LanguageRewrite: LanguageRewrite{
			Enabled:            false,
			TargetLanguage:     "english",
			PreserveFormatting: true,
		},
	}
}

// Validate は値の範囲を確認します。翻訳先の解決可否は prompt パッケージが判断します。
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return apperr.Config("model must not be empty")
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return apperr.Config(fmt.Sprintf("temperature %.2f out of range [%.1f, %.1f]", s.Temperature, MinTemperature, MaxTemperature))
	}
	if s.MaxTokens < MinMaxTokens || s.MaxTokens > MaxMaxTokens {
		return apperr.Config(fmt.Sprintf("max tokens %d out of range [%d, %d]", s.MaxTokens, MinMaxTokens, MaxMaxTokens))
	}
	return nil
}

// HasAPIKey はAPIキーが設定済みかどうかを返します。
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Masked は表示用にAPIキーを伏せたコピーを返します。
func (s Settings) Masked() Settings {
	s.APIKey = MaskKey(s.APIKey)
	return s
}

// MaskKey は先頭4文字と末尾2文字以外を伏せます。
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-6) + key[len(key)-2:]
}
