// Package prompt は生成APIに送る指示文を組み立てます。
package prompt

import (
	"fmt"
	"strings"

	"geminify/apperr"
	"geminify/settings"
)

// OutputDiscipline は常に先頭に付与する出力規律の指示です。
const OutputDiscipline = "IMPORTANT: Return only the rewritten text. Do not add any explanation, introduction, " +
	"closing remark or commentary. Do not make meta statements. Output the rewritten content directly.\n\n"

const textHeader = "\n\nText to rewrite:\n"

// Composer は基本プロンプトと翻訳設定を保持する不変のビルダーです。
type Composer struct {
	basePrompt string
	language   settings.LanguageRewrite
}

// NewComposer は設定から Composer を作成します。
func NewComposer(s settings.Settings) *Composer {
	base := strings.TrimSpace(s.SystemPrompt)
	if base == "" {
		base = settings.DefaultSystemPrompt
	}
	return &Composer{basePrompt: base, language: s.LanguageRewrite}
}

// Build は最終的な指示文を返します。
// customInstructions はスタイルより優先されます。lang が nil の場合は設定の翻訳モードを使います。
func (c *Composer) Build(text string, style Style, customInstructions string, lang *settings.LanguageRewrite) (string, error) {
	if !style.Valid() {
		return "", apperr.Validation(fmt.Sprintf("unknown style %q", style))
	}

	language := c.language
	if lang != nil {
		language = *lang
	}
	directive, err := languageDirective(language)
	if err != nil {
		return "", err
	}

	instruction := c.instruction(style, customInstructions)

	var b strings.Builder
	b.Grow(len(OutputDiscipline) + len(instruction) + len(directive) + len(textHeader) + len(text))
	b.WriteString(OutputDiscipline)
	b.WriteString(instruction)
	b.WriteString(directive)
	b.WriteString(textHeader)
	b.WriteString(text)
	return b.String(), nil
}

func (c *Composer) instruction(style Style, customInstructions string) string {
	if custom := strings.TrimSpace(customInstructions); custom != "" {
		return custom
	}
	if style == StyleNone {
		return c.basePrompt
	}
	return style.Template()
}

// Language は Composer が既定で使う翻訳設定を返します。
func (c *Composer) Language() settings.LanguageRewrite {
	return c.language
}
