package prompt

import (
	"fmt"
	"strings"
)

// Style は書き換えの文体テンプレートです。
type Style string

const (
	StyleNone         Style = ""
	StyleProfessional Style = "professional"
	StyleAcademic     Style = "academic"
	StyleCasual       Style = "casual"
	StyleBlog         Style = "blog"
	StyleTechnical    Style = "technical"
	StyleCreative     Style = "creative"
	StyleBusiness     Style = "business"
	StyleSimple       Style = "simple"
)

var styleOrder = []Style{
	StyleProfessional,
	StyleAcademic,
	StyleCasual,
	StyleBlog,
	StyleTechnical,
	StyleCreative,
	StyleBusiness,
	StyleSimple,
}

var styleTemplates = map[Style]string{
	StyleProfessional: "You are a professional writing assistant. Rewrite the text in a formal, business-appropriate style. Use clear, concise language and maintain a professional tone throughout.",
	StyleAcademic:     "You are an academic writing assistant. Rewrite the text in a scholarly style appropriate for academic papers. Use formal language, proper citation format and an objective tone.",
	StyleCasual:       "You are a casual writing assistant. Rewrite the text in a friendly, conversational style. Use simple language and a relaxed tone as if talking to a friend.",
	StyleBlog:         "You are a blog writing assistant. Rewrite the text in an engaging, readable style suitable for online content. Use active voice, compelling headlines and reader-friendly formatting.",
	StyleTechnical:    "You are a technical writing assistant. Rewrite the text with precision and clarity. Use specific terminology, step-by-step explanations and keep technical details accurate.",
	StyleCreative:     "You are a creative writing assistant. Rewrite the text with vivid imagery, engaging narrative and compelling storytelling elements. Feel free to use metaphors and creative language.",
	StyleBusiness:     "You are a business writing assistant. Rewrite the text for business communication. Be direct, action-oriented and focus on results and outcomes.",
	StyleSimple:       "You are a plain-language writing assistant. Rewrite the text using the simplest language possible. Break complex ideas down into easy-to-understand concepts.",
}

// Styles は選択可能なスタイルを表示順で返します。
func Styles() []Style {
	return append([]Style(nil), styleOrder...)
}

// Template はスタイルの指示文を返します。
func (s Style) Template() string {
	return styleTemplates[s]
}

// Valid はスタイルが列挙値かどうかを返します。StyleNone も有効です。
func (s Style) Valid() bool {
	if s == StyleNone {
		return true
	}
	_, ok := styleTemplates[s]
	return ok
}

// ParseStyle は文字列をStyleに変換します。空文字列は StyleNone です。
func ParseStyle(v string) (Style, error) {
	s := Style(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return StyleNone, fmt.Errorf("unknown style %q", v)
	}
	return s, nil
}
