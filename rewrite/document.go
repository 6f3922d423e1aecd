package rewrite

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"geminify/apperr"
)

// AppendSeparator は APPEND で元の文書と書き換え結果の間に挿入される区切りです。
const AppendSeparator = "\n\n### 🤖 Geminified Version\n\n"

// Strategy は書き換え結果を文書に反映する方法です。
type Strategy string

const (
	StrategyReplace Strategy = "replace"
	StrategyAppend  Strategy = "append"
	StrategyPreview Strategy = "preview"
)

// ParseStrategy は文字列を Strategy に変換します。空文字列は StrategyReplace です。
func ParseStrategy(v string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(v))); s {
	case "":
		return StrategyReplace, nil
	case StrategyReplace, StrategyAppend, StrategyPreview:
		return s, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", v)
	}
}

// Span は文書内の範囲 [Start, End) です。単位はバイトオフセットです。
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// valid は範囲が文書内にあり、両端がUTF-8の文字の途中でないことを確認します。
func (s Span) valid(text string) bool {
	if s.Start < 0 || s.Start > s.End || s.End > len(text) {
		return false
	}
	if s.Start < len(text) && !utf8.RuneStart(text[s.Start]) {
		return false
	}
	return s.End == len(text) || utf8.RuneStart(text[s.End])
}

// Document はホストが渡す編集中の文書です。
type Document struct {
	Text      string `json:"text"`
	Selection *Span  `json:"selection,omitempty"`
	Cursor    int    `json:"cursor"`
}

// TextContext は書き換え対象のテキストです。Span が nil の場合は文書全体です。
type TextContext struct {
	HasSelection bool   `json:"has_selection"`
	Text         string `json:"text"`
	Span         *Span  `json:"span,omitempty"`
}

// EstimateTokens は文字数/4 を切り上げたおおよそのトークン数を返します。
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// ValidateLength は推定トークン数が budget 以下かどうかを返します。
func ValidateLength(text string, budget int) bool {
	return EstimateTokens(text) <= budget
}

// Apply は成功した結果を文書に反映します。PREVIEW は何も変更しません。
func Apply(result Result, doc *Document, strategy Strategy) error {
	if !result.Success {
		return apperr.Validation("cannot apply a failed rewrite")
	}
	if doc == nil {
		return apperr.Validation("no document to apply to")
	}

	switch strategy {
	case StrategyPreview:
		return nil

	case StrategyReplace, "":
		if result.Span == nil {
			doc.Text = result.Rewritten
			doc.Selection = nil
			doc.Cursor = len(doc.Text)
			return nil
		}
		span := *result.Span
		if !span.valid(doc.Text) {
			return apperr.Validation(fmt.Sprintf("span %d-%d is outside the document or splits a character", span.Start, span.End))
		}
		if doc.Text[span.Start:span.End] != result.Original {
			return apperr.Validation("the document changed since the rewrite started")
		}
		doc.Text = doc.Text[:span.Start] + result.Rewritten + doc.Text[span.End:]
		doc.Selection = nil
		doc.Cursor = span.Start + len(result.Rewritten)
		return nil

	case StrategyAppend:
		doc.Text = doc.Text + AppendSeparator + result.Rewritten
		doc.Cursor = len(doc.Text)
		return nil

	default:
		return apperr.Validation(fmt.Sprintf("unknown strategy %q", strategy))
	}
}
