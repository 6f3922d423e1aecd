package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"geminify/i18n"
	"geminify/interfaces"
	"geminify/rewrite"
)

var noticePrefix = map[interfaces.NoticeLevel]string{
	interfaces.NoticeInfo:    "ℹ️",
	interfaces.NoticeSuccess: "✅",
	interfaces.NoticeWarning: "⚠️",
	interfaces.NoticeError:   "❌",
}

// Touch は狭い画面とタッチ操作向けの Presenter です。装飾なしで、選択肢は番号で答えます。
type Touch struct {
	locale string
	in     *bufio.Reader
	out    io.Writer
}

// NewTouch は新しいTouchを作成します。
func NewTouch(locale string, in io.Reader, out io.Writer) *Touch {
	return &Touch{locale: locale, in: bufio.NewReader(in), out: out}
}

func (t *Touch) Progress(p rewrite.Progress) {
	fmt.Fprintf(t.out, "%d%% %s\n", p.Percent, p.Message)
}

func (t *Touch) Preview(r rewrite.Result) {
	fmt.Fprintln(t.out, i18n.Message(t.locale, i18n.KeyPreviewTitle))
	fmt.Fprintln(t.out, i18n.Message(t.locale, i18n.KeyRewrittenText))
	fmt.Fprintln(t.out, r.Rewritten)
}

func (t *Touch) Confirm(question string) (bool, error) {
	fmt.Fprintln(t.out, question)
	fmt.Fprintf(t.out, "1) %s\n2) %s\n> ", i18n.Message(t.locale, i18n.KeyAccept), i18n.Message(t.locale, i18n.KeyReject))
	line, err := readLine(t.in)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(line) == "1", nil
}

func (t *Touch) Notify(level interfaces.NoticeLevel, message string) {
	prefix, ok := noticePrefix[level]
	if !ok {
		prefix = noticePrefix[interfaces.NoticeInfo]
	}
	fmt.Fprintf(t.out, "%s %s\n", prefix, message)
}
