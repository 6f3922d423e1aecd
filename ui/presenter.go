// Package ui はホストの端末に進捗・プレビュー・確認・通知を表示します。
// デスクトップ向けとタッチ向けの2つの実装があり、ForCapabilities が選びます。
package ui

import (
	"bufio"
	"io"
	"strings"

	"geminify/interfaces"
	"geminify/platform"
	"geminify/rewrite"
)

// Presenter は書き換えのユーザー向け表示です。
type Presenter interface {
	Progress(p rewrite.Progress)
	Preview(r rewrite.Result)
	Confirm(question string) (bool, error)
	Notify(level interfaces.NoticeLevel, message string)
}

// ForCapabilities は環境に合った Presenter を返します。
func ForCapabilities(caps platform.Capabilities, locale string, in io.Reader, out io.Writer) Presenter {
	if caps.Touch {
		return NewTouch(locale, in, out)
	}
	return NewDesktop(locale, in, out)
}

// Watch は進捗ストリームを閉じられるまで Presenter に流します。
func Watch(p Presenter, inv *rewrite.Invocation) rewrite.Result {
	for ev := range inv.Progress() {
		p.Progress(ev)
	}
	return inv.Wait()
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
