package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"geminify/i18n"
	"geminify/interfaces"
	"geminify/rewrite"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const progressBarWidth = 20

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	originalLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	rewrittenLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	deleteStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Strikethrough(true)
	insertStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Underline(true)
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	noticeStyles = map[interfaces.NoticeLevel]lipgloss.Style{
		interfaces.NoticeInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		interfaces.NoticeSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		interfaces.NoticeWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		interfaces.NoticeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// Desktop はポインタ操作の端末向けの Presenter です。枠付きの表示と差分を出します。
type Desktop struct {
	locale string
	in     *bufio.Reader
	out    io.Writer
}

// NewDesktop は新しいDesktopを作成します。
func NewDesktop(locale string, in io.Reader, out io.Writer) *Desktop {
	return &Desktop{locale: locale, in: bufio.NewReader(in), out: out}
}

func (d *Desktop) Progress(p rewrite.Progress) {
	filled := p.Percent * progressBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	fmt.Fprintf(d.out, "%s %3d%% %s\n", bar, p.Percent, statusStyle.Render(p.Message))
}

func (d *Desktop) Preview(r rewrite.Result) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.Message(d.locale, i18n.KeyPreviewTitle)))
	b.WriteString("\n")
	b.WriteString(originalLabelStyle.Render(i18n.Message(d.locale, i18n.KeyOriginalText)))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(r.Original))
	b.WriteString("\n")
	b.WriteString(rewrittenLabelStyle.Render(i18n.Message(d.locale, i18n.KeyRewrittenText)))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(InlineDiff(r.Original, r.Rewritten)))
	b.WriteString("\n")
	fmt.Fprint(d.out, b.String())
}

func (d *Desktop) Confirm(question string) (bool, error) {
	fmt.Fprintf(d.out, "%s [y/N] ", question)
	line, err := readLine(d.in)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes", "e", "evet":
		return true, nil
	default:
		return false, nil
	}
}

func (d *Desktop) Notify(level interfaces.NoticeLevel, message string) {
	style, ok := noticeStyles[level]
	if !ok {
		style = noticeStyles[interfaces.NoticeInfo]
	}
	fmt.Fprintln(d.out, style.Render(message))
}

// InlineDiff は削除を [-...-]、追加を {+...+} で囲んだ差分を返します。
func InlineDiff(original, rewritten string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, rewritten, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(diff.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString(deleteStyle.Render("[-" + diff.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(insertStyle.Render("{+" + diff.Text + "+}"))
		}
	}
	return b.String()
}
