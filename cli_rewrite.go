package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"geminify/app"
	"geminify/apperr"
	"geminify/config"
	"geminify/i18n"
	"geminify/interfaces"
	"geminify/logger"
	"geminify/prompt"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/ui"

	"github.com/spf13/pflag"
)

type rewriteFlags struct {
	file     string
	from     int
	to       int
	entire   bool
	style    string
	custom   string
	strategy string
	lang     string
	stdout   bool
}

func runRewrite(args []string) error {
	fs := pflag.NewFlagSet("rewrite", pflag.ContinueOnError)
	config.Flags(fs)
	var f rewriteFlags
	fs.StringVarP(&f.file, "file", "f", "", "file to rewrite (required)")
	fs.IntVar(&f.from, "from", -1, "selection start (byte offset)")
	fs.IntVar(&f.to, "to", -1, "selection end (byte offset, exclusive)")
	fs.BoolVar(&f.entire, "entire", false, "rewrite the whole file when no selection is given")
	fs.StringVar(&f.style, "style", "", "writing style ("+styleNames()+")")
	fs.StringVar(&f.custom, "custom", "", "custom instructions (take precedence over --style)")
	fs.StringVar(&f.strategy, "strategy", "replace", "replace, append or preview")
	fs.StringVar(&f.lang, "lang", "", "rewrite into this language")
	fs.BoolVar(&f.stdout, "stdout", false, "print the document instead of writing the file")

	cfg, err := loadConfig(fs, args, true)
	if err != nil {
		return err
	}
	if f.file == "" {
		return fmt.Errorf("--file is required")
	}

	a, err := app.New(context.Background(), cfg, logger.Default(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	locale := a.Settings.Current().Locale
	presenter := ui.ForCapabilities(a.Capabilities, locale, os.Stdin, os.Stderr)
	return rewriteFile(a, presenter, locale, f, os.Stdout)
}

// rewriteFile は1回の書き換えを実行し、結果をファイルか out に書き出します。
// 失敗は Presenter に通知したうえで exitError を返します。
func rewriteFile(a *app.App, p ui.Presenter, locale string, f rewriteFlags, out io.Writer) error {
	fail := func(err error) error {
		p.Notify(interfaces.NoticeError, i18n.ErrorMessage(locale, err))
		return exitError{code: 1}
	}

	strategy, err := rewrite.ParseStrategy(f.strategy)
	if err != nil {
		return fail(apperr.Validation(err.Error()))
	}
	style, err := prompt.ParseStyle(f.style)
	if err != nil {
		return fail(apperr.Validation(err.Error()))
	}

	info, err := os.Stat(f.file)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(f.file)
	if err != nil {
		return err
	}

	doc := rewrite.Document{Text: string(data)}
	if f.from >= 0 || f.to >= 0 {
		doc.Selection = &rewrite.Span{Start: f.from, End: f.to}
	}

	tc, err := a.Rewriter.ExtractContext(doc, f.entire)
	if err != nil {
		return fail(err)
	}

	req := rewrite.Request{
		Text:               tc.Text,
		Span:               tc.Span,
		Style:              style,
		CustomInstructions: f.custom,
		Strategy:           strategy,
		Host:               "cli",
	}
	if f.lang != "" {
		lang := languageFor(a.Settings.Current().LanguageRewrite, f.lang)
		if err := prompt.ValidateLanguage(lang); err != nil {
			return fail(err)
		}
		req.Language = &lang
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv, err := a.Rewriter.Start(ctx, req)
	if err != nil {
		return fail(err)
	}
	res := ui.Watch(p, inv)
	if !res.Success {
		p.Notify(interfaces.NoticeError, res.Message)
		return exitError{code: 1}
	}

	applyAs := strategy
	if strategy == rewrite.StrategyPreview {
		p.Preview(res)
		ok, err := p.Confirm(i18n.Message(locale, i18n.KeyApplyChanges))
		if err != nil {
			return err
		}
		if !ok {
			p.Notify(interfaces.NoticeInfo, i18n.Message(locale, i18n.KeyChangesRejected))
			return nil
		}
		applyAs = rewrite.StrategyReplace
	}

	if err := rewrite.Apply(res, &doc, applyAs); err != nil {
		return fail(err)
	}

	if f.stdout {
		if _, err := io.WriteString(out, doc.Text); err != nil {
			return err
		}
	} else if err := os.WriteFile(f.file, []byte(doc.Text), info.Mode().Perm()); err != nil {
		return err
	}

	key := i18n.KeyRewriteSuccess
	if applyAs == rewrite.StrategyAppend {
		key = i18n.KeyAppendSuccess
	}
	p.Notify(interfaces.NoticeSuccess, i18n.Message(locale, key))
	return nil
}

func styleNames() string {
	styles := prompt.Styles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// languageFor は --lang の値から翻訳設定を作ります。
// カタログにない言語はカスタム言語として扱います。
func languageFor(base settings.LanguageRewrite, value string) settings.LanguageRewrite {
	base.Enabled = true
	code := strings.ToLower(strings.TrimSpace(value))
	if prompt.DisplayName(code) != code {
		base.TargetLanguage = code
		base.CustomLanguage = ""
		return base
	}
	base.TargetLanguage = prompt.CustomLanguage
	base.CustomLanguage = strings.TrimSpace(value)
	return base
}
